package models

import (
	"strings"

	"gorm.io/gorm"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 500
)

// PageParams is an offset page request. Use NewPageParams to get clamped values.
type PageParams struct {
	Page     int
	PageSize int
}

// NewPageParams clamps page to >= 1 and pageSize to [1, MaxPageSize].
func NewPageParams(page, pageSize int) PageParams {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return PageParams{Page: page, PageSize: pageSize}
}

func (p PageParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Paginate is a gorm scope applying offset and limit.
func (p PageParams) Paginate(db *gorm.DB) *gorm.DB {
	return db.Offset(p.Offset()).Limit(p.PageSize)
}

type PagedResult[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

func newPagedResult[T any](items []T, total int64, p PageParams) *PagedResult[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(p.PageSize) - 1) / int64(p.PageSize))
	}
	return &PagedResult[T]{
		Items:      items,
		Total:      total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: totalPages,
	}
}

// paginateQuery counts the filtered query, then loads one page of it with preloads.
func paginateQuery[T any](query *gorm.DB, p PageParams, preloads ...string) (*PagedResult[*T], error) {
	var total int64
	var model T
	if err := query.Session(&gorm.Session{}).Model(&model).Count(&total).Error; err != nil {
		return nil, err
	}
	query = query.Scopes(p.Paginate)
	for _, association := range preloads {
		query = query.Preload(association)
	}
	var items []*T
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return newPagedResult(items, total, p), nil
}

// SortParams is a client sort request; By is matched against a per-entity allow-list.
type SortParams struct {
	By   string
	Desc bool
}

func NewSortParams(by string, dir string) SortParams {
	return SortParams{
		By:   strings.TrimSpace(by),
		Desc: strings.EqualFold(strings.TrimSpace(dir), "desc"),
	}
}

// sortSpec is a per-entity allow-list of client sort fields and their column expressions.
type sortSpec struct {
	table   string
	columns map[string]string
	def     string
}

// apply orders by the allowed column, falling back to the default order for unknown fields.
// The primary key breaks ties so pages are stable.
func (spec sortSpec) apply(db *gorm.DB, s SortParams) *gorm.DB {
	id := spec.table + ".id"
	column, ok := spec.columns[strings.ToLower(s.By)]
	if !ok {
		return db.Order(spec.def).Order(id)
	}
	if s.Desc {
		return db.Order(column + " DESC").Order(id + " DESC")
	}
	return db.Order(column + " ASC").Order(id + " ASC")
}

func likePattern(search string) string {
	return "%" + strings.TrimSpace(search) + "%"
}
