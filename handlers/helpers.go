package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/payplanner/payplanner_backend/config"
	"github.com/payplanner/payplanner_backend/models"
	"github.com/payplanner/payplanner_backend/models/reports"
	"github.com/payplanner/payplanner_backend/utils"
	"github.com/shopspring/decimal"
)

// RegisterValidation makes gin binding errors report json field names.
func RegisterValidation() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "" {
				name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			}
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

// respondError maps a model error to its HTTP status. Unknown errors are logged and hidden.
func respondError(c *gin.Context, funcName string, err error) {
	var validationErr *utils.ValidationError
	var authErr *models.AuthError
	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "record not found"})
	case errors.As(err, &validationErr):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": validationErr.Error(), "field": validationErr.Field})
	case errors.As(err, &authErr):
		c.AbortWithStatusJSON(authErr.Status, gin.H{"error": authErr.Message, "code": authErr.Code})
	default:
		_ = c.Error(err)
		config.LogError(config.GetLogger(), "Handlers", funcName, c.Request.Method+" "+c.FullPath(), nil, err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// bindJSON decodes the body into input and answers 400 on failure.
func bindJSON(c *gin.Context, input any) bool {
	if err := c.ShouldBindJSON(input); err != nil {
		respondBindError(c, err)
		return false
	}
	return true
}

func respondBindError(c *gin.Context, err error) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":  "invalid request",
			"fields": utils.ProcessValidationErrors(ve),
		})
		return
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
}

// paramId reads a positive integer path parameter, answering 400 otherwise.
func paramId(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid " + name, "field": name})
		return 0, false
	}
	return id, true
}

// queryParser collects query-string parsing errors so a handler checks once.
type queryParser struct {
	c   *gin.Context
	err error
}

func newQueryParser(c *gin.Context) *queryParser {
	return &queryParser{c: c}
}

func (q *queryParser) fail(name string, format string, args ...any) {
	if q.err == nil {
		q.err = utils.NewValidationError(name, format, args...)
	}
}

func (q *queryParser) String(name string) string {
	return strings.TrimSpace(q.c.Query(name))
}

func (q *queryParser) Int(name string, def int) int {
	v := q.String(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		q.fail(name, "must be an integer")
		return def
	}
	return n
}

func (q *queryParser) IntPtr(name string) *int {
	v := q.String(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		q.fail(name, "must be an integer")
		return nil
	}
	return &n
}

func (q *queryParser) BoolPtr(name string) *bool {
	v := q.String(name)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		q.fail(name, "must be true or false")
		return nil
	}
	return &b
}

func (q *queryParser) DatePtr(name string) *time.Time {
	v := q.String(name)
	if v == "" {
		return nil
	}
	t, err := utils.ParseDate(v)
	if err != nil {
		q.fail(name, "invalid date %q", v)
		return nil
	}
	return &t
}

func (q *queryParser) Decimal(name string) decimal.Decimal {
	v := q.String(name)
	if v == "" {
		return decimal.Zero
	}
	d, err := utils.ParseDecimal(v)
	if err != nil {
		q.fail(name, "must be a number")
		return decimal.Zero
	}
	return d
}

// Page reads page and pageSize; a missing pageSize means DefaultPageSize.
func (q *queryParser) Page() models.PageParams {
	return models.NewPageParams(q.Int("page", 1), q.Int("pageSize", models.DefaultPageSize))
}

func (q *queryParser) Sort() models.SortParams {
	return models.NewSortParams(q.String("sortBy"), q.String("sortDir"))
}

// Err reports the first parsing error, answering 400 when there is one.
func (q *queryParser) Err() bool {
	if q.err == nil {
		return false
	}
	respondError(q.c, "queryParser", q.err)
	return true
}

func sendExcel(c *gin.Context, fileName string, buf *bytes.Buffer) {
	c.Header("Content-Disposition", attachmentDisposition(fileName))
	c.Data(http.StatusOK, reports.ExcelContentType, buf.Bytes())
}
