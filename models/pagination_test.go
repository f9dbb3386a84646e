package models

import "testing"

func TestNewPageParams_Clamps(t *testing.T) {
	cases := []struct {
		page, size         int
		wantPage, wantSize int
	}{
		{0, 0, 1, 1},
		{-3, 20, 1, 20},
		{2, 50, 2, 50},
		{1, 10000, 1, MaxPageSize},
	}
	for _, tc := range cases {
		p := NewPageParams(tc.page, tc.size)
		if p.Page != tc.wantPage || p.PageSize != tc.wantSize {
			t.Fatalf("NewPageParams(%d, %d) = %+v, want page %d size %d", tc.page, tc.size, p, tc.wantPage, tc.wantSize)
		}
	}
	if off := NewPageParams(3, 20).Offset(); off != 40 {
		t.Fatalf("expected offset 40, got %d", off)
	}
}

func TestNewPagedResult_TotalPages(t *testing.T) {
	cases := []struct {
		total     int64
		size      int
		wantPages int
	}{
		{0, 20, 0},
		{1, 20, 1},
		{20, 20, 1},
		{21, 20, 2},
		{1000, 500, 2},
	}
	for _, tc := range cases {
		r := newPagedResult[int](nil, tc.total, NewPageParams(1, tc.size))
		if r.TotalPages != tc.wantPages {
			t.Fatalf("total %d size %d: expected %d pages, got %d", tc.total, tc.size, tc.wantPages, r.TotalPages)
		}
		if r.Items == nil {
			t.Fatalf("items must never be nil")
		}
	}
}
