package planner

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// SortOrder is the direction of the selected sort column.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// Query parameter names understood by the REST resource.
const (
	ParamPage   = "_page"
	ParamLimit  = "_limit"
	ParamSearch = "q"
	ParamSort   = "_sort"
	ParamOrder  = "_order"
	SuffixGTE   = "_gte"
	SuffixLTE   = "_lte"
)

// DefaultPageSize is used when a non-positive size is requested.
const DefaultPageSize = 10

// FilterOp is the comparison applied by a field filter.
type FilterOp string

const (
	OpEq  FilterOp = "eq"
	OpGTE FilterOp = "gte"
	OpLTE FilterOp = "lte"
)

// Filter narrows the listing by one field.
type Filter struct {
	Field string
	Op    FilterOp
	Value string
}

// Param renders the filter as a REST query parameter name.
func (f Filter) Param() string {
	switch f.Op {
	case OpGTE:
		return f.Field + SuffixGTE
	case OpLTE:
		return f.Field + SuffixLTE
	default:
		return f.Field
	}
}

// ParseFilter reads "field=value", "field>=value" or "field<=value".
func ParseFilter(expr string) (Filter, error) {
	for _, candidate := range []struct {
		sep string
		op  FilterOp
	}{{">=", OpGTE}, {"<=", OpLTE}, {"=", OpEq}} {
		if i := strings.Index(expr, candidate.sep); i > 0 {
			field := strings.TrimSpace(expr[:i])
			value := strings.TrimSpace(expr[i+len(candidate.sep):])
			if field == "" {
				break
			}
			return Filter{Field: field, Op: candidate.op, Value: value}, nil
		}
	}
	return Filter{}, fmt.Errorf("invalid filter %q, expected field=value, field>=value or field<=value", expr)
}

// State is the pagination, sort, search and filter state of one table view.
type State struct {
	Page       int
	PageSize   int
	SearchText string
	SortColumn string
	SortOrder  SortOrder
	Filters    []Filter
}

// NewState returns the initial state of a view.
func NewState(pageSize int) State {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return State{Page: 1, PageSize: pageSize, SortOrder: Asc}
}

// Clone returns a copy that shares no slices with s.
func (s State) Clone() State {
	out := s
	out.Filters = append([]Filter(nil), s.Filters...)
	return out
}

// SetSearch changes the free-text search and reports whether it changed.
func (s *State) SetSearch(text string) bool {
	text = strings.TrimSpace(text)
	if text == s.SearchText {
		return false
	}
	s.SearchText = text
	s.Page = 1
	return true
}

// SetPageSize changes the page size and reports whether it changed.
func (s *State) SetPageSize(size int) bool {
	if size < 1 {
		size = DefaultPageSize
	}
	if size == s.PageSize {
		return false
	}
	s.PageSize = size
	s.Page = 1
	return true
}

// ToggleSort applies a sort-header click: the same column flips its order, a
// new column starts ascending. The page always resets.
func (s *State) ToggleSort(column string) {
	if column == s.SortColumn && s.SortColumn != "" {
		if s.SortOrder == Asc {
			s.SortOrder = Desc
		} else {
			s.SortOrder = Asc
		}
	} else {
		s.SortColumn = column
		s.SortOrder = Asc
	}
	s.Page = 1
}

// SetSort selects column and order explicitly. An empty column clears sorting.
func (s *State) SetSort(column string, order SortOrder) bool {
	if order != Desc {
		order = Asc
	}
	if column == "" {
		order = Asc
	}
	if column == s.SortColumn && order == s.SortOrder {
		return false
	}
	s.SortColumn = column
	s.SortOrder = order
	s.Page = 1
	return true
}

// SetFilter adds or replaces the filter on (field, op). An empty value removes it.
func (s *State) SetFilter(f Filter) bool {
	for i, existing := range s.Filters {
		if existing.Field == f.Field && existing.Op == f.Op {
			if f.Value == "" {
				s.Filters = append(s.Filters[:i:i], s.Filters[i+1:]...)
			} else if existing.Value == f.Value {
				return false
			} else {
				s.Filters[i] = f
			}
			s.Page = 1
			return true
		}
	}
	if f.Value == "" {
		return false
	}
	s.Filters = append(s.Filters, f)
	s.Page = 1
	return true
}

// ClearFilters drops every field filter and the search text.
func (s *State) ClearFilters() bool {
	if len(s.Filters) == 0 && s.SearchText == "" {
		return false
	}
	s.Filters = nil
	s.SearchText = ""
	s.Page = 1
	return true
}

// Next advances one page when the summary allows it.
func (s *State) Next(totalPages int) bool {
	if !HasNext(s.Page, totalPages) {
		return false
	}
	s.Page++
	return true
}

// Prev goes back one page when possible.
func (s *State) Prev() bool {
	if !HasPrev(s.Page) {
		return false
	}
	s.Page--
	return true
}

// GoTo jumps to page clamped into [1, max(1, totalPages)].
func (s *State) GoTo(page, totalPages int) bool {
	last := totalPages
	if last < 1 {
		last = 1
	}
	if page > last {
		page = last
	}
	if page < 1 {
		page = 1
	}
	if page == s.Page {
		return false
	}
	s.Page = page
	return true
}

// Values renders the state as REST query parameters.
func (s State) Values() url.Values {
	page := s.Page
	if page < 1 {
		page = 1
	}
	size := s.PageSize
	if size < 1 {
		size = DefaultPageSize
	}
	v := url.Values{}
	v.Set(ParamPage, strconv.Itoa(page))
	v.Set(ParamLimit, strconv.Itoa(size))
	if s.SearchText != "" {
		v.Set(ParamSearch, s.SearchText)
	}
	if s.SortColumn != "" {
		order := s.SortOrder
		if order != Desc {
			order = Asc
		}
		v.Set(ParamSort, s.SortColumn)
		v.Set(ParamOrder, string(order))
	}
	for _, f := range s.Filters {
		v.Add(f.Param(), f.Value)
	}
	return v
}

// TotalPages returns ceil(totalItems / pageSize), zero when there are no items.
func TotalPages(totalItems, pageSize int) int {
	if totalItems <= 0 {
		return 0
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return (totalItems + pageSize - 1) / pageSize
}

// HasPrev reports whether the previous-page control is enabled.
func HasPrev(page int) bool {
	return page > 1
}

// HasNext reports whether the next-page control is enabled.
func HasNext(page, totalPages int) bool {
	return page < totalPages
}

// Summary is the derived pagination state rendered under the table.
type Summary struct {
	Page       int
	PageSize   int
	TotalItems int
	TotalPages int
	HasPrev    bool
	HasNext    bool
	// From and To are 1-based item positions shown on this page, zero when empty.
	From int
	To   int
}

// Summarize derives the pagination summary for a fetched page.
func Summarize(s State, totalItems, rows int) Summary {
	totalPages := TotalPages(totalItems, s.PageSize)
	sum := Summary{
		Page:       s.Page,
		PageSize:   s.PageSize,
		TotalItems: totalItems,
		TotalPages: totalPages,
		HasPrev:    HasPrev(s.Page),
		HasNext:    HasNext(s.Page, totalPages),
	}
	if rows > 0 {
		sum.From = (s.Page-1)*s.PageSize + 1
		sum.To = sum.From + rows - 1
	}
	return sum
}

// OutOfRange reports whether the page lies beyond the last page.
func (s Summary) OutOfRange() bool {
	last := s.TotalPages
	if last < 1 {
		last = 1
	}
	return s.Page > last
}
