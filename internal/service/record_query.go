package service

import (
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/noah-isme/sma-records-console/internal/models"
	"github.com/noah-isme/sma-records-console/internal/planner"
	appErrors "github.com/noah-isme/sma-records-console/pkg/errors"
)

const (
	suffixNE   = "_ne"
	suffixLike = "_like"
)

type fieldMatcher struct {
	field  string
	op     string
	values []string
	like   *regexp.Regexp
}

// listQuery is the parsed json-server style listing request.
type listQuery struct {
	search   string
	sortBy   []string
	orders   []planner.SortOrder
	page     int
	limit    int
	matchers []fieldMatcher
}

// parseListQuery reads q, FIELD, FIELD_gte, FIELD_lte, FIELD_ne, FIELD_like,
// _sort, _order, _page and _limit. Unknown underscore parameters are ignored.
func parseListQuery(values url.Values) (listQuery, error) {
	q := listQuery{search: strings.ToLower(strings.TrimSpace(values.Get(planner.ParamSearch)))}

	if raw := values.Get(planner.ParamSort); raw != "" {
		q.sortBy = splitList(raw)
		orders := splitList(values.Get(planner.ParamOrder))
		for i := range q.sortBy {
			order := planner.Asc
			if i < len(orders) && strings.EqualFold(orders[i], string(planner.Desc)) {
				order = planner.Desc
			}
			q.orders = append(q.orders, order)
		}
	}

	var err error
	if q.page, err = optionalPositive(values, planner.ParamPage); err != nil {
		return q, err
	}
	if q.limit, err = optionalPositive(values, planner.ParamLimit); err != nil {
		return q, err
	}
	if q.page > 0 && q.limit == 0 {
		q.limit = planner.DefaultPageSize
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if key == planner.ParamSearch || strings.HasPrefix(key, "_") {
			continue
		}
		m := fieldMatcher{field: key, op: "eq", values: values[key]}
		for _, suffix := range []string{planner.SuffixGTE, planner.SuffixLTE, suffixNE, suffixLike} {
			if strings.HasSuffix(key, suffix) && len(key) > len(suffix) {
				m.field = strings.TrimSuffix(key, suffix)
				m.op = strings.TrimPrefix(suffix, "_")
				break
			}
		}
		if m.op == "like" {
			re, err := regexp.Compile("(?i)" + values.Get(key))
			if err != nil {
				return q, appErrors.Clone(appErrors.ErrValidation, "invalid "+key+" pattern")
			}
			m.like = re
		}
		q.matchers = append(q.matchers, m)
	}
	return q, nil
}

func optionalPositive(values url.Values, key string) (int, error) {
	raw := values.Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, appErrors.Clone(appErrors.ErrValidation, key+" must be a positive integer")
	}
	return n, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// apply filters, sorts and pages records. It returns the page and the filtered total.
func (q listQuery) apply(records []models.Record) ([]models.Record, int) {
	matched := make([]models.Record, 0, len(records))
	for _, rec := range records {
		if q.matches(rec) {
			matched = append(matched, rec)
		}
	}

	if len(q.sortBy) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			for k, field := range q.sortBy {
				c := compareValues(matched[i][field], matched[j][field])
				if c == 0 {
					continue
				}
				if q.orders[k] == planner.Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}

	total := len(matched)
	if q.limit == 0 {
		return matched, total
	}
	page := q.page
	if page < 1 {
		page = 1
	}
	start := (page - 1) * q.limit
	if start >= total {
		return []models.Record{}, total
	}
	end := start + q.limit
	if end > total {
		end = total
	}
	return matched[start:end], total
}

func (q listQuery) matches(rec models.Record) bool {
	if q.search != "" {
		found := false
		for _, v := range rec {
			if v != nil && strings.Contains(strings.ToLower(models.FormatValue(v)), q.search) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, m := range q.matchers {
		v, ok := rec[m.field]
		switch m.op {
		case "eq":
			if !ok || !containsValue(m.values, v) {
				return false
			}
		case "ne":
			if ok && containsValue(m.values, v) {
				return false
			}
		case "gte":
			if !ok || compareValues(v, m.values[0]) < 0 {
				return false
			}
		case "lte":
			if !ok || compareValues(v, m.values[0]) > 0 {
				return false
			}
		case "like":
			if !ok || !m.like.MatchString(models.FormatValue(v)) {
				return false
			}
		}
	}
	return true
}

func containsValue(candidates []string, v interface{}) bool {
	text := models.FormatValue(v)
	for _, c := range candidates {
		if c == text {
			return true
		}
	}
	return false
}

// compareValues orders numbers numerically and everything else as text.
// Missing values sort before present ones.
func compareValues(a, b interface{}) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	as, bs := models.FormatValue(a), models.FormatValue(b)
	af, aErr := strconv.ParseFloat(as, 64)
	bf, bErr := strconv.ParseFloat(bs, 64)
	if aErr == nil && bErr == nil {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(as, bs)
}
