package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/noah-isme/sma-records-console/internal/planner"
	"github.com/noah-isme/sma-records-console/internal/schema"
	"github.com/noah-isme/sma-records-console/pkg/response"
)

type target struct {
	Path     string
	Critical bool
}

type comparison struct {
	Target         target
	LegacyStatus   int
	GoStatus       int
	StatusMatch    bool
	TotalMatch     bool
	BodyMatch      bool
	Error          error
	DurationGo     time.Duration
	DurationLegacy time.Duration
}

func (c comparison) differs() bool {
	return !c.StatusMatch || !c.TotalMatch || !c.BodyMatch
}

// defaultTargets covers every collection with the query shapes the console sends.
func defaultTargets() []target {
	reg := schema.Default()
	var out []target
	for _, kind := range reg.Kinds() {
		s, err := reg.Lookup(kind)
		if err != nil {
			continue
		}
		base := "/" + s.ResourcePath
		out = append(out,
			target{Path: base, Critical: true},
			target{Path: fmt.Sprintf("%s?%s=1&%s=%d", base, planner.ParamPage, planner.ParamLimit, planner.DefaultPageSize), Critical: true},
			target{Path: fmt.Sprintf("%s?%s=a&%s=1&%s=5", base, planner.ParamSearch, planner.ParamPage, planner.ParamLimit), Critical: true},
		)
		if len(s.Columns) > 1 {
			out = append(out, target{
				Path: fmt.Sprintf("%s?%s=%s&%s=desc", base, planner.ParamSort, s.Columns[1].Key, planner.ParamOrder),
			})
		}
	}
	return out
}

type comparer struct {
	client     *http.Client
	goBase     string
	legacyBase string
	ignore     []string
}

type fetched struct {
	status   int
	total    string
	body     []byte
	duration time.Duration
}

func (c *comparer) compare(tgt target) comparison {
	comp := comparison{Target: tgt}
	goRes, goErr := c.fetch(c.goBase, tgt.Path)
	legacyRes, legacyErr := c.fetch(c.legacyBase, tgt.Path)
	if goErr != nil {
		comp.Error = fmt.Errorf("go request failed: %w", goErr)
		return comp
	}
	if legacyErr != nil {
		comp.Error = fmt.Errorf("legacy request failed: %w", legacyErr)
		return comp
	}

	comp.DurationGo = goRes.duration
	comp.DurationLegacy = legacyRes.duration
	comp.GoStatus = goRes.status
	comp.LegacyStatus = legacyRes.status
	comp.StatusMatch = comp.GoStatus == comp.LegacyStatus
	comp.TotalMatch = goRes.total == legacyRes.total
	comp.BodyMatch = bodiesEqual(goRes.body, legacyRes.body, c.ignore)
	return comp
}

func (c *comparer) fetch(base, path string) (fetched, error) {
	url := strings.TrimRight(base, "/") + path
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return fetched{}, err
	}
	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return fetched{}, err
	}
	defer resp.Body.Close() //nolint:errcheck
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fetched{}, fmt.Errorf("read body: %w", err)
	}
	return fetched{
		status:   resp.StatusCode,
		total:    resp.Header.Get(response.TotalCountHeader),
		body:     body,
		duration: time.Since(start),
	}, nil
}

// bodiesEqual compares JSON bodies after dropping ignored document fields and
// folding whole floats into integers.
func bodiesEqual(a, b []byte, ignore []string) bool {
	if len(ignore) == 0 && bytes.Equal(bytes.TrimSpace(a), bytes.TrimSpace(b)) {
		return true
	}

	var aj, bj interface{}
	if err := json.Unmarshal(a, &aj); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &bj); err != nil {
		return false
	}
	skip := make(map[string]struct{}, len(ignore))
	for _, f := range ignore {
		skip[f] = struct{}{}
	}
	return reflect.DeepEqual(normalize(aj, skip), normalize(bj, skip))
}

func normalize(v interface{}, skip map[string]struct{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, v2 := range val {
			if _, ok := skip[k]; ok {
				continue
			}
			out[k] = normalize(v2, skip)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, v2 := range val {
			out[i] = normalize(v2, skip)
		}
		return out
	case float64:
		if val == float64(int64(val)) {
			return int64(val)
		}
	}
	return v
}

func printReport(w io.Writer, results []comparison) (breaking, optional int) {
	fmt.Fprintln(w, "Shadow Compare Report")
	fmt.Fprintln(w, "======================")
	for _, res := range results {
		status := "OK"
		switch {
		case res.Error != nil:
			status = "ERROR"
			if res.Target.Critical {
				breaking++
			}
		case res.differs():
			status = "DIFF"
			if res.Target.Critical {
				breaking++
			} else {
				optional++
			}
		}
		fmt.Fprintf(w, "[%s] GET %s\n", status, res.Target.Path)
		if res.Error != nil {
			fmt.Fprintf(w, "  Error: %v\n", res.Error)
			continue
		}
		fmt.Fprintf(w, "  Go: %d (%s) | Legacy: %d (%s)\n", res.GoStatus, res.DurationGo, res.LegacyStatus, res.DurationLegacy)
		fmt.Fprintf(w, "  Status match: %t | Total match: %t | Body match: %t | Critical: %t\n",
			res.StatusMatch, res.TotalMatch, res.BodyMatch, res.Target.Critical)
	}
	fmt.Fprintf(w, "Breaking diffs: %d, Optional diffs: %d\n", breaking, optional)
	return breaking, optional
}
