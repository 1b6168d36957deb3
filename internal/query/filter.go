// Package query builds the declarative, scope-aware filters the
// persistence gateway executes. The package performs no I/O.
package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/YuCheng1122/threat-graph/internal/authz"
	"github.com/YuCheng1122/threat-graph/internal/errs"
	"github.com/YuCheng1122/threat-graph/pkg/models"
)

// Extra carries the optional predicates an endpoint may add on top of
// the mandatory data-type and time-range conditions.
type Extra struct {
	AgentName string
	AgentID   string
	Account   string
	RuleIDIn  []string
	// FieldExists requires each named field to be non-empty.
	FieldExists []string
	// FieldPrefix requires the field value to start with the prefix.
	FieldPrefix map[string]string
	// ExcludeEmpty drops records whose named field is empty even when
	// no exists predicate was requested (terms-style bucketing skips
	// them anyway; raw scans need the explicit condition).
	ExcludeEmpty []string
	// ExcludePrefix drops records whose field starts with the prefix.
	ExcludePrefix map[string]string
	// MinLevel/MaxLevel bound the numeric severity, inclusive, when
	// non-nil.
	MinLevel *int
	MaxLevel *int
}

// Filter is the declarative query description executed by a gateway.
// Zero-valued optional predicates are absent.
type Filter struct {
	DataType string
	Start    time.Time
	End      time.Time

	// MatchNone marks the filter unsatisfiable. Set when a restricted
	// scope holds zero groups: the result must be empty, never
	// unfiltered.
	MatchNone bool

	// Scoped indicates GroupIn applies; distinguishes "restricted to
	// these groups" from "unrestricted".
	Scoped  bool
	GroupIn []string

	AgentName     string
	AgentID       string
	Account       string
	RuleIDIn      []string
	FieldExists   []string
	FieldPrefix   map[string]string
	ExcludeEmpty  []string
	ExcludePrefix map[string]string
	MinLevel      *int
	MaxLevel      *int
}

// Build constructs a filter for the given time range, scope, and data
// type. The range is inclusive on both ends; an end strictly before
// the start fails with ErrInvalidRange.
func Build(start, end time.Time, scope authz.Scope, dataType string, extra Extra) (Filter, error) {
	if start.IsZero() || end.IsZero() {
		return Filter{}, fmt.Errorf("start and end times are required: %w", errs.ErrInvalidRange)
	}
	if end.Before(start) {
		return Filter{}, fmt.Errorf("start_time must precede end_time: %w", errs.ErrInvalidRange)
	}

	f := Filter{
		DataType:      dataType,
		Start:         start,
		End:           end,
		AgentName:     extra.AgentName,
		AgentID:       extra.AgentID,
		Account:       extra.Account,
		RuleIDIn:      append([]string(nil), extra.RuleIDIn...),
		FieldExists:   append([]string(nil), extra.FieldExists...),
		ExcludeEmpty:  append([]string(nil), extra.ExcludeEmpty...),
		MinLevel:      extra.MinLevel,
		MaxLevel:      extra.MaxLevel,
	}
	if len(extra.FieldPrefix) > 0 {
		f.FieldPrefix = make(map[string]string, len(extra.FieldPrefix))
		for k, v := range extra.FieldPrefix {
			f.FieldPrefix[k] = v
		}
	}
	if len(extra.ExcludePrefix) > 0 {
		f.ExcludePrefix = make(map[string]string, len(extra.ExcludePrefix))
		for k, v := range extra.ExcludePrefix {
			f.ExcludePrefix[k] = v
		}
	}

	if !scope.IsUnrestricted() {
		f.Scoped = true
		f.GroupIn = append([]string(nil), scope.Groups()...)
		if len(f.GroupIn) == 0 {
			f.MatchNone = true
		}
	}

	return f, nil
}

// Matches evaluates the filter against one record. Gateways use it
// during query execution so that scope is applied before results leave
// the storage layer.
func (f Filter) Matches(rec models.Record) bool {
	if f.MatchNone || rec == nil {
		return false
	}
	if f.DataType != "" && rec.DataType() != f.DataType {
		return false
	}
	ts := rec.RecordTime()
	if ts.Before(f.Start) || ts.After(f.End) {
		return false
	}
	if f.Scoped && !contains(f.GroupIn, rec.Group()) {
		return false
	}
	if f.AgentName != "" && rec.Field("agent_name") != f.AgentName {
		return false
	}
	if f.AgentID != "" && rec.Field("agent_id") != f.AgentID {
		return false
	}
	if f.Account != "" && rec.Field("account") != f.Account {
		return false
	}
	if len(f.RuleIDIn) > 0 && !contains(f.RuleIDIn, rec.Field("rule_id")) {
		return false
	}
	for _, field := range f.FieldExists {
		if rec.Field(field) == "" {
			return false
		}
	}
	for field, prefix := range f.FieldPrefix {
		if !strings.HasPrefix(rec.Field(field), prefix) {
			return false
		}
	}
	for _, field := range f.ExcludeEmpty {
		if strings.TrimSpace(rec.Field(field)) == "" {
			return false
		}
	}
	for field, prefix := range f.ExcludePrefix {
		if strings.HasPrefix(rec.Field(field), prefix) {
			return false
		}
	}
	if f.MinLevel != nil || f.MaxLevel != nil {
		level, ok := rec.Level()
		if !ok {
			return false
		}
		if f.MinLevel != nil && level < *f.MinLevel {
			return false
		}
		if f.MaxLevel != nil && level > *f.MaxLevel {
			return false
		}
	}
	return true
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
