// Package service implements the dashboard aggregation operations:
// each method resolves the caller's scope, builds a filter, executes
// it through the persistence gateway, and reduces the result into the
// shape the dashboard consumes.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/YuCheng1122/threat-graph/internal/authz"
	"github.com/YuCheng1122/threat-graph/internal/errs"
	"github.com/YuCheng1122/threat-graph/internal/metrics"
	"github.com/YuCheng1122/threat-graph/internal/query"
	"github.com/YuCheng1122/threat-graph/internal/reduce"
	"github.com/YuCheng1122/threat-graph/internal/store"
	"github.com/YuCheng1122/threat-graph/pkg/models"
)

// Dashboard wires the scope resolver, the persistence gateway, and the
// reducers together. All methods are safe for concurrent use.
type Dashboard struct {
	gw      store.Gateway
	scopes  *authz.Resolver
	metrics *metrics.Metrics
}

// NewDashboard creates the service. Metrics may be nil in tests.
func NewDashboard(gw store.Gateway, scopes *authz.Resolver, m *metrics.Metrics) *Dashboard {
	return &Dashboard{gw: gw, scopes: scopes, metrics: m}
}

func (d *Dashboard) search(ctx context.Context, req store.Request) (*store.Result, error) {
	d.metrics.IncQueries()
	res, err := d.gw.Search(ctx, req)
	if err != nil {
		d.metrics.IncQueryErrors()
		return nil, err
	}
	return res, nil
}

func (d *Dashboard) eventFilter(ctx context.Context, p models.Principal, start, end time.Time, extra query.Extra) (query.Filter, error) {
	scope, err := d.scopes.ResolveScope(ctx, p)
	if err != nil {
		return query.Filter{}, err
	}
	return query.Build(start, end, scope, models.DataTypeWazuhEvent, extra)
}

// Alerts returns the four-band severity histogram of events in range.
func (d *Dashboard) Alerts(ctx context.Context, p models.Principal, start, end time.Time) (reduce.SeverityCounts, error) {
	f, err := d.eventFilter(ctx, p, start, end, query.Extra{})
	if err != nil {
		return reduce.SeverityCounts{}, err
	}
	res, err := d.search(ctx, store.Request{Filter: f, GroupBy: "rule_level"})
	if err != nil {
		return reduce.SeverityCounts{}, err
	}
	return reduce.SeverityFromBuckets(res.Buckets), nil
}

// TacticLinechart returns the hourly per-tactic time series for the
// range. The tactic label enumeration and the raw event scan run as
// two concurrent queries and merge deterministically.
func (d *Dashboard) TacticLinechart(ctx context.Context, p models.Principal, start, end time.Time) (reduce.LineChart, error) {
	extra := query.Extra{
		ExcludeEmpty:  []string{"rule_mitre_tactic"},
		ExcludePrefix: map[string]string{"rule_mitre_tactic": "CVE-"},
	}
	f, err := d.eventFilter(ctx, p, start, end, extra)
	if err != nil {
		return reduce.LineChart{}, err
	}

	var (
		wg        sync.WaitGroup
		labels    *store.Result
		hits      *store.Result
		labelsErr error
		hitsErr   error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		labels, labelsErr = d.search(ctx, store.Request{Filter: f, GroupBy: "rule_mitre_tactic"})
	}()
	go func() {
		defer wg.Done()
		hits, hitsErr = d.search(ctx, store.Request{Filter: f})
	}()
	wg.Wait()
	if labelsErr != nil {
		return reduce.LineChart{}, labelsErr
	}
	if hitsErr != nil {
		return reduce.LineChart{}, hitsErr
	}

	return reduce.TacticSeries(labels.Buckets, reduce.Events(hits.Hits), start, end), nil
}

// CVEBarchart returns the counts of CVE references found in events in
// range, descending.
func (d *Dashboard) CVEBarchart(ctx context.Context, p models.Principal, start, end time.Time) ([]reduce.CVECount, error) {
	f, err := d.eventFilter(ctx, p, start, end, query.Extra{})
	if err != nil {
		return nil, err
	}
	res, err := d.search(ctx, store.Request{Filter: f})
	if err != nil {
		return nil, err
	}
	return reduce.CVECounts(reduce.Events(res.Hits)), nil
}

// MaliciousFileBarchart returns the per-file counts of malicious-file
// detections in range.
func (d *Dashboard) MaliciousFileBarchart(ctx context.Context, p models.Principal, start, end time.Time) ([]reduce.FileCount, error) {
	f, err := d.eventFilter(ctx, p, start, end, query.Extra{RuleIDIn: reduce.MaliciousFileRuleIDs})
	if err != nil {
		return nil, err
	}
	res, err := d.search(ctx, store.Request{Filter: f})
	if err != nil {
		return nil, err
	}
	return reduce.MaliciousFiles(reduce.Events(res.Hits)), nil
}

// AuthenticationBreakdown returns the top techniques behind repeated
// authentication failures in range.
func (d *Dashboard) AuthenticationBreakdown(ctx context.Context, p models.Principal, start, end time.Time) ([]reduce.TechniqueCount, error) {
	f, err := d.eventFilter(ctx, p, start, end, query.Extra{RuleIDIn: []string{reduce.AuthFailureRuleID}})
	if err != nil {
		return nil, err
	}
	res, err := d.search(ctx, store.Request{Filter: f, GroupBy: "rule_mitre_technique"})
	if err != nil {
		return nil, err
	}
	return reduce.AuthFailures(res.Buckets), nil
}

// IoCBreakdown returns the distinct indicator values per indicator
// type observed in range.
func (d *Dashboard) IoCBreakdown(ctx context.Context, p models.Principal, start, end time.Time) ([]reduce.IoCGroup, error) {
	f, err := d.eventFilter(ctx, p, start, end, query.Extra{FieldExists: []string{"ioc_type", "ioc_value"}})
	if err != nil {
		return nil, err
	}
	res, err := d.search(ctx, store.Request{Filter: f})
	if err != nil {
		return nil, err
	}
	return reduce.IoCBreakdown(reduce.Events(res.Hits)), nil
}

// PieCharts returns the four top-5 tallies of the pie view for the
// range.
func (d *Dashboard) PieCharts(ctx context.Context, p models.Principal, start, end time.Time) (reduce.PieCharts, error) {
	f, err := d.eventFilter(ctx, p, start, end, query.Extra{})
	if err != nil {
		return reduce.PieCharts{}, err
	}
	res, err := d.search(ctx, store.Request{Filter: f})
	if err != nil {
		return reduce.PieCharts{}, err
	}
	return reduce.TopFivePies(reduce.Events(res.Hits)), nil
}

// MitreCorrelation returns the per-(tactic, technique) correlation
// rows for one agent in range.
func (d *Dashboard) MitreCorrelation(ctx context.Context, p models.Principal, agentName string, start, end time.Time) ([]reduce.MitreRow, error) {
	f, err := d.eventFilter(ctx, p, start, end, query.Extra{AgentName: agentName})
	if err != nil {
		return nil, err
	}
	res, err := d.search(ctx, store.Request{Filter: f})
	if err != nil {
		return nil, err
	}
	return reduce.MitreCorrelation(reduce.Events(res.Hits)), nil
}

// AgentSummary returns the fixed 8-counter agent summary over the
// heartbeat records in range, deduplicated to the latest record per
// agent name.
func (d *Dashboard) AgentSummary(ctx context.Context, p models.Principal, start, end time.Time) ([]reduce.SummaryRow, error) {
	scope, err := d.scopes.ResolveScope(ctx, p)
	if err != nil {
		return nil, err
	}
	f, err := query.Build(start, end, scope, models.DataTypeAgentInfo, query.Extra{})
	if err != nil {
		return nil, err
	}
	res, err := d.search(ctx, store.Request{Filter: f})
	if err != nil {
		return nil, err
	}
	agents := reduce.LatestByName(reduce.AgentRecords(res.Hits))
	return reduce.Summarize(agents), nil
}

// AgentInfo returns the latest heartbeat record for one agent name.
// Absent agents fail with ErrNotFound.
func (d *Dashboard) AgentInfo(ctx context.Context, p models.Principal, agentName string, start, end time.Time) (*models.Agent, error) {
	scope, err := d.scopes.ResolveScope(ctx, p)
	if err != nil {
		return nil, err
	}
	f, err := query.Build(start, end, scope, models.DataTypeAgentInfo, query.Extra{AgentName: agentName})
	if err != nil {
		return nil, err
	}
	res, err := d.search(ctx, store.Request{Filter: f, SortTimeDesc: true, Limit: 1})
	if err != nil {
		return nil, err
	}
	agents := reduce.AgentRecords(res.Hits)
	if len(agents) == 0 {
		return nil, fmt.Errorf("agent %q: %w", agentName, errs.ErrNotFound)
	}
	return agents[0], nil
}

// EventTable returns the newest high-level events in range as table
// rows.
func (d *Dashboard) EventTable(ctx context.Context, p models.Principal, start, end time.Time) ([]reduce.EventRow, error) {
	minLevel := reduce.HighLevelThreshold
	f, err := d.eventFilter(ctx, p, start, end, query.Extra{MinLevel: &minLevel})
	if err != nil {
		return nil, err
	}
	res, err := d.search(ctx, store.Request{Filter: f, SortTimeDesc: true, Limit: reduce.EventTableLimit})
	if err != nil {
		return nil, err
	}
	return reduce.EventTable(reduce.Events(res.Hits)), nil
}

// AgentEventCounts returns per-agent-name event totals in range.
func (d *Dashboard) AgentEventCounts(ctx context.Context, p models.Principal, start, end time.Time) ([]reduce.AgentEventCount, error) {
	f, err := d.eventFilter(ctx, p, start, end, query.Extra{})
	if err != nil {
		return nil, err
	}
	res, err := d.search(ctx, store.Request{Filter: f, GroupBy: "agent_name"})
	if err != nil {
		return nil, err
	}
	return reduce.AgentEventCounts(res.Buckets), nil
}

// TotalEvents returns the number of high-level events in range.
func (d *Dashboard) TotalEvents(ctx context.Context, p models.Principal, start, end time.Time) (int, error) {
	minLevel := reduce.HighLevelThreshold
	f, err := d.eventFilter(ctx, p, start, end, query.Extra{MinLevel: &minLevel})
	if err != nil {
		return 0, err
	}
	res, err := d.search(ctx, store.Request{Filter: f})
	if err != nil {
		return 0, err
	}
	return len(res.Hits), nil
}

// SaveAgent upserts one heartbeat record. Non-admin principals may
// only write into groups they hold.
func (d *Dashboard) SaveAgent(ctx context.Context, p models.Principal, agent models.Agent) error {
	ok, err := d.scopes.CheckGroup(ctx, p, agent.GroupName)
	if err != nil {
		return err
	}
	if !ok {
		d.metrics.IncIntakeInvalid()
		return fmt.Errorf("group %q not authorized for user %q: %w", agent.GroupName, p.Username, errs.ErrPermissionDenied)
	}
	if err := d.gw.UpsertAgent(ctx, agent); err != nil {
		return err
	}
	d.metrics.IncEventsIngested(1)
	return nil
}

// SaveEvents appends a batch of events, returning how many were
// accepted. Events in groups the principal does not hold fail the
// whole batch before anything is written.
func (d *Dashboard) SaveEvents(ctx context.Context, p models.Principal, events []models.WazuhEvent) (int, error) {
	scope, err := d.scopes.ResolveScope(ctx, p)
	if err != nil {
		return 0, err
	}
	for _, ev := range events {
		if !scope.Allows(ev.GroupName) {
			d.metrics.IncIntakeInvalid()
			return 0, fmt.Errorf("group %q not authorized for user %q: %w", ev.GroupName, p.Username, errs.ErrPermissionDenied)
		}
	}
	for i := range events {
		if err := d.gw.AppendEvent(ctx, events[i]); err != nil {
			return i, err
		}
	}
	d.metrics.IncEventsIngested(len(events))
	return len(events), nil
}

// SaveDetection appends one detection-family record.
func (d *Dashboard) SaveDetection(ctx context.Context, det models.Record) error {
	if err := d.gw.AppendDetection(ctx, det); err != nil {
		return err
	}
	d.metrics.IncEventsIngested(1)
	return nil
}

// Detections lists RDS detections for one account in range, newest
// first. Detections are account-scoped; the principal's scope is
// resolved only to reject disabled accounts.
func (d *Dashboard) Detections(ctx context.Context, p models.Principal, account string, start, end time.Time) ([]*models.RDSDetection, error) {
	if _, err := d.scopes.ResolveScope(ctx, p); err != nil {
		return nil, err
	}
	f, err := query.Build(start, end, authz.Unrestricted(), models.DataTypeRDSDetection, query.Extra{Account: account})
	if err != nil {
		return nil, err
	}
	res, err := d.search(ctx, store.Request{Filter: f, SortTimeDesc: true})
	if err != nil {
		return nil, err
	}
	out := make([]*models.RDSDetection, 0, len(res.Hits))
	for _, hit := range res.Hits {
		if det, ok := hit.(*models.RDSDetection); ok {
			out = append(out, det)
		}
	}
	return out, nil
}
