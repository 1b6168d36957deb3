// Package reduce turns raw hit streams and backend bucket aggregations
// into the charted and tabular shapes the dashboard consumes. All
// reducers are pure and safe to run concurrently; a malformed record
// is skipped and logged, never failing the batch.
package reduce

import (
	"github.com/YuCheng1122/threat-graph/internal/logger"
	"github.com/YuCheng1122/threat-graph/pkg/models"
)

// Events narrows a hit stream to Wazuh events, skipping records of
// other families.
func Events(hits []models.Record) []*models.WazuhEvent {
	out := make([]*models.WazuhEvent, 0, len(hits))
	for _, hit := range hits {
		ev, ok := hit.(*models.WazuhEvent)
		if !ok {
			logger.Warnf("Skipping non-event record of type %s in event reduction", hit.DataType())
			continue
		}
		out = append(out, ev)
	}
	return out
}

// AgentRecords narrows a hit stream to agent records.
func AgentRecords(hits []models.Record) []*models.Agent {
	out := make([]*models.Agent, 0, len(hits))
	for _, hit := range hits {
		a, ok := hit.(*models.Agent)
		if !ok {
			logger.Warnf("Skipping non-agent record of type %s in agent reduction", hit.DataType())
			continue
		}
		out = append(out, a)
	}
	return out
}
