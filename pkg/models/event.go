package models

import (
	"strconv"
	"time"
)

// IoCRef is an indicator-of-compromise annotation attached to an event.
type IoCRef struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// WazuhEvent is one alert produced by a Wazuh agent. Append-only; the
// aggregation layer never mutates stored events.
type WazuhEvent struct {
	Timestamp          time.Time `json:"timestamp"`
	AgentID            string    `json:"agent_id"`
	AgentName          string    `json:"agent_name,omitempty"`
	AgentIP            string    `json:"agent_ip,omitempty"`
	RuleID             string    `json:"rule_id"`
	RuleLevel          int       `json:"rule_level"`
	RuleDescription    string    `json:"rule_description"`
	RuleMitreID        string    `json:"rule_mitre_id,omitempty"`
	RuleMitreTactic    string    `json:"rule_mitre_tactic,omitempty"`
	RuleMitreTechnique string    `json:"rule_mitre_technique,omitempty"`
	GroupName          string    `json:"group_name,omitempty"`
	IoC                *IoCRef   `json:"rule_ioc,omitempty"`
}

func (e *WazuhEvent) RecordTime() time.Time { return e.Timestamp }

func (e *WazuhEvent) DataType() string { return DataTypeWazuhEvent }

func (e *WazuhEvent) Group() string { return e.GroupName }

// Field returns the named event field, or "" when absent.
func (e *WazuhEvent) Field(name string) string {
	if e == nil {
		return ""
	}
	switch name {
	case "agent_id":
		return e.AgentID
	case "agent_name":
		return e.AgentName
	case "agent_ip":
		return e.AgentIP
	case "rule_id":
		return e.RuleID
	case "rule_level":
		return strconv.Itoa(e.RuleLevel)
	case "rule_description":
		return e.RuleDescription
	case "rule_mitre_id":
		return e.RuleMitreID
	case "rule_mitre_tactic":
		return e.RuleMitreTactic
	case "rule_mitre_technique":
		return e.RuleMitreTechnique
	case "group_name":
		return e.GroupName
	case "ioc_type":
		if e.IoC != nil {
			return e.IoC.Type
		}
		return ""
	case "ioc_value":
		if e.IoC != nil {
			return e.IoC.Value
		}
		return ""
	}
	return ""
}

func (e *WazuhEvent) Level() (int, bool) { return e.RuleLevel, true }
