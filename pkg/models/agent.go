package models

import (
	"strconv"
	"time"
)

// Agent is the reported state of one monitored device. Heartbeats
// upsert by AgentID; several AgentIDs may report under the same
// AgentName over time, and the record with the greatest LastKeepAlive
// is authoritative for that name.
type Agent struct {
	AgentID          string    `json:"agent_id"`
	AgentName        string    `json:"agent_name"`
	IP               string    `json:"ip,omitempty"`
	OS               string    `json:"os,omitempty"`
	OSVersion        string    `json:"os_version,omitempty"`
	AgentStatus      string    `json:"agent_status"`
	StatusCode       int       `json:"status_code,omitempty"`
	LastKeepAlive    time.Time `json:"last_keep_alive"`
	RegistrationTime time.Time `json:"registration_time,omitempty"`
	GroupName        string    `json:"group_name,omitempty"`
}

func (a *Agent) RecordTime() time.Time { return a.LastKeepAlive }

func (a *Agent) DataType() string { return DataTypeAgentInfo }

func (a *Agent) Group() string { return a.GroupName }

func (a *Agent) Field(name string) string {
	if a == nil {
		return ""
	}
	switch name {
	case "agent_id":
		return a.AgentID
	case "agent_name":
		return a.AgentName
	case "ip":
		return a.IP
	case "os":
		return a.OS
	case "os_version":
		return a.OSVersion
	case "agent_status":
		return a.AgentStatus
	case "status_code":
		return strconv.Itoa(a.StatusCode)
	case "group_name":
		return a.GroupName
	}
	return ""
}

func (a *Agent) Level() (int, bool) { return 0, false }
