package models

import "time"

// Data-type discriminators carried by every stored record.
const (
	DataTypeAgentInfo    = "agent_info"
	DataTypeWazuhEvent   = "wazuh_events"
	DataTypeRDSDetection = "rds_detection"
	DataTypeModbusEvent  = "modbus_events"
)

// Record is the narrow read surface the query filter and the reducers
// operate against. Each record family (agent, Wazuh event, RDS
// detection, Modbus event) implements it; family-specific fields stay
// on the concrete types.
type Record interface {
	// RecordTime is the event timestamp used for range filtering and
	// partition resolution.
	RecordTime() time.Time
	// DataType returns the data-type discriminator.
	DataType() string
	// Group returns the owning group name, or "" for records scoped by
	// account/device instead of group.
	Group() string
	// Field returns a named field as a string, or "" when the field is
	// absent. Used by exists/prefix/equality predicates.
	Field(name string) string
	// Level returns the numeric severity (rule level or confidence
	// score) and whether the record carries one.
	Level() (int, bool)
}
