package models

import (
	"strconv"
	"time"
)

// RDSDetection is one RDS endpoint detection. Scoped by account rather
// than group, tagged with a confidence score.
type RDSDetection struct {
	Timestamp     time.Time `json:"timestamp"`
	Account       string    `json:"account"`
	EdgeName      string    `json:"edge_name,omitempty"`
	EdgeIP        string    `json:"edge_ip,omitempty"`
	EdgeMAC       string    `json:"edge_mac,omitempty"`
	EdgeOS        string    `json:"edge_os,omitempty"`
	TagID         string    `json:"tag_id,omitempty"`
	Tag           string    `json:"tag,omitempty"`
	FileHash      string    `json:"file_hash,omitempty"`
	FileName      string    `json:"file_name,omitempty"`
	FilePath      string    `json:"file_path,omitempty"`
	Score         int       `json:"score"`
}

func (d *RDSDetection) RecordTime() time.Time { return d.Timestamp }

func (d *RDSDetection) DataType() string { return DataTypeRDSDetection }

// Group is empty: RDS detections are account-scoped.
func (d *RDSDetection) Group() string { return "" }

func (d *RDSDetection) Field(name string) string {
	if d == nil {
		return ""
	}
	switch name {
	case "account":
		return d.Account
	case "edge_name":
		return d.EdgeName
	case "edge_ip":
		return d.EdgeIP
	case "edge_mac":
		return d.EdgeMAC
	case "edge_os":
		return d.EdgeOS
	case "tag_id":
		return d.TagID
	case "tag":
		return d.Tag
	case "file_hash":
		return d.FileHash
	case "file_name":
		return d.FileName
	case "file_path":
		return d.FilePath
	case "score":
		return strconv.Itoa(d.Score)
	}
	return ""
}

func (d *RDSDetection) Level() (int, bool) { return d.Score, true }

// ModbusEvent is one industrial-protocol detection from a Modbus probe.
// Scoped by device rather than group.
type ModbusEvent struct {
	Timestamp       time.Time `json:"timestamp"`
	DeviceID        string    `json:"device_id"`
	EventType       string    `json:"event_type,omitempty"`
	SourceIP        string    `json:"source_ip,omitempty"`
	SourcePort      int       `json:"source_port,omitempty"`
	DestinationIP   string    `json:"destination_ip,omitempty"`
	DestinationPort int       `json:"destination_port,omitempty"`
	ModbusFunction  int       `json:"modbus_function,omitempty"`
	ModbusData      string    `json:"modbus_data,omitempty"`
	Alert           string    `json:"alert,omitempty"`
}

func (m *ModbusEvent) RecordTime() time.Time { return m.Timestamp }

func (m *ModbusEvent) DataType() string { return DataTypeModbusEvent }

func (m *ModbusEvent) Group() string { return "" }

func (m *ModbusEvent) Field(name string) string {
	if m == nil {
		return ""
	}
	switch name {
	case "device_id":
		return m.DeviceID
	case "event_type":
		return m.EventType
	case "source_ip":
		return m.SourceIP
	case "destination_ip":
		return m.DestinationIP
	case "modbus_function":
		return strconv.Itoa(m.ModbusFunction)
	case "modbus_data":
		return m.ModbusData
	case "alert":
		return m.Alert
	}
	return ""
}

func (m *ModbusEvent) Level() (int, bool) { return 0, false }
