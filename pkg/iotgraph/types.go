package iotgraph

import (
	"fmt"
	"strings"
)

// DeviceType is the closed set of entity kinds in a Social IoT graph.
type DeviceType uint8

const (
	DeviceSensor DeviceType = iota
	DeviceActuator
	DeviceGateway
	DeviceUser
	DeviceCloud
)

// DeviceTypes lists every DeviceType in sampling order.
var DeviceTypes = [...]DeviceType{DeviceSensor, DeviceActuator, DeviceGateway, DeviceUser, DeviceCloud}

var deviceTypeNames = [...]string{"sensor", "actuator", "gateway", "user", "cloud"}

func (d DeviceType) String() string {
	if int(d) >= len(deviceTypeNames) {
		return fmt.Sprintf("DeviceType(%d)", uint8(d))
	}
	return deviceTypeNames[d]
}

// MarshalText lets DeviceType act as a JSON/YAML scalar and map key.
func (d DeviceType) MarshalText() ([]byte, error) {
	if int(d) >= len(deviceTypeNames) {
		return nil, fmt.Errorf("unknown device type %d", uint8(d))
	}
	return []byte(deviceTypeNames[d]), nil
}

func (d *DeviceType) UnmarshalText(text []byte) error {
	parsed, err := ParseDeviceType(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDeviceType resolves a case-insensitive device type name.
func ParseDeviceType(s string) (DeviceType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range deviceTypeNames {
		if n == name {
			return DeviceType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown device type %q", s)
}

// Protocol is the closed set of link protocols.
type Protocol uint8

const (
	ProtocolMQTT Protocol = iota
	ProtocolHTTP
	ProtocolCoAP
)

// Protocols lists every Protocol in sampling order.
var Protocols = [...]Protocol{ProtocolMQTT, ProtocolHTTP, ProtocolCoAP}

var protocolNames = [...]string{"MQTT", "HTTP", "CoAP"}

func (p Protocol) String() string {
	if int(p) >= len(protocolNames) {
		return fmt.Sprintf("Protocol(%d)", uint8(p))
	}
	return protocolNames[p]
}

func (p Protocol) MarshalText() ([]byte, error) {
	if int(p) >= len(protocolNames) {
		return nil, fmt.Errorf("unknown protocol %d", uint8(p))
	}
	return []byte(protocolNames[p]), nil
}

func (p *Protocol) UnmarshalText(text []byte) error {
	parsed, err := ParseProtocol(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParseProtocol resolves a case-insensitive protocol name.
func ParseProtocol(s string) (Protocol, error) {
	for i, n := range protocolNames {
		if strings.EqualFold(n, strings.TrimSpace(s)) {
			return Protocol(i), nil
		}
	}
	return 0, fmt.Errorf("unknown protocol %q", s)
}

// Attribute ranges. Packet rate is packets/s, bandwidth Mbps, latency ms.
const (
	MinPacketRate = 10.0
	MaxPacketRate = 100.0
	MinBandwidth  = 0.5
	MaxBandwidth  = 10.0
	MinLatency    = 1.0
	MaxLatency    = 100.0
)

// Node is a device, user or service. Attributes are descriptive only.
type Node struct {
	ID            int        `json:"id"`
	DeviceType    DeviceType `json:"device_type"`
	AvgPacketRate float64    `json:"avg_packet_rate"`
	AnomalyScore  float64    `json:"anomaly_score"`
}

// Edge is a directed communication link Source -> Target.
type Edge struct {
	Source    int      `json:"source"`
	Target    int      `json:"target"`
	Protocol  Protocol `json:"protocol"`
	Bandwidth float64  `json:"bandwidth"`
	Latency   float64  `json:"latency"`
}

// Summary is the read-only census of a graph.
type Summary struct {
	Nodes        int                `json:"nodes"`
	Edges        int                `json:"edges"`
	DeviceCounts map[DeviceType]int `json:"device_counts"`
}
