package models

import "time"

// NodeStatus gates whether a node may submit reports.
type NodeStatus string

const (
	NodeStatusActive   NodeStatus = "ACTIVE"
	NodeStatusInactive NodeStatus = "INACTIVE"
)

// Node is an independently operated reporting clinic/site.
type Node struct {
	NodeID       string
	Name         string
	Latitude     float64
	Longitude    float64
	Status       NodeStatus
	CreatedAt    time.Time
	LastReportAt *time.Time
}

// IsActive reports whether the node may submit reports.
func (n *Node) IsActive() bool {
	return n.Status == NodeStatusActive
}
