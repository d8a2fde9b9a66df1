// Package domain defines the core interfaces and types for Liftwatch.
package domain

import (
	"time"
)

// Asset is a physical unit under maintenance (an elevator).
// It is read-only for the duration of an analysis run.
type Asset struct {
	ID      string `json:"id"`
	Code    string `json:"code"`
	Address string `json:"address"`
	City    string `json:"city"`
	Sector  int    `json:"sector"`

	// Maintenance contract
	UnderContract bool   `json:"underContract"`
	ContractPlan  string `json:"contractPlan,omitempty"`

	OutOfService bool      `json:"outOfService"`
	UpdatedAt    time.Time `json:"updatedAt,omitempty"`
}

// RawFaultRecord is a fault log entry as delivered by the upstream fault log.
// Data is loosely typed: the cause may be a string or a number and the date
// an unparsed string that may be malformed.
type RawFaultRecord struct {
	ID         string         `json:"id"`
	AssetID    string         `json:"assetId"`
	Data       map[string]any `json:"data"`
	RecordedAt time.Time      `json:"recordedAt"`
}

// Keys of RawFaultRecord.Data.
const (
	FieldDate  = "date"
	FieldCause = "cause"
	FieldType  = "type"
	FieldLabel = "label"
)

// RecordKind tells a real breakdown apart from routine checks.
type RecordKind string

const (
	KindRealFault RecordKind = "real_fault"
	KindVisit     RecordKind = "visit"
	KindControl   RecordKind = "control"
)

// FaultRecord is the strict, normalized form of a RawFaultRecord.
type FaultRecord struct {
	ID      string
	AssetID string

	// Date is only meaningful when HasDate is true.
	Date    time.Time
	HasDate bool

	Cause string
	Kind  RecordKind
	Label string
}

// IsRealFault reports whether the record counts toward fault statistics.
func (r *FaultRecord) IsRealFault() bool {
	return r.Kind == KindRealFault
}

// AssetRequest is the API request payload for registering an asset.
type AssetRequest struct {
	ID           string `json:"id"`
	Code         string `json:"code"`
	Address      string `json:"address"`
	City         string `json:"city"`
	Sector       int    `json:"sector"`
	ContractPlan string `json:"contractPlan,omitempty"`
	OutOfService bool   `json:"outOfService"`
}

// ToAsset converts a request to an Asset domain object.
// An asset is under contract when it has a contract plan.
func (r *AssetRequest) ToAsset() *Asset {
	return &Asset{
		ID:            r.ID,
		Code:          r.Code,
		Address:       r.Address,
		City:          r.City,
		Sector:        r.Sector,
		UnderContract: r.ContractPlan != "",
		ContractPlan:  r.ContractPlan,
		OutOfService:  r.OutOfService,
		UpdatedAt:     time.Now().UTC(),
	}
}
