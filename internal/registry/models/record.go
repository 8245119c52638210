// Package models defines the registry record shared by every record kind,
// the field validators and the record builder.
package models

import (
	"slices"
	"time"

	"ledgerreg/pkg/domain"
)

// Kind names a registry instance.
type Kind string

const (
	KindCredential Kind = "credential"
	KindSchema     Kind = "schema"
)

// RecordID is the primary key of a record. Its length is measured in bytes.
type RecordID string

// Record is an admitted registry entry. P is the kind-specific property shape.
//
// Invariants:
//   - ID is 1..MaxIDLength bytes and unique within its registry
//   - Properties is nil when the caller supplied none
//   - Nothing mutates a Record once it has been admitted
type Record[P any] struct {
	ID           RecordID           `json:"id"`
	Owner        domain.Account     `json:"owner"`
	ContentHash  domain.ContentHash `json:"content_hash"`
	Version      string             `json:"version,omitempty"`
	Properties   []P                `json:"properties"`
	RegisteredAt time.Time          `json:"registered_at"`
}

// Clone returns a copy that shares no mutable state with r.
func (r *Record[P]) Clone() *Record[P] {
	if r == nil {
		return nil
	}
	c := *r
	c.Properties = cloneProperties(r.Properties)
	return &c
}

// RecordParams are the caller-supplied fields of a registration.
type RecordParams[P any] struct {
	ID          RecordID
	Owner       domain.Account
	ContentHash domain.ContentHash
	Version     string
	Properties  []P
}

// TimestampPrecision is the finest unit every backend stores (PostgreSQL keeps
// microseconds).
const TimestampPrecision = time.Microsecond

// NewRecord assembles a record from parameters that already passed validation.
// It performs no checks of its own; registeredAt is the ledger clock reading
// taken for this call, stored in UTC at TimestampPrecision so the record reads
// back identically from every backend.
func NewRecord[P any](p RecordParams[P], registeredAt time.Time) *Record[P] {
	return &Record[P]{
		ID:           p.ID,
		Owner:        p.Owner,
		ContentHash:  p.ContentHash,
		Version:      p.Version,
		Properties:   cloneProperties(p.Properties),
		RegisteredAt: registeredAt.UTC().Truncate(TimestampPrecision),
	}
}

func cloneProperties[P any](props []P) []P {
	if props == nil {
		return nil
	}
	return slices.Clone(props)
}
