package models

import (
	"time"

	"ledgerreg/pkg/domain"
)

// RecordRegistered is deposited in the event sink for every admission.
// Consumers observe it only after the admission committed.
type RecordRegistered struct {
	Kind         Kind               `json:"kind"`
	Signer       domain.Account     `json:"signer"`
	ID           RecordID           `json:"id"`
	ContentHash  domain.ContentHash `json:"content_hash"`
	Version      string             `json:"version,omitempty"`
	RegisteredAt time.Time          `json:"registered_at"`
}

// EventType is the name consumers route on, e.g. "credential_registered".
func (e RecordRegistered) EventType() string {
	return string(e.Kind) + "_registered"
}
