// Package credential configures the credential registry: records that tie a
// signed credential's content hash to the issuing organization's account.
package credential

import "ledgerreg/internal/registry/models"

// Field bounds.
const (
	IDMaxLength      = 24
	SubjectMaxLength = 48
	MaxProperties    = 1
)

// Property is the optional subject attached to a credential.
type Property struct {
	Subject string `json:"subject"`
}

// Credential is an admitted credential record.
type Credential = models.Record[Property]

// Params are the caller-supplied fields of a credential registration.
type Params = models.RecordParams[Property]

// Spec is the credential kind's validation configuration.
var Spec = models.KindSpec[Property]{
	Kind:          models.KindCredential,
	MaxIDLength:   IDMaxLength,
	MaxProperties: MaxProperties,
	CheckProperty: checkProperty,
}

func checkProperty(p Property) error {
	return models.CheckField("subject", p.Subject, SubjectMaxLength, models.ErrInvalidSubject)
}
