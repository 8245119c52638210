// Package schema configures the schema registry: versioned credential schemas
// published once by an organization and referenced by content hash.
package schema

import "ledgerreg/internal/registry/models"

// Field bounds.
const (
	IDMaxLength          = 24
	VersionMaxLength     = 8
	NameMaxLength        = 24
	DescriptionMaxLength = 256
	MaxProperties        = 4
)

// Property names and describes one schema attribute.
type Property struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Schema is an admitted schema record.
type Schema = models.Record[Property]

// Params are the caller-supplied fields of a schema registration.
type Params = models.RecordParams[Property]

// Spec is the schema kind's validation configuration.
var Spec = models.KindSpec[Property]{
	Kind:             models.KindSchema,
	MaxIDLength:      IDMaxLength,
	VersionRequired:  true,
	MaxVersionLength: VersionMaxLength,
	MaxProperties:    MaxProperties,
	CheckProperty:    checkProperty,
}

// checkProperty checks the name before the description.
func checkProperty(p Property) error {
	if err := models.CheckField("name", p.Name, NameMaxLength, models.ErrInvalidName); err != nil {
		return err
	}
	return models.CheckField("description", p.Description, DescriptionMaxLength, models.ErrInvalidDescription)
}
