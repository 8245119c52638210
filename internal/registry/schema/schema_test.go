package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"ledgerreg/internal/registry/models"
	"ledgerreg/pkg/domain"
)

func TestSpec(t *testing.T) {
	valid := Property{Name: "Test Schema", Description: "Lorem ipsum dolor sit amet"}
	owner := domain.AccountFromSeed("Dhiway Test")

	tests := []struct {
		name   string
		params Params
		want   error
	}{
		{"valid with four properties", Params{ID: "S1", Owner: owner, Version: "TS-v1.0", Properties: []Property{valid, valid, valid, valid}}, nil},
		{"version required", Params{ID: "S1"}, models.ErrVersionMissing},
		{"version bound", Params{ID: "S1", Version: "TS-v1.0.1"}, models.ErrVersionTooLong},
		{"five properties", Params{ID: "S1", Version: "v1", Properties: []Property{valid, valid, valid, valid, valid}}, models.ErrTooManyProperties},
		{"long name", Params{ID: "S1", Version: "v1", Properties: []Property{{Name: strings.Repeat("n", 25)}}}, models.ErrInvalidName},
		{"long description", Params{ID: "S1", Version: "v1", Properties: []Property{{Name: "n", Description: strings.Repeat("d", 257)}}}, models.ErrInvalidDescription},
		{"name checked before description", Params{ID: "S1", Version: "v1", Properties: []Property{{Name: strings.Repeat("n", 25), Description: strings.Repeat("d", 257)}}}, models.ErrInvalidName},
		{"description not UTF-8", Params{ID: "S1", Version: "v1", Properties: []Property{{Name: "n", Description: "\xff\xfe"}}}, models.ErrInvalidText},
		{"version with NUL", Params{ID: "S1", Version: "v\x001"}, models.ErrInvalidText},
		{"owner required", Params{ID: "S1", Version: "v1", Properties: []Property{valid}}, models.ErrOwnerMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Spec.Validate(tt.params)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
		})
	}
}
