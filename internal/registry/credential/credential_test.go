package credential

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"ledgerreg/internal/registry/models"
	"ledgerreg/pkg/domain"
)

var holder = domain.AccountFromSeed("holder")

func TestSpec(t *testing.T) {
	t.Run("accepts a subject at the bound", func(t *testing.T) {
		err := Spec.Validate(Params{
			ID:         "C1",
			Owner:      holder,
			Properties: []Property{{Subject: strings.Repeat("s", SubjectMaxLength)}},
		})
		require.NoError(t, err)
	})

	t.Run("rejects a 49-byte subject", func(t *testing.T) {
		err := Spec.Validate(Params{
			ID:         "C1",
			Properties: []Property{{Subject: strings.Repeat("s", 49)}},
		})
		require.ErrorIs(t, err, models.ErrInvalidSubject)
	})

	t.Run("allows a single property", func(t *testing.T) {
		err := Spec.Validate(Params{
			ID:         "C1",
			Properties: []Property{{Subject: "a"}, {Subject: "b"}},
		})
		require.ErrorIs(t, err, models.ErrTooManyProperties)
	})

	t.Run("does not require a version", func(t *testing.T) {
		require.NoError(t, Spec.Validate(Params{ID: "C1", Owner: holder}))
	})

	t.Run("rejects a subject with a NUL byte", func(t *testing.T) {
		err := Spec.Validate(Params{
			ID:         "C1",
			Owner:      holder,
			Properties: []Property{{Subject: "ali\x00ce"}},
		})
		require.ErrorIs(t, err, models.ErrInvalidText)
	})

	t.Run("requires an owner", func(t *testing.T) {
		require.ErrorIs(t, Spec.Validate(Params{ID: "C1"}), models.ErrOwnerMissing)
	})
}
