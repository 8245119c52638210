package models

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"ledgerreg/pkg/domain"
)

type labelProperty struct {
	Label string
}

var errLabelTooLong = errors.New("label too long")

var testSpec = KindSpec[labelProperty]{
	Kind:             "test",
	MaxIDLength:      24,
	VersionRequired:  true,
	MaxVersionLength: 8,
	MaxProperties:    2,
	CheckProperty: func(p labelProperty) error {
		return CheckField("label", p.Label, 4, errLabelTooLong)
	},
}

func TestValidateID(t *testing.T) {
	t.Run("rejects empty id", func(t *testing.T) {
		require.ErrorIs(t, ValidateID("", 24), ErrIDMissing)
	})

	t.Run("accepts id at the bound", func(t *testing.T) {
		require.NoError(t, ValidateID(RecordID(strings.Repeat("a", 24)), 24))
	})

	t.Run("rejects id past the bound", func(t *testing.T) {
		require.ErrorIs(t, ValidateID(RecordID(strings.Repeat("a", 25)), 24), ErrIDTooLong)
	})

	t.Run("measures bytes not runes", func(t *testing.T) {
		// 12 runes, 24 bytes
		require.NoError(t, ValidateID(RecordID(strings.Repeat("é", 12)), 24))
		// 13 runes, 26 bytes
		require.ErrorIs(t, ValidateID(RecordID(strings.Repeat("é", 13)), 24), ErrIDTooLong)
	})
}

func TestValidateVersion(t *testing.T) {
	require.ErrorIs(t, ValidateVersion("", 8), ErrVersionMissing)
	require.NoError(t, ValidateVersion("TS-v1.0", 8))
	require.ErrorIs(t, ValidateVersion("TS-v1.0.10", 8), ErrVersionTooLong)
	require.NoError(t, ValidateVersion("TS-v1.0.10", 0), "zero max leaves length unbounded")
}

func TestValidateID_StorableText(t *testing.T) {
	tests := map[string]RecordID{
		"invalid UTF-8":  "\xff\xfe",
		"NUL byte":       "C\x001",
		"truncated rune": RecordID("é"[:1]),
	}
	for name, id := range tests {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, ValidateID(id, 24), ErrInvalidText)
		})
	}
	require.NoError(t, ValidateID("did:cord:3x1é", 24))
}

func TestValidateOwner(t *testing.T) {
	require.ErrorIs(t, ValidateOwner(domain.Account{}), ErrOwnerMissing)
	require.NoError(t, ValidateOwner(domain.AccountFromSeed("Alice")))
}

func TestValidateProperties(t *testing.T) {
	check := testSpec.CheckProperty

	t.Run("nil list is valid", func(t *testing.T) {
		require.NoError(t, ValidateProperties[labelProperty](nil, 0, check))
	})

	t.Run("count fires before field checks", func(t *testing.T) {
		props := []labelProperty{{Label: "ok"}, {Label: "ok"}, {Label: "ok"}}
		require.ErrorIs(t, ValidateProperties(props, 2, check), ErrTooManyProperties)
	})

	t.Run("oversized field", func(t *testing.T) {
		props := []labelProperty{{Label: "toolong"}}
		require.ErrorIs(t, ValidateProperties(props, 2, check), errLabelTooLong)
	})
}

// TestKindSpecValidate_Precedence pins the order id -> version -> properties -> owner for
// inputs that break several rules at once.
func TestKindSpecValidate_Precedence(t *testing.T) {
	tooMany := []labelProperty{{Label: "toolong"}, {Label: "x"}, {Label: "y"}}

	tests := []struct {
		name   string
		params RecordParams[labelProperty]
		want   error
	}{
		{"empty id beats everything", RecordParams[labelProperty]{ID: "", Properties: tooMany}, ErrIDMissing},
		{"long id beats missing version", RecordParams[labelProperty]{ID: RecordID(strings.Repeat("x", 25))}, ErrIDTooLong},
		{"missing version beats properties", RecordParams[labelProperty]{ID: "S1", Properties: tooMany}, ErrVersionMissing},
		{"long version beats properties", RecordParams[labelProperty]{ID: "S1", Version: "123456789", Properties: tooMany}, ErrVersionTooLong},
		{"count beats field", RecordParams[labelProperty]{ID: "S1", Version: "v1", Properties: tooMany}, ErrTooManyProperties},
		{"properties beat missing owner", RecordParams[labelProperty]{ID: "S1", Version: "v1", Properties: []labelProperty{{Label: "toolong"}}}, errLabelTooLong},
		{"missing owner comes last", RecordParams[labelProperty]{ID: "S1", Version: "v1"}, ErrOwnerMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, testSpec.Validate(tt.params), tt.want)
		})
	}
}

func TestValidateID_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		id := rapid.SliceOf(rapid.Byte()).Draw(t, "id")
		err := ValidateID(RecordID(id), 24)
		switch {
		case len(id) == 0:
			if !errors.Is(err, ErrIDMissing) {
				t.Fatalf("empty id: got %v", err)
			}
		case len(id) > 24:
			if !errors.Is(err, ErrIDTooLong) {
				t.Fatalf("%d-byte id: got %v", len(id), err)
			}
		case !utf8.Valid(id) || bytes.IndexByte(id, 0) >= 0:
			if !errors.Is(err, ErrInvalidText) {
				t.Fatalf("unstorable id %q: got %v", id, err)
			}
		default:
			if err != nil {
				t.Fatalf("%d-byte id rejected: %v", len(id), err)
			}
		}
	})
}

func TestValidateProperties_CountIndependentOfFields(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(3, 16).Draw(t, "n")
		props := make([]labelProperty, n)
		for i := range props {
			props[i] = labelProperty{Label: rapid.StringN(0, 4, 4).Draw(t, "label")}
		}
		if err := ValidateProperties(props, 2, testSpec.CheckProperty); !errors.Is(err, ErrTooManyProperties) {
			t.Fatalf("%d valid properties: got %v", n, err)
		}
	})
}

func TestNewRecord(t *testing.T) {
	owner := domain.AccountFromSeed("Dhiway Test")
	hash := domain.ContentHashFromUint64(1)
	now := time.Unix(42, 0).UTC()
	props := []labelProperty{{Label: "a"}}

	rec := NewRecord(RecordParams[labelProperty]{
		ID:          "00012345600012",
		Owner:       owner,
		ContentHash: hash,
		Version:     "v1",
		Properties:  props,
	}, now)

	assert.Equal(t, RecordID("00012345600012"), rec.ID)
	assert.Equal(t, owner, rec.Owner)
	assert.Equal(t, hash, rec.ContentHash)
	assert.Equal(t, now, rec.RegisteredAt)

	props[0].Label = "b"
	assert.Equal(t, "a", rec.Properties[0].Label, "record must not alias caller slices")

	unset := NewRecord(RecordParams[labelProperty]{}, time.Time{})
	assert.Nil(t, unset.Properties)
	assert.True(t, unset.Owner.IsZero())
	assert.True(t, unset.RegisteredAt.IsZero())
}

func TestNewRecord_TimestampPrecision(t *testing.T) {
	// one zone and sub-microsecond digits in, UTC microseconds out
	reading := time.Date(2024, 3, 1, 14, 0, 0, 123456789, time.FixedZone("CET", 2*60*60))

	rec := NewRecord(RecordParams[labelProperty]{ID: "x"}, reading)

	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 123456000, time.UTC), rec.RegisteredAt)
	assert.True(t, rec.RegisteredAt.Equal(reading.Truncate(TimestampPrecision)))
}

func TestReasonOf(t *testing.T) {
	assert.Equal(t, "id_too_long", ReasonOf(ValidateID(RecordID(strings.Repeat("x", 30)), 24)))
	assert.Equal(t, "invalid_text", ReasonOf(ValidateID("\x00", 24)))
	assert.Equal(t, "owner_missing", ReasonOf(ValidateOwner(domain.Account{})))
	assert.Equal(t, "internal", ReasonOf(errors.New("boom")))
}
