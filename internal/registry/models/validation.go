package models

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"ledgerreg/pkg/domain"
)

// KindSpec holds the field bounds of one record kind.
type KindSpec[P any] struct {
	Kind Kind

	MaxIDLength int

	// VersionRequired enables the version check; MaxVersionLength bounds it.
	VersionRequired  bool
	MaxVersionLength int

	MaxProperties int
	// CheckProperty reports the first field of p that exceeds its bound.
	CheckProperty func(p P) error
}

// Validate runs every field check in order: id, version, properties, owner.
// Later checks assume the earlier ones passed, so the order is fixed.
func (k KindSpec[P]) Validate(p RecordParams[P]) error {
	if err := ValidateID(p.ID, k.MaxIDLength); err != nil {
		return err
	}
	if k.VersionRequired {
		if err := ValidateVersion(p.Version, k.MaxVersionLength); err != nil {
			return err
		}
	}
	if err := ValidateProperties(p.Properties, k.MaxProperties, k.CheckProperty); err != nil {
		return err
	}
	return ValidateOwner(p.Owner)
}

// ValidateID fails with ErrIDMissing when id is empty, ErrIDTooLong past max
// bytes and ErrInvalidText when it is not storable text.
func ValidateID(id RecordID, max int) error {
	if len(id) == 0 {
		return ErrIDMissing
	}
	if len(id) > max {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrIDTooLong, len(id), max)
	}
	return checkText("id", string(id))
}

// ValidateVersion fails with ErrVersionMissing when version is empty and with
// ErrVersionTooLong past max bytes; the bound is enforced, not advisory. A max
// of zero leaves the length unbounded.
func ValidateVersion(version string, max int) error {
	if len(version) == 0 {
		return ErrVersionMissing
	}
	if max > 0 && len(version) > max {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrVersionTooLong, len(version), max)
	}
	return checkText("version", version)
}

// ValidateOwner fails with ErrOwnerMissing for the zero account, which no
// backend can index or read back.
func ValidateOwner(owner domain.Account) error {
	if owner.IsZero() {
		return ErrOwnerMissing
	}
	return nil
}

// ValidateProperties checks the count before any individual property, so an
// oversized list fails with ErrTooManyProperties even when every entry is valid.
// A nil list is always valid.
func ValidateProperties[P any](props []P, max int, check func(P) error) error {
	if props == nil {
		return nil
	}
	if len(props) > max {
		return fmt.Errorf("%w: %d exceeds %d", ErrTooManyProperties, len(props), max)
	}
	if check == nil {
		return nil
	}
	for _, p := range props {
		if err := check(p); err != nil {
			return err
		}
	}
	return nil
}

// CheckField returns reason when value is longer than max bytes and
// ErrInvalidText when it is not storable text. name labels the error.
func CheckField(name, value string, max int, reason error) error {
	if len(value) > max {
		return fmt.Errorf("%w: %d bytes exceeds %d", reason, len(value), max)
	}
	return checkText(name, value)
}

// checkText admits valid UTF-8 without NUL bytes: PostgreSQL TEXT and JSONB
// reject NUL, and JSON encoding rewrites invalid UTF-8.
func checkText(name, value string) error {
	if !utf8.ValidString(value) {
		return fmt.Errorf("%w: %s is not valid UTF-8", ErrInvalidText, name)
	}
	if strings.IndexByte(value, 0) >= 0 {
		return fmt.Errorf("%w: %s contains a NUL byte", ErrInvalidText, name)
	}
	return nil
}
