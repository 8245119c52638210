// Package domain holds the value types shared by every registry kind.
//
// Accounts and content hashes cross the trust boundary as hex strings; the Parse
// functions are the only way to turn caller input into these types.
package domain

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	dErrors "ledgerreg/pkg/domain-errors"
)

// Account identifies a ledger account (20 bytes). The zero Account means "unset".
type Account common.Address

// ContentHash is the opaque, caller-supplied 32-byte digest of a record's content.
// It is never recomputed or verified.
type ContentHash common.Hash

// ParseAccount parses a 0x-prefixed 20-byte hex account.
func ParseAccount(s string) (Account, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Account{}, dErrors.New(dErrors.CodeInvalidInput, "account is required")
	}
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return Account{}, dErrors.New(dErrors.CodeInvalidInput, "account must be 0x-prefixed hex")
	}
	if !common.IsHexAddress(s) {
		return Account{}, dErrors.New(dErrors.CodeInvalidInput, "account must be 20 bytes of hex")
	}
	a := Account(common.HexToAddress(s))
	if a.IsZero() {
		return Account{}, dErrors.New(dErrors.CodeInvalidInput, "account must not be the zero address")
	}
	return a, nil
}

// MustAccount is ParseAccount for constants and tests.
func MustAccount(s string) Account {
	a, err := ParseAccount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AccountFromSeed derives a deterministic account from a human-readable seed, the
// way development tooling names accounts ("Alice", "Dhiway Test").
func AccountFromSeed(seed string) Account {
	return Account(common.BytesToAddress(crypto.Keccak256([]byte(seed))))
}

// AccountFromBytes converts stored bytes back into an Account. Longer input is
// cropped from the left, as common.BytesToAddress does.
func AccountFromBytes(b []byte) Account {
	return Account(common.BytesToAddress(b))
}

func (a Account) String() string {
	return common.Address(a).Hex()
}

func (a Account) IsZero() bool {
	return a == Account{}
}

func (a Account) Bytes() []byte {
	return common.Address(a).Bytes()
}

// MarshalText writes the checksummed form, the same text String returns.
func (a Account) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Account) UnmarshalText(text []byte) error {
	parsed, err := ParseAccount(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseContentHash parses a 0x-prefixed 32-byte hex digest.
func ParseContentHash(s string) (ContentHash, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ContentHash{}, dErrors.New(dErrors.CodeInvalidInput, "content hash is required")
	}
	raw, err := hexutil.Decode(s)
	if err != nil {
		return ContentHash{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "content hash must be 0x-prefixed hex")
	}
	if len(raw) != common.HashLength {
		return ContentHash{}, dErrors.New(dErrors.CodeInvalidInput, "content hash must be 32 bytes")
	}
	return ContentHash(common.BytesToHash(raw)), nil
}

// MustContentHash is ParseContentHash for constants and tests.
func MustContentHash(s string) ContentHash {
	h, err := ParseContentHash(s)
	if err != nil {
		panic(err)
	}
	return h
}

// ContentHashFromUint64 builds a hash whose low 8 bytes hold v, big-endian.
func ContentHashFromUint64(v uint64) ContentHash {
	return ContentHash(common.BigToHash(new(big.Int).SetUint64(v)))
}

// ContentHashFromBytes converts stored bytes back into a ContentHash.
func ContentHashFromBytes(b []byte) ContentHash {
	return ContentHash(common.BytesToHash(b))
}

func (h ContentHash) String() string {
	return common.Hash(h).Hex()
}

func (h ContentHash) Bytes() []byte {
	return common.Hash(h).Bytes()
}

func (h ContentHash) MarshalText() ([]byte, error) {
	return common.Hash(h).MarshalText()
}

func (h *ContentHash) UnmarshalText(text []byte) error {
	parsed, err := ParseContentHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
