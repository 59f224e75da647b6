package domain

import (
	"strconv"
	"strings"
	"unicode/utf8"

	dErrors "custody/pkg/domain-errors"
)

// maxPrincipalLength bounds principal identifiers accepted at trust boundaries.
const maxPrincipalLength = 128

// VaultID identifies a vault. IDs are allocated by the registry starting at 1;
// zero is never a valid vault.
type VaultID uint64

// ParseVaultID constructs a VaultID from external input.
//
// Errors: returns CodeInvalidInput when the value is empty, not a base-10
// unsigned integer or zero.
func ParseVaultID(s string) (VaultID, error) {
	if s == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "vault id cannot be empty")
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "vault id must be a positive integer")
	}
	if n == 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "vault id must be a positive integer")
	}
	return VaultID(n), nil
}

func (v VaultID) IsNil() bool {
	return v == 0
}

func (v VaultID) String() string {
	return strconv.FormatUint(uint64(v), 10)
}

// PrincipalID identifies a caller: a vault creator, guardian or depositor.
// It is opaque to the custody core; the HTTP layer takes it from the token subject.
type PrincipalID string

// ParsePrincipalID constructs a PrincipalID from external input.
// Surrounding whitespace is trimmed.
//
// Errors: returns CodeInvalidInput for empty, oversized or non-UTF8 input.
func ParsePrincipalID(s string) (PrincipalID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "principal cannot be empty")
	}
	if !utf8.ValidString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "principal must be valid UTF-8")
	}
	if len(s) > maxPrincipalLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "principal must be 128 characters or less")
	}
	return PrincipalID(s), nil
}

func (p PrincipalID) IsNil() bool {
	return p == ""
}

func (p PrincipalID) String() string {
	return string(p)
}

// AssetID identifies the fungible asset a vault holds in custody.
type AssetID string

// ParseAssetID constructs an AssetID from external input.
func ParseAssetID(s string) (AssetID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "asset cannot be empty")
	}
	if len(s) > maxPrincipalLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "asset must be 128 characters or less")
	}
	return AssetID(s), nil
}

func (a AssetID) IsNil() bool {
	return a == ""
}

func (a AssetID) String() string {
	return string(a)
}

// Address is a storage or token account location handed out by the account
// directory. Addresses are content-addressed from their seed components.
type Address string

// ParseAddress constructs an Address from external input.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "address cannot be empty")
	}
	return Address(s), nil
}

func (a Address) IsNil() bool {
	return a == ""
}

func (a Address) String() string {
	return string(a)
}
