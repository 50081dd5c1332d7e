// Package security keeps credentials out of logs, errors, and git command output.
package security

import (
	"fmt"
	"strings"
)

const (
	minTokenLengthForPartialMask = 8
	maskShowChars                = 4
	maskEmpty                    = "[empty]"
	maskRedacted                 = "[redacted]"
)

// SecureToken wraps a GitHub token so that formatting it with %s, %v or %#v never
// prints the secret.
//
//	token := NewSecureToken("ghp_abcdef123456")
//	fmt.Printf("%s", token) // [token:****3456]
type SecureToken struct {
	value string
}

// NewSecureToken creates a new SecureToken from a string value.
func NewSecureToken(token string) SecureToken {
	return SecureToken{value: token}
}

// String implements fmt.Stringer and returns a masked representation.
func (t SecureToken) String() string {
	if t.value == "" {
		return maskEmpty
	}
	if len(t.value) < minTokenLengthForPartialMask {
		return maskRedacted
	}
	return fmt.Sprintf("[token:****%s]", t.value[len(t.value)-maskShowChars:])
}

// GoString implements fmt.GoStringer so %#v is masked as well.
func (t SecureToken) GoString() string {
	return t.String()
}

// Value returns the raw token. Only pass it to authentication code.
func (t SecureToken) Value() string {
	return t.value
}

// IsEmpty returns true if the token is empty.
func (t SecureToken) IsEmpty() bool {
	return t.value == ""
}

// RedactIn replaces every literal occurrence of the token in s with its masked form.
// Git prints the remote URL (which embeds the token) in several error messages, and
// those do not always match the generic token patterns.
func (t SecureToken) RedactIn(s string) string {
	if t.value == "" {
		return s
	}
	return strings.ReplaceAll(s, t.value, t.String())
}
