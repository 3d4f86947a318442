// Package filecode generates short random tokens for naming scratch files.
package filecode

import (
	"encoding/base32"

	"github.com/google/uuid"
)

// CodeLength is the length of every code returned by RandomFileCode
const CodeLength = 13

// Lowercase only, so codes survive case-insensitive filesystems
var encoding = base32.NewEncoding("abcdefghijklmnopqrstuvwxyz234567").WithPadding(base32.NoPadding)

// RandomFileCode returns a 13 character code drawn from [a-z2-7].
// Carries 64 bits of entropy: enough to keep scratch names apart, not
// meant as a secret or a global identifier.
func RandomFileCode() string {
	return fold(uuid.New())
}

// NewScratchName returns prefix + RandomFileCode() + ext
func NewScratchName(prefix, ext string) string {
	return prefix + RandomFileCode() + ext
}

// fold XORs the two halves of id into 8 bytes and encodes them
func fold(id uuid.UUID) string {
	var b [8]byte
	for i := range b {
		b[i] = id[i] ^ id[i+8]
	}
	return encoding.EncodeToString(b[:])
}
