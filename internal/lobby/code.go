// internal/lobby/code.go
package lobby

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// RoomCodeAlphabet excludes lowercase so codes can be read out loud.
const RoomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// CodeGenerator produces candidate room identifiers.
type CodeGenerator func() (string, error)

// NanoidCodes returns a generator of uppercase alphanumeric codes of the given length.
func NanoidCodes(length int) CodeGenerator {
	if length <= 0 {
		length = 4
	}
	return func() (string, error) {
		return gonanoid.Generate(RoomCodeAlphabet, length)
	}
}
