package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

func GenerateCode(n int) (string, error) {
	// Make a slice of nBytes random bytes.
	byt := make([]byte, n)

	// Read into the slice.
	if _, err := rand.Read(byt); err != nil {
		return "", err
	}

	// Return the hexadecimal string.
	return strings.ToUpper(hex.EncodeToString(byt)), nil
}

// NewHoldID returns a reservation identifier like hold_3F2A9C4D11E0B7F6.
func NewHoldID() (string, error) {
	code, err := GenerateCode(8)
	if err != nil {
		return "", err
	}
	return "hold_" + code, nil
}
