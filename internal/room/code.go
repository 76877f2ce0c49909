package room

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// CodeAlphabet leaves out glyphs that are easy to misread (0/O, 1/I).
const (
	CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	CodeLength   = 6

	maxCodeAttempts = 32
)

type CodeGenerator func() (string, error)

// RandomCode draws CodeLength characters from CodeAlphabet. The alphabet has
// 32 symbols so masking a random byte is unbiased.
func RandomCode() (string, error) {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	for i, b := range buf {
		buf[i] = CodeAlphabet[int(b)&(len(CodeAlphabet)-1)]
	}
	return string(buf), nil
}

// ValidCode reports whether code could have been produced by RandomCode.
func ValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for _, c := range code {
		if !strings.ContainsRune(CodeAlphabet, c) {
			return false
		}
	}
	return true
}
