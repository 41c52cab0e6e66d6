package utils

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
)

func BytesToHex(bytes []byte) string {
	return hex.EncodeToString(bytes)
}

// Base64URLEncode encodes with the URL alphabet and no padding.
func Base64URLEncode(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// Base64URLDecode decodes the URL alphabet. Trailing padding is tolerated so
// segments written by padding encoders still decode.
func Base64URLDecode(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}

// IsBase64URLChar reports whether c belongs to the base64url alphabet (padding included).
func IsBase64URLChar(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '-', c == '_', c == '=':
		return true
	}
	return false
}
