package utils

import (
	"crypto"
	"crypto/hmac"
	"crypto/sha256"
)

// Hash message using SHA256
func SHA256(msg []byte) []byte {
	newhash := crypto.SHA256
	pssh := newhash.New()
	pssh.Write(msg)
	return pssh.Sum(nil)
}

// HMACSHA256 computes the HMAC-SHA256 of msg under key.
func HMACSHA256(key []byte, msg []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(msg)
	return mac.Sum(nil)
}

// VerifyHMAC recomputes the HMAC of msg and compares it to signature in
// constant time.
func VerifyHMAC(key []byte, msg []byte, signature []byte) bool {
	expected := HMACSHA256(key, msg)
	return hmac.Equal(expected, signature)
}
