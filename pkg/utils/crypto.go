package utils

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// RandomHex returns n random bytes hex-encoded.
func RandomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// SignHMAC returns the hex HMAC-SHA256 of body under secret.
func SignHMAC(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHMAC compares signature against the expected HMAC in constant time.
func VerifyHMAC(secret string, body []byte, signature string) bool {
	expected := SignHMAC(secret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}
