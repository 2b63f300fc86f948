package pay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifyHMAC validates a signature using HMAC-SHA256.
func VerifyHMAC(body []byte, signature, secret string) bool {
	sigBytes, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(computeHMAC(body, secret), sigBytes)
}

// SignHMAC returns the hex encoded HMAC-SHA256 of body.
func SignHMAC(body []byte, secret string) string {
	return hex.EncodeToString(computeHMAC(body, secret))
}

func computeHMAC(body []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}
