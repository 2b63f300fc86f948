package pay

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader is the HTTP header carrying the provider signature.
const SignatureHeader = "Payment-Signature"

// DefaultTolerance bounds the age of a signed webhook.
const DefaultTolerance = 5 * time.Minute

var (
	ErrMissingSignature = errors.New("pay: missing signature header")
	ErrMalformedHeader  = errors.New("pay: malformed signature header")
	ErrBadSignature     = errors.New("pay: signature mismatch")
	ErrStaleTimestamp   = errors.New("pay: signature timestamp outside tolerance")
)

// SignedHeader holds the parsed components of a signature header.
type SignedHeader struct {
	Timestamp  time.Time
	Signatures []string
}

// ParseSignatureHeader parses a header of the form "t=<unix>,v1=<hex>[,v1=<hex>]".
func ParseSignatureHeader(header string) (SignedHeader, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return SignedHeader{}, ErrMissingSignature
	}
	var out SignedHeader
	var haveTS bool
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return SignedHeader{}, ErrMalformedHeader
		}
		switch key {
		case "t":
			unix, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return SignedHeader{}, fmt.Errorf("%w: timestamp: %v", ErrMalformedHeader, err)
			}
			out.Timestamp = time.Unix(unix, 0)
			haveTS = true
		case "v1":
			out.Signatures = append(out.Signatures, value)
		}
	}
	if !haveTS || len(out.Signatures) == 0 {
		return SignedHeader{}, ErrMalformedHeader
	}
	return out, nil
}

// VerifySignature checks header against body. The signed payload is
// "<timestamp>.<body>" and the timestamp must be within tolerance of now.
func VerifySignature(body []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	sh, err := ParseSignatureHeader(header)
	if err != nil {
		return err
	}
	if tolerance > 0 {
		age := now.Sub(sh.Timestamp)
		if age > tolerance || age < -tolerance {
			return ErrStaleTimestamp
		}
	}
	payload := signedPayload(sh.Timestamp, body)
	for _, sig := range sh.Signatures {
		if VerifyHMAC(payload, sig, secret) {
			return nil
		}
	}
	return ErrBadSignature
}

// SignatureFor builds a header value for body signed at ts.
func SignatureFor(body []byte, secret string, ts time.Time) string {
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), SignHMAC(signedPayload(ts, body), secret))
}

func signedPayload(ts time.Time, body []byte) []byte {
	prefix := strconv.FormatInt(ts.Unix(), 10) + "."
	payload := make([]byte, 0, len(prefix)+len(body))
	payload = append(payload, prefix...)
	return append(payload, body...)
}
