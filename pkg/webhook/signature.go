// Package webhook implements signature verification for inbound webhook
// deliveries. The scheme is HMAC-SHA256 over "timestamp.payload", the format
// used by Stripe and most major webhook providers.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultTolerance is the maximum accepted age of a signed payload.
// Matches the replay window most billing providers document.
const DefaultTolerance = 5 * time.Minute

// Signature carries the parsed parts of a signature header.
type Signature struct {
	Timestamp int64
	V1        string
}

// ParseSignatureHeader parses a "t=<unix>,v1=<hex>" style header as sent in
// the Stripe-Signature header. Unknown key/value pairs are ignored so newer
// scheme versions do not break verification of v1.
func ParseSignatureHeader(header string) (Signature, error) {
	var sig Signature
	for _, part := range strings.Split(header, ",") {
		k, v, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch k {
		case "t":
			ts, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return Signature{}, fmt.Errorf("%w: invalid timestamp", ErrInvalidSignatureHeader)
			}
			sig.Timestamp = ts
		case "v1":
			sig.V1 = v
		}
	}
	if sig.V1 == "" || sig.Timestamp == 0 {
		return Signature{}, fmt.Errorf("%w: missing required parts", ErrInvalidSignatureHeader)
	}
	return sig, nil
}

// Sign computes the hex HMAC-SHA256 signature of "timestamp.payload".
// Exposed so tests and outbound deliveries can produce valid headers.
func Sign(secret string, payload []byte, timestamp int64) string {
	h := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(h, "%d.", timestamp)
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// SignatureHeader formats a full "t=...,v1=..." header for the given payload.
func SignatureHeader(secret string, payload []byte, timestamp int64) string {
	return fmt.Sprintf("t=%d,v1=%s", timestamp, Sign(secret, payload, timestamp))
}

// Verify validates webhook authenticity. The raw request body must be passed
// untouched; any re-serialization breaks the signature. Uses constant-time
// comparison and rejects payloads outside the tolerance window to prevent
// replay.
func Verify(secret string, payload []byte, header string, tolerance time.Duration) error {
	if secret == "" {
		return fmt.Errorf("%w: secret is required", ErrInvalidConfiguration)
	}
	if len(payload) == 0 {
		return fmt.Errorf("%w: payload cannot be empty", ErrInvalidPayload)
	}

	sig, err := ParseSignatureHeader(header)
	if err != nil {
		return err
	}

	if tolerance > 0 {
		age := time.Since(time.Unix(sig.Timestamp, 0))
		if age > tolerance {
			return fmt.Errorf("%w: signature timestamp too old: %v", ErrSignatureMismatch, age)
		}
		if age < -1*time.Minute {
			return fmt.Errorf("%w: signature timestamp is in the future", ErrSignatureMismatch)
		}
	}

	expected := Sign(secret, payload, sig.Timestamp)
	if !hmac.Equal([]byte(expected), []byte(sig.V1)) {
		return fmt.Errorf("%w: signature mismatch", ErrSignatureMismatch)
	}

	return nil
}
