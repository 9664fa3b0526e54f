package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FreshnessWindow is the maximum allowed clock skew between the request
// timestamp and the server clock. Older requests are treated as replays.
const FreshnessWindow = 5 * time.Minute

// Params carries everything needed to verify one request.
// Keys are supplied per call; the package holds no state.
type Params struct {
	Signature  string
	Timestamp  string
	Nonce      string
	Body       []byte
	EncryptKey string
}

// Result is the outcome of a verification
type Result struct {
	Valid     bool
	Err       string
	Timestamp string
}

// Sign computes the expected signature for a request:
// lowercase hex HMAC-SHA256 over timestamp + nonce + body
func Sign(timestamp, nonce string, body []byte, encryptKey string) string {
	mac := hmac.New(sha256.New, []byte(encryptKey))
	mac.Write([]byte(timestamp))
	mac.Write([]byte(nonce))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks the authenticity and freshness of a request
func Verify(p Params) Result {
	return VerifyAt(p, time.Now())
}

// VerifyAt is Verify with an explicit clock.
// Missing headers reject before any HMAC is computed, and freshness is
// checked as a precondition so stale requests are rejected regardless
// of signature validity. Signature comparison is constant-time on the
// decoded bytes; malformed hex is invalid, never a panic.
func VerifyAt(p Params, now time.Time) Result {
	if p.Signature == "" || p.Timestamp == "" || p.Nonce == "" {
		return Result{Err: "missing signature, timestamp or nonce header"}
	}

	ts, err := strconv.ParseInt(p.Timestamp, 10, 64)
	if err != nil {
		return Result{Err: fmt.Sprintf("invalid request timestamp: %q", p.Timestamp), Timestamp: p.Timestamp}
	}

	age := now.Unix() - ts
	if age < 0 {
		age = -age
	}
	if age > int64(FreshnessWindow/time.Second) {
		return Result{
			Err:       fmt.Sprintf("request timestamp outside freshness window: %ds old", age),
			Timestamp: p.Timestamp,
		}
	}

	expected, err := hex.DecodeString(Sign(p.Timestamp, p.Nonce, p.Body, p.EncryptKey))
	if err != nil {
		return Result{Err: "computing expected signature", Timestamp: p.Timestamp}
	}

	received, err := hex.DecodeString(strings.ToLower(p.Signature))
	if err != nil {
		return Result{Err: "malformed signature encoding", Timestamp: p.Timestamp}
	}

	if subtle.ConstantTimeCompare(expected, received) != 1 {
		return Result{Err: "signature mismatch", Timestamp: p.Timestamp}
	}

	return Result{Valid: true, Timestamp: p.Timestamp}
}
