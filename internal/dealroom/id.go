package dealroom

import (
	"crypto/rand"
	"fmt"
	mathrand "math/rand"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// IDProvider issues identifiers for persisted records.
type IDProvider interface {
	NewID() (string, error)
}

type uuidProvider struct{}

// NewUUIDProvider constructs an IDProvider that issues UUIDv7 identifiers.
func NewUUIDProvider() IDProvider {
	return &uuidProvider{}
}

func (p *uuidProvider) NewID() (string, error) {
	value, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return value.String(), nil
}

const tokenAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// RandomToken returns a base36 token of the given length. Uniqueness is
// practical, not cryptographic: these tokens are always paired with a
// millisecond timestamp in generated identifiers.
func RandomToken(length int) string {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails when the platform source is broken; fall
		// back to a clock-seeded generator so identifier generation never
		// errors out.
		fallbackFill(buf)
	}
	for i := range buf {
		buf[i] = tokenAlphabet[int(buf[i])%len(tokenAlphabet)]
	}
	return string(buf)
}

var fallbackSequence atomic.Int64

// fallbackFill derives pseudo-random bytes from the clock. The sequence
// counter keeps two fills within the same nanosecond from colliding.
func fallbackFill(buf []byte) {
	seed := time.Now().UnixNano() + fallbackSequence.Add(1)
	rng := mathrand.New(mathrand.NewSource(seed))
	for i := range buf {
		buf[i] = byte(rng.Intn(256))
	}
}

func prefixedID(prefix string, now time.Time) string {
	return fmt.Sprintf("%s_%s_%s", prefix, strconv.FormatInt(now.UnixMilli(), 36), RandomToken(9))
}

// NewDraftID issues a draft identifier of the form draft_<ts>_<token>.
func NewDraftID(now time.Time) string {
	return prefixedID("draft", now)
}

// NewSessionID issues a session identifier of the form session_<ts>_<token>.
func NewSessionID(now time.Time) string {
	return prefixedID("session", now)
}

// NewConflictID issues a conflict identifier of the form conflict_<ts>_<token>.
func NewConflictID(now time.Time) string {
	return prefixedID("conflict", now)
}
