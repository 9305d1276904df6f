package domain

import (
	"crypto/rand"
	"math/big"
	"time"
)

// Clock abstracts time retrieval so mutations are deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// Millis converts t to Unix milliseconds, the timestamp unit of Bookmark.
func Millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

// IDGenerator abstracts bookmark id generation.
type IDGenerator interface {
	New() string
}

const (
	base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	randomIDLength = 13
)

// Base36IDs produces short random base-36 ids. Collisions are possible but
// negligible; no uniqueness check is performed.
type Base36IDs struct{}

func (Base36IDs) New() string {
	max := big.NewInt(int64(len(base36Alphabet)))
	buf := make([]byte, randomIDLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand never fails on supported platforms
			panic(err)
		}
		buf[i] = base36Alphabet[n.Int64()]
	}
	return string(buf)
}
