// Package id mints ULIDs for transactions and backtest runs.
//
// IDs carry a timestamp, so a transaction stamped with its simulated fill
// time sorts with the session it belongs to rather than with wall-clock time.
package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator is a goroutine-safe monotonic ULID source.
type Generator struct {
	mu      sync.Mutex
	entropy io.Reader
}

// NewGenerator returns a Generator seeded with seed. A zero seed draws one
// from crypto/rand.
func NewGenerator(seed int64) *Generator {
	if seed == 0 {
		_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
	}
	return &Generator{entropy: ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)}
}

// At returns an ID stamped with t. IDs minted for the same millisecond stay
// in creation order.
func (g *Generator) At(t time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(t.UTC()), g.entropy)
	if err != nil {
		// only on entropy overflow within one millisecond
		panic(err)
	}
	return id.String()
}

var std = NewGenerator(0)

// New returns an ID stamped with the current time.
func New() string { return std.At(time.Now()) }

// At returns an ID stamped with t from the package generator.
func At(t time.Time) string { return std.At(t) }

// Time extracts the timestamp of an ID, to millisecond precision.
func Time(s string) (time.Time, error) {
	u, err := ulid.ParseStrict(s)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(u.Time()).UTC(), nil
}
