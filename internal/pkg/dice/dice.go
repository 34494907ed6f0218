// Package dice provides the randomness abstraction shared by the duel engine,
// the mini-games, and labour.
package dice

import (
	"crypto/rand"
	"math/big"
	"sync"
)

// Source is the randomness provider.
//
// Implementations must be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

type cryptoSource struct{}

// NewCryptoSource returns a Source backed by crypto/rand.
func NewCryptoSource() Source {
	return cryptoSource{}
}

// Intn returns a cryptographically secure random int in [0, n).
//
// Precondition: n > 0. Panics if n <= 0 or crypto/rand fails.
func (cryptoSource) Intn(n int) int {
	if n <= 0 {
		panic("dice: Intn called with n <= 0")
	}
	val, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("dice: crypto/rand failure: " + err.Error())
	}
	return int(val.Int64())
}

// Roll returns a die result in [1, sides].
func Roll(src Source, sides int) int {
	return src.Intn(sides) + 1
}

// Between returns a uniform value in [lo, hi].
//
// Precondition: lo <= hi.
func Between(src Source, lo, hi int) int {
	return lo + src.Intn(hi-lo+1)
}

// Chance reports true with the given percent probability.
func Chance(src Source, percent int) bool {
	return src.Intn(100) < percent
}

// Sequence replays fixed Intn results in order, each clamped into [0, n).
// It panics when exhausted. Used to script outcomes in tests.
type Sequence struct {
	mu     sync.Mutex
	values []int
}

// NewSequence returns a Sequence over values.
func NewSequence(values ...int) *Sequence {
	return &Sequence{values: values}
}

// Intn returns the next scripted value.
func (s *Sequence) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.values) == 0 {
		panic("dice: sequence exhausted")
	}
	v := s.values[0]
	s.values = s.values[1:]
	return min(max(v, 0), n-1)
}

// Remaining returns how many scripted values have not been consumed.
func (s *Sequence) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values)
}
