package dice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestCryptoSource_Range(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 1000).Draw(rt, "n")
		v := NewCryptoSource().Intn(n)
		if v < 0 || v >= n {
			rt.Fatalf("Intn(%d) = %d out of range", n, v)
		}
	})
}

func TestCryptoSource_PanicsOnNonPositive(t *testing.T) {
	assert.Panics(t, func() { NewCryptoSource().Intn(0) })
}

func TestHelpers(t *testing.T) {
	src := NewSequence(0, 11, 5, 69, 70)

	assert.Equal(t, 1, Roll(src, 12))
	assert.Equal(t, 12, Roll(src, 12))
	assert.Equal(t, 20, Between(src, 15, 25))
	assert.True(t, Chance(src, 70))
	assert.False(t, Chance(src, 70))
	assert.Equal(t, 0, src.Remaining())
}

func TestBetween_Range(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		lo := rapid.IntRange(-50, 50).Draw(rt, "lo")
		hi := lo + rapid.IntRange(0, 50).Draw(rt, "span")
		v := Between(NewCryptoSource(), lo, hi)
		if v < lo || v > hi {
			rt.Fatalf("Between(%d, %d) = %d", lo, hi, v)
		}
	})
}

func TestSequence_ClampsAndExhausts(t *testing.T) {
	src := NewSequence(99, -3)
	assert.Equal(t, 5, src.Intn(6))
	assert.Equal(t, 0, src.Intn(6))
	assert.Panics(t, func() { src.Intn(6) })
}
