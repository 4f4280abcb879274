package expo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDelaySequence(t *testing.T) {
	s := New(time.Second, 16*time.Second)

	tests := []struct {
		name     string
		attempt  int
		expected time.Duration
	}{
		{"First Failure", 0, 1 * time.Second},
		{"Second Failure", 1, 2 * time.Second},
		{"Third Failure", 2, 4 * time.Second},
		{"Fourth Failure", 3, 8 * time.Second},
		{"Fifth Failure", 4, 16 * time.Second},
		{"Capped", 5, 16 * time.Second},
		{"Far Past Cap", 20, 16 * time.Second},
		{"Negative Attempt", -1, 1 * time.Second}, // Edge case
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, s.Delay(tt.attempt))
		})
	}
}

func TestNewDefaults(t *testing.T) {
	s := New(0, 0)
	assert.Equal(t, time.Second, s.Delay(0))
	assert.Equal(t, 16*time.Second, s.Delay(10))

	// Cap below base is lifted to base.
	s = New(4*time.Second, time.Second)
	assert.Equal(t, 4*time.Second, s.Delay(0))
	assert.Equal(t, 4*time.Second, s.Delay(3))
}

// Fuzz the delay bounds: for arbitrary base/max/attempt the result must
// stay within [min(base,max), max] and never overflow to a negative or
// zero duration. Guards the math.Pow saturation path.
func FuzzDelayBounds(f *testing.F) {
	f.Add(int64(time.Second), int64(16*time.Second), 4)
	f.Add(int64(time.Millisecond), int64(time.Millisecond), 63)
	f.Add(int64(time.Hour), int64(time.Second), 1)
	f.Add(int64(1), int64(1<<62), 1000)

	f.Fuzz(func(t *testing.T, base, max int64, attempt int) {
		// Cap inputs to sane ranges; New clamps non-positives itself.
		if base < 0 {
			base = -base
		}
		if max < 0 {
			max = -max
		}
		s := New(time.Duration(base), time.Duration(max)).(expo)

		d := s.Delay(attempt)
		if d < s.base && d != s.max {
			t.Fatalf("delay %v below base %v (max %v, attempt %d)", d, s.base, s.max, attempt)
		}
		if d > s.max {
			t.Fatalf("delay %v above cap %v (base %v, attempt %d)", d, s.max, s.base, attempt)
		}
		if d <= 0 {
			t.Fatalf("non-positive delay %v (base %v, max %v, attempt %d)", d, s.base, s.max, attempt)
		}

		// Monotonic until the cap is reached.
		if attempt >= 0 && attempt < 62 {
			if next := s.Delay(attempt + 1); next < d {
				t.Fatalf("delay not monotonic: Delay(%d)=%v > Delay(%d)=%v", attempt, d, attempt+1, next)
			}
		}
	})
}
