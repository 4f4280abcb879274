package fixed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDelayIsConstant(t *testing.T) {
	s := New(250 * time.Millisecond)
	for _, attempt := range []int{0, 1, 5, 100} {
		assert.Equal(t, 250*time.Millisecond, s.Delay(attempt))
	}
}

func TestNewDefault(t *testing.T) {
	assert.Equal(t, time.Second, New(0).Delay(0))
	assert.Equal(t, time.Second, New(-time.Second).Delay(3))
}
