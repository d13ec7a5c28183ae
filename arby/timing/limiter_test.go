package timing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoOpLimiterReturnsImmediately(t *testing.T) {
	l := NewNoOpLimiter()
	start := time.Now()
	for i := 0; i < 100; i++ {
		l.WaitForNextFrame()
	}
	l.Reset()
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestTickerLimiterPaces(t *testing.T) {
	l := NewTickerLimiter(5 * time.Millisecond)
	defer l.Stop()

	start := time.Now()
	for i := 0; i < 3; i++ {
		l.WaitForNextFrame()
	}
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestTickerLimiterDefaultPeriod(t *testing.T) {
	l := NewTickerLimiter(0)
	defer l.Stop()
	assert.Equal(t, FrameDuration, l.period)
}

func TestTickerLimiterReset(t *testing.T) {
	l := NewTickerLimiter(time.Millisecond)
	defer l.Stop()
	l.WaitForNextFrame()
	l.Reset()
	l.WaitForNextFrame()
}
