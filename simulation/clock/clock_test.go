package clock_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/are-sim/aresim/simulation/clock"
)

func TestAdvanceMonotonic(t *testing.T) {
	c := clock.New(10)
	require.Equal(t, float64(10), c.Now())

	c.Advance(1)
	require.Equal(t, float64(11), c.Now())

	c.Advance(2.5)
	require.Equal(t, float64(13.5), c.Now())
}

func TestAdvanceRejectsNonPositiveDelta(t *testing.T) {
	c := clock.New(0)
	c.Advance(0)
	c.Advance(-5)
	assert.Equal(t, float64(0), c.Now())
}

func TestReset(t *testing.T) {
	c := clock.New(0)
	c.Advance(5)
	c.Reset(2)
	assert.Equal(t, float64(2), c.Now())
}

func TestConcurrentReadsDuringAdvance(t *testing.T) {
	c := clock.New(0)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Now()
		}()
	}
	for i := 0; i < 10; i++ {
		c.Advance(1)
	}
	wg.Wait()
	assert.Equal(t, float64(10), c.Now())
}
