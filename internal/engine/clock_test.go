package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClock_NewClock(t *testing.T) {
	c := NewClock()
	assert.Equal(t, 0, c.Current(), "new clock should start at 0")
}

func TestClock_Tick_Incrementing(t *testing.T) {
	c := NewClock()

	assert.Equal(t, 1, c.Tick())
	assert.Equal(t, 2, c.Tick())
	assert.Equal(t, 3, c.Tick())
	assert.Equal(t, 3, c.Current())
}

func TestClock_Reset(t *testing.T) {
	c := NewClock()
	c.Tick()
	c.Tick()
	c.Reset()
	assert.Equal(t, 0, c.Current())
	assert.Equal(t, 1, c.Tick())
}

func TestClock_CurrentWhileTicking(t *testing.T) {
	c := NewClock()
	const ticks = 1000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		last := 0
		for last < ticks {
			cur := c.Current()
			assert.GreaterOrEqual(t, cur, last, "clock never runs backwards")
			last = cur
		}
	}()

	for i := 0; i < ticks; i++ {
		c.Tick()
	}
	wg.Wait()
	assert.Equal(t, ticks, c.Current())
}
