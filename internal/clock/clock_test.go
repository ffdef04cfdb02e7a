package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMockClockAfterAdvances(t *testing.T) {
	start := time.Date(2024, 11, 24, 0, 0, 0, 0, time.UTC)
	m := NewMockClock(start)

	fired := <-m.After(5 * time.Second)
	assert.Equal(t, start.Add(5*time.Second), fired)
	assert.Equal(t, 5*time.Second, m.Since(start))

	m.Set(start)
	assert.Equal(t, start, m.Now())
}
