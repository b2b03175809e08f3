package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeFiresInDeadlineOrder(t *testing.T) {
	c := NewFake(time.Unix(0, 0))
	var order []string
	c.AfterFunc(3*time.Second, func() { order = append(order, "c") })
	c.AfterFunc(1*time.Second, func() { order = append(order, "a") })
	c.AfterFunc(2*time.Second, func() { order = append(order, "b") })

	c.Advance(2 * time.Second)
	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, 1, c.Pending())

	c.Advance(time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, time.Unix(3, 0), c.Now())
}

func TestFakeStopPreventsFiring(t *testing.T) {
	c := NewFake(time.Unix(0, 0))
	fired := false
	tm := c.AfterFunc(time.Second, func() { fired = true })

	require.True(t, tm.Stop())
	assert.False(t, tm.Stop(), "second stop reports already stopped")

	c.Advance(time.Minute)
	assert.False(t, fired)
}

func TestFakeCallbackCanScheduleWithinWindow(t *testing.T) {
	c := NewFake(time.Unix(0, 0))
	var at []time.Time
	c.AfterFunc(time.Second, func() {
		at = append(at, c.Now())
		c.AfterFunc(time.Second, func() {
			at = append(at, c.Now())
		})
	})

	c.Advance(5 * time.Second)
	require.Len(t, at, 2)
	assert.Equal(t, time.Unix(1, 0), at[0])
	assert.Equal(t, time.Unix(2, 0), at[1])
	assert.Equal(t, time.Unix(5, 0), c.Now())
}

func TestFakeStopAfterFireReturnsFalse(t *testing.T) {
	c := NewFake(time.Unix(0, 0))
	tm := c.AfterFunc(time.Second, func() {})
	c.Advance(time.Second)
	assert.False(t, tm.Stop())
}
