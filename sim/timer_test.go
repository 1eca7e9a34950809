package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimer_Delay_UsesConfiguredSlice(t *testing.T) {
	k, _ := newTestKernel(t, func(c *KernelConfig) { c.TimerTicks = 250 })
	assert.Equal(t, int64(250), k.Timer.Delay())
}

func TestTimer_Delay_UsesRunningThreadQuantum(t *testing.T) {
	k, _ := newTestKernel(t)
	th := newIdleThread(k, "t", 10)
	th.Quantum = 30
	k.currentThread = th

	assert.Equal(t, int64(30), k.Timer.Delay())
}

func TestTimer_RandomDelay_InRangeAndReproducible(t *testing.T) {
	random := func(c *KernelConfig) {
		c.RandomSlice = true
		c.Seed = 7
	}
	k1, _ := newTestKernel(t, random)
	k2, _ := newTestKernel(t, random)

	for i := 0; i < 200; i++ {
		d := k1.Timer.Delay()
		assert.GreaterOrEqual(t, d, int64(1))
		assert.LessOrEqual(t, d, int64(2*TimerTicks))
		assert.Equal(t, d, k2.Timer.Delay())
	}
}

func TestTimer_IdleWithNothingPending_DisablesItself(t *testing.T) {
	// GIVEN a started timer on an idle machine with no other work
	k, _ := newTestKernel(t)
	k.Timer.Start()
	require.Equal(t, 1, k.Interrupt.PendingCount())

	// WHEN the machine idles to the timer interrupt
	require.True(t, k.Interrupt.Idle())

	// THEN the timer stops re-arming
	assert.Equal(t, 1, k.Timer.Fired())
	assert.True(t, k.Timer.Disabled())
	assert.False(t, k.Interrupt.AnyFutureInterruptsPending())
	assert.Equal(t, int64(TimerTicks), k.Now())
}

func TestTimer_IdleWithThreadReady_KeepsRunning(t *testing.T) {
	k, _ := newTestKernel(t)
	k.Timer.Start()
	addReady(k, "t", 10, 0)

	require.True(t, k.Interrupt.Idle())

	assert.False(t, k.Timer.Disabled())
	assert.Equal(t, 1, k.Interrupt.PendingCount())
}

func TestTimer_WhileBusy_RequestsYieldAndRearms(t *testing.T) {
	// GIVEN the idle thread ticking in user mode with the timer armed
	k, sw := newTestKernel(t)
	k.Timer.Start()
	k.Interrupt.SetStatus(UserMode)
	k.Interrupt.level = IntOn

	// WHEN the clock reaches the slice
	for k.Timer.Fired() == 0 {
		k.Interrupt.OneTick()
	}

	// THEN the timer re-armed, and the yield found nothing to switch to
	assert.Equal(t, int64(TimerTicks)+SystemTick, k.Now())
	assert.Equal(t, 1, k.Interrupt.PendingCount())
	assert.Empty(t, sw.switches)
	assert.Equal(t, UserMode, k.Interrupt.Status())
}
