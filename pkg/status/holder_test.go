package status

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHolder_SetGet(t *testing.T) {
	h := NewHolder()
	assert.Equal(t, Idle, h.Get())

	h.Set(Submitting)
	assert.Equal(t, Submitting, h.Get())

	h.Set(Failed)
	assert.Equal(t, Failed, h.Get())

	var zero Holder
	assert.Equal(t, Status(""), zero.Get())
}

func TestHolder_OnChange_Fires(t *testing.T) {
	h := NewHolder()

	var captured []struct{ old, cur Status }
	h.OnChange(func(old, cur Status) {
		captured = append(captured, struct{ old, cur Status }{old, cur})
	})

	h.Set(Submitting)
	h.Set(Succeeded)

	require.Len(t, captured, 2)
	assert.Equal(t, Idle, captured[0].old)
	assert.Equal(t, Submitting, captured[0].cur)
	assert.Equal(t, Submitting, captured[1].old)
	assert.Equal(t, Succeeded, captured[1].cur)
}

func TestHolder_OnChange_NotFiredOnSameStatus(t *testing.T) {
	h := NewHolder()

	callCount := 0
	h.OnChange(func(_, _ Status) { callCount++ })

	h.Set(Idle) // unchanged
	h.Set(Submitting)
	h.Set(Submitting)

	assert.Equal(t, 1, callCount)
}

func TestHolder_NilCallbackSafe(t *testing.T) {
	h := NewHolder()
	h.Set(Failed)
	assert.Equal(t, Failed, h.Get())
}

func TestHolder_ConcurrentAccess(t *testing.T) {
	h := NewHolder()
	all := []Status{Idle, Submitting, Succeeded, Failed}

	var cbCount atomic.Int64
	h.OnChange(func(_, _ Status) {
		_ = h.Get() // read path from callback must not deadlock
		cbCount.Add(1)
	})

	start := make(chan struct{})
	var wg sync.WaitGroup
	for w := range 16 {
		wg.Go(func() {
			<-start
			for i := range 200 {
				h.Set(all[(w+i)%len(all)])
				h.Get()
			}
		})
	}

	close(start)
	wg.Wait()

	assert.Contains(t, all, h.Get())
	assert.Positive(t, cbCount.Load())
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{Idle, Submitting, true},
		{Idle, Succeeded, false},
		{Idle, Failed, false},
		{Idle, Idle, false},
		{Submitting, Succeeded, true},
		{Submitting, Failed, true},
		{Submitting, Submitting, false},
		{Submitting, Idle, true},
		{Succeeded, Idle, true},
		{Succeeded, Submitting, false},
		{Failed, Submitting, true},
		{Failed, Idle, true},
		{Failed, Succeeded, false},
		{Status("bogus"), Idle, false},
	}

	for _, tc := range tests {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			assert.Equal(t, tc.want, CanTransition(tc.from, tc.to))
		})
	}
}

func TestStatus_Helpers(t *testing.T) {
	assert.True(t, Submitting.Busy())
	assert.False(t, Failed.Busy())
	assert.True(t, Succeeded.Valid())
	assert.False(t, Status("").Valid())
}
