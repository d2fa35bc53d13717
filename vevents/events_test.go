package vevents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliverInOrder(t *testing.T) {
	b := New()
	var order []int
	b.Subscribe(TierSwitch, func(ev Event) { order = append(order, 1) })
	b.Subscribe(TierSwitch, func(ev Event) { order = append(order, 2) })
	b.Emit(Event{Type: TierSwitch})
	assert.Equal(t, []int{1, 2}, order)
}

func TestUnregister(t *testing.T) {
	b := New()
	calls := 0
	h := b.Subscribe(LODChange, func(ev Event) { calls++ })
	b.Emit(Event{Type: LODChange})
	h.Unregister()
	b.Emit(Event{Type: LODChange})
	assert.Equal(t, 1, calls)
}

func TestSubscriberPanicIsolated(t *testing.T) {
	b := New()
	calls := 0
	b.Subscribe(Error, func(ev Event) { panic("boom") })
	b.Subscribe(Error, func(ev Event) { calls++ })
	require.NotPanics(t, func() {
		b.Emit(Event{Type: Error})
	})
	assert.Equal(t, 1, calls)
}

func TestOnlyMatchingTypeDelivered(t *testing.T) {
	b := New()
	calls := 0
	b.Subscribe(TierSwitch, func(ev Event) { calls++ })
	b.Emit(Event{Type: LODChange})
	assert.Equal(t, 0, calls)
}
