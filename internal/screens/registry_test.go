package screens

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeScreen struct {
	name   string
	closed bool
}

func (f *fakeScreen) Close() { f.closed = true }

func TestRegistryGetCreatesOnce(t *testing.T) {
	r := NewRegistry[*fakeScreen](time.Minute)
	calls := 0
	create := func() *fakeScreen {
		calls++
		return &fakeScreen{name: "a"}
	}

	first, created := r.Get("s1", create)
	assert.True(t, created)
	second, created := r.Get("s1", create)
	assert.False(t, created)

	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryReplaceClosesOld(t *testing.T) {
	r := NewRegistry[*fakeScreen](time.Minute)
	old, _ := r.Get("s1", func() *fakeScreen { return &fakeScreen{name: "old"} })

	fresh := &fakeScreen{name: "new"}
	r.Replace("s1", fresh)

	assert.True(t, old.closed)
	got, _ := r.Get("s1", func() *fakeScreen { return &fakeScreen{} })
	assert.Same(t, fresh, got)
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry[*fakeScreen](time.Minute)
	s, _ := r.Get("s1", func() *fakeScreen { return &fakeScreen{} })

	r.Remove("s1")
	r.Remove("missing")

	assert.True(t, s.closed)
	assert.Zero(t, r.Len())
}

func TestRegistrySweep(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	r := NewRegistry[*fakeScreen](time.Minute)
	r.now = func() time.Time { return now }

	idle, _ := r.Get("idle", func() *fakeScreen { return &fakeScreen{} })
	now = now.Add(45 * time.Second)
	busy, _ := r.Get("busy", func() *fakeScreen { return &fakeScreen{} })
	now = now.Add(30 * time.Second)

	assert.Equal(t, 1, r.Sweep())
	assert.True(t, idle.closed)
	assert.False(t, busy.closed)
	assert.Equal(t, 1, r.Len())

	assert.Zero(t, NewRegistry[*fakeScreen](0).Sweep())
}

func TestAlerts(t *testing.T) {
	var a Alerts
	assert.Empty(t, a.Messages())
	a.Alert("one")
	a.Alert("two")
	assert.Equal(t, []string{"one", "two"}, a.Messages())
}
