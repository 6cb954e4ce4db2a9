package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionNormalizesSelection(t *testing.T) {
	a := NewSession(" sp ")
	b := NewSession("")
	assert.Equal(t, "SP", a.Selection)
	assert.Equal(t, "TOTAL", b.Selection)
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.Authenticated)
}

func TestSessionStoreLifecycle(t *testing.T) {
	st := NewSessionStore("TOTAL", 0)
	s := st.Create()
	got, ok := st.Get(s.ID)
	require.True(t, ok)
	assert.Equal(t, "TOTAL", got.Selection)

	upd, ok := st.Update(s.ID, func(s *Session) {
		s.Select("rj")
		s.Authenticated = true
	})
	require.True(t, ok)
	assert.Equal(t, "RJ", upd.Selection)

	got, _ = st.Get(s.ID)
	assert.True(t, got.Authenticated)

	other := st.Create()
	otherGot, _ := st.Get(other.ID)
	assert.Equal(t, "TOTAL", otherGot.Selection, "sessions must not share selection")

	st.Delete(s.ID)
	_, ok = st.Get(s.ID)
	assert.False(t, ok)
	_, ok = st.Update("missing", func(*Session) {})
	assert.False(t, ok)
	assert.Equal(t, 1, st.Len())
}

func TestSessionStoreIdleExpiry(t *testing.T) {
	st := NewSessionStore("TOTAL", time.Millisecond)
	s := st.Create()
	time.Sleep(5 * time.Millisecond)
	_, ok := st.Get(s.ID)
	assert.False(t, ok)
}

func TestSessionStoreSweepsOnCreate(t *testing.T) {
	st := NewSessionStore("TOTAL", 100*time.Millisecond)
	for i := 0; i < 50; i++ {
		st.Create()
	}
	require.Equal(t, 50, st.Len())
	time.Sleep(150 * time.Millisecond)
	st.Create()
	assert.Equal(t, 1, st.Len())

	st.Create()
	time.Sleep(150 * time.Millisecond)
	st.Sweep()
	assert.Equal(t, 0, st.Len())
}

func TestSessionStoreDraftIsNotStored(t *testing.T) {
	st := NewSessionStore("sp", 0)
	d := st.Draft()
	assert.Equal(t, "SP", d.Selection)
	assert.Equal(t, 0, st.Len())
	_, ok := st.Get(d.ID)
	assert.False(t, ok)
}

func TestSessionStoreRotate(t *testing.T) {
	st := NewSessionStore("TOTAL", 0)
	old := st.Create()
	old, _ = st.Update(old.ID, func(s *Session) { s.Select("mg") })

	fresh := st.Rotate(old, func(s *Session) { s.Authenticated = true })
	assert.NotEqual(t, old.ID, fresh.ID)
	assert.Equal(t, "MG", fresh.Selection)
	assert.True(t, fresh.Authenticated)
	_, ok := st.Get(old.ID)
	assert.False(t, ok)
	got, ok := st.Get(fresh.ID)
	require.True(t, ok)
	assert.True(t, got.Authenticated)
	assert.Equal(t, 1, st.Len())

	// Rotating an unstored draft just registers the new session.
	st.Rotate(st.Draft(), nil)
	assert.Equal(t, 2, st.Len())
}
