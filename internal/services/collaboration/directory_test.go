package collaboration

import (
	"testing"
	"time"

	"quantum-collab/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryEnsure(t *testing.T) {
	clock := newFakeClock()
	d := NewDirectory(clock.Now)

	session, created, err := d.Ensure("s1", "host", "p1")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "s1", session.ID)
	assert.Equal(t, "host", session.HostUserID)
	assert.Equal(t, clock.Now(), session.StartedAt)

	session, created, err = d.Ensure("s1", "guest", "p1")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "host", session.HostUserID, "host is fixed by the first join")

	_, changed, err := d.MarkEnded("s1")
	require.NoError(t, err)
	assert.True(t, changed)

	_, created, err = d.Ensure("s1", "guest", "p1")
	assert.ErrorIs(t, err, ErrSessionEnded)
	assert.False(t, created)
}

func TestDirectoryMarkEnded(t *testing.T) {
	clock := newFakeClock()
	d := NewDirectory(clock.Now)
	s := d.Create("host", "p1", nil)

	_, _, err := d.MarkEnded("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	clock.Advance(time.Hour)
	ended, changed, err := d.MarkEnded(s.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, models.SessionEnded, ended.Status)
	require.NotNil(t, ended.EndedAt)
	assert.Equal(t, clock.Now(), *ended.EndedAt)

	clock.Advance(time.Hour)
	again, changed, err := d.MarkEnded(s.ID)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, *ended.EndedAt, *again.EndedAt)
}

func TestDirectoryActive(t *testing.T) {
	clock := newFakeClock()
	d := NewDirectory(clock.Now)

	first := d.Create("h", "p1", nil)
	clock.Advance(time.Minute)
	second := d.Create("h", "p2", nil)
	clock.Advance(time.Minute)
	third := d.Create("h", "p3", nil)

	_, _, err := d.MarkEnded(second.ID)
	require.NoError(t, err)

	active := d.Active()
	require.Len(t, active, 2)
	assert.Equal(t, first.ID, active[0].ID)
	assert.Equal(t, third.ID, active[1].ID)
}

func TestDirectoryPut(t *testing.T) {
	d := NewDirectory(nil)
	s := models.CollabSession{ID: "s1", HostUserID: "a", Status: models.SessionActive}

	assert.True(t, d.Put(s))
	s.HostUserID = "b"
	assert.False(t, d.Put(s), "existing entries win")

	got, ok := d.Get("s1")
	require.True(t, ok)
	assert.Equal(t, "a", got.HostUserID)
}

func TestDirectoryReturnsCopies(t *testing.T) {
	d := NewDirectory(nil)
	s := d.Create("h", "p1", nil)

	got, _ := d.Get(s.ID)
	got.Status = models.SessionEnded

	again, _ := d.Get(s.ID)
	assert.True(t, again.IsActive())
}
