package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventRepository_CreateAndList(t *testing.T) {
	s := newTestStore(t)
	createSession(t, s, "s-1", time.Now())
	createSession(t, s, "s-2", time.Now())

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	events := []*Event{
		{SessionID: "s-1", Limb: "left", Rep: 1, Signal: 150.5, Frame: 10, CreatedAt: at},
		{SessionID: "s-1", Limb: "right", Rep: 1, Signal: 140, Frame: 12, CreatedAt: at.Add(time.Second)},
		{SessionID: "s-2", Limb: "left", Rep: 1, Signal: 0.05, Frame: 3},
		{SessionID: "s-1", Limb: "left", Rep: 2, Signal: 155, Frame: 40, CreatedAt: at.Add(2 * time.Second)},
	}
	for _, e := range events {
		require.NoError(t, s.Events().Create(e))
		assert.NotZero(t, e.ID)
	}

	got, err := s.Events().ListBySession("s-1")
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "left", got[0].Limb)
	assert.Equal(t, uint(1), got[0].Rep)
	assert.Equal(t, 150.5, got[0].Signal)
	assert.Equal(t, 10, got[0].Frame)
	assert.True(t, got[0].CreatedAt.Equal(at))

	assert.Equal(t, "right", got[1].Limb)
	assert.Equal(t, uint(2), got[2].Rep)
}

func TestEventRepository_RequiresSession(t *testing.T) {
	s := newTestStore(t)

	err := s.Events().Create(&Event{SessionID: "missing", Limb: "left", Rep: 1})
	assert.Error(t, err, "foreign key should reject events without a session")
}

func TestEventRepository_RejectsUnknownLimb(t *testing.T) {
	s := newTestStore(t)
	createSession(t, s, "s-1", time.Now())

	err := s.Events().Create(&Event{SessionID: "s-1", Limb: "tail", Rep: 1})
	assert.Error(t, err)
}
