package store_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marshallshelly/caretable/pkg/store"
)

func day(offset int) time.Time {
	return time.Date(2026, 8, 30+offset, 0, 0, 0, 0, time.UTC)
}

func TestIndexRange(t *testing.T) {
	s := newTestStore(t)

	var ids []int64
	for _, e := range []Event{
		{RoomID: 1, Start: day(2), Label: "late"},
		{RoomID: 1, Start: day(0), Label: "early"},
		{RoomID: 2, Start: day(1), Label: "other room"},
		{RoomID: 1, Start: day(1), Label: "middle"},
	} {
		id, err := s.Insert(e)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	t.Run("orders by key within bounds", func(t *testing.T) {
		got, err := s.IndexRange("events", "idx_events_room_start",
			[]any{int64(1), day(1)}, []any{int64(2)})
		require.NoError(t, err)
		assert.Equal(t, []int64{ids[3], ids[0]}, got, "middle then late, other room excluded")
	})

	t.Run("nil bounds are unbounded", func(t *testing.T) {
		got, err := s.IndexRange("events", "idx_events_room_start", nil, nil)
		require.NoError(t, err)
		assert.Equal(t, []int64{ids[1], ids[3], ids[0], ids[2]}, got)
	})

	t.Run("prefix lookup on the leading column", func(t *testing.T) {
		got, err := s.IndexPrefix("events", "idx_events_room_start", int64(2))
		require.NoError(t, err)
		assert.Equal(t, []int64{ids[2]}, got)
	})

	t.Run("unknown index errors", func(t *testing.T) {
		_, err := s.IndexRange("events", "idx_nope", nil, nil)
		assert.Error(t, err)
	})
}

func TestIndexFollowsMutations(t *testing.T) {
	s := newTestStore(t)

	id, err := s.Insert(Event{RoomID: 1, Start: day(0)})
	require.NoError(t, err)

	t.Run("update moves the entry", func(t *testing.T) {
		require.NoError(t, s.Update(id, Event{RoomID: 9, Start: day(0)}))

		old, err := s.IndexPrefix("events", "idx_events_room_start", int64(1))
		require.NoError(t, err)
		assert.Empty(t, old)

		moved, err := s.IndexPrefix("events", "idx_events_room_start", int64(9))
		require.NoError(t, err)
		assert.Equal(t, []int64{id}, moved)
	})

	t.Run("delete drops the entry", func(t *testing.T) {
		require.NoError(t, s.Delete("events", id))

		got, err := s.IndexPrefix("events", "idx_events_room_start", int64(9))
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestIndexStringPrefix(t *testing.T) {
	s := newTestStore(t)
	_, teamID, _, _ := seedLeague(t, s)

	costa, err := s.Insert(Player{Name: "Ana Costa", Number: 12, Role: "Forward", TeamID: teamID})
	require.NoError(t, err)

	t.Run("matches by name prefix in order", func(t *testing.T) {
		got, err := s.IndexStringPrefix("players", "idx_players_name", "Ana")
		require.NoError(t, err)
		require.Len(t, got, 2)

		first, err := store.Get[Player](s, got[0])
		require.NoError(t, err)
		second, err := store.Get[Player](s, got[1])
		require.NoError(t, err)
		assert.Equal(t, "Ana Costa", first.Name)
		assert.Equal(t, "Ana Silva", second.Name)
		assert.Equal(t, costa, got[0])
	})

	t.Run("no matches", func(t *testing.T) {
		got, err := s.IndexStringPrefix("players", "idx_players_name", "Zed")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("rejects composite indexes", func(t *testing.T) {
		_, err := s.IndexStringPrefix("events", "idx_events_room_start", "x")
		assert.Error(t, err)
	})
}

func TestIndexNegativeIntegers(t *testing.T) {
	// Encoded integer keys must sort numerically across the sign boundary.
	s := newTestStore(t)

	var ids []int64
	for _, e := range []Event{
		{RoomID: 3, Start: day(0)},
		{RoomID: -5, Start: day(0)},
		{RoomID: 0, Start: day(0)},
		{RoomID: -1, Start: day(0)},
	} {
		id, err := s.Insert(e)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	got, err := s.IndexRange("events", "idx_events_room_start", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{ids[1], ids[3], ids[2], ids[0]}, got, "want -5, -1, 0, 3")

	upTo, err := s.IndexRange("events", "idx_events_room_start", []any{int64(-1)}, []any{int64(1)})
	require.NoError(t, err)
	assert.Equal(t, []int64{ids[3], ids[2]}, upTo)
}
