package main

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_LazyCreationAndTeardown(t *testing.T) {
	m := newRoomManager(testConfig())
	require.Equal(t, 0, m.roomCount())

	first := newClient("first")
	room := m.join("42", first)
	assert.Equal(t, 1, m.roomCount())
	assert.Equal(t, 1, room.memberCount())

	second := newClient("second")
	m.join("42", second)
	assert.Equal(t, 1, m.roomCount())
	assert.Equal(t, 2, room.memberCount())

	room.leave(first)
	assert.Equal(t, 1, m.roomCount())

	// Destroyed the instant the last connection departs.
	room.leave(second)
	assert.Equal(t, 0, m.roomCount())
}

func TestManager_RejoinGetsFreshRoom(t *testing.T) {
	m := newRoomManager(testConfig())

	first := newClient("first")
	room := m.join("42", first)
	require.NoError(t, room.setName(first, "Peter"))
	require.NoError(t, room.setNumber(first, "7"))
	room.leave(first)
	require.Equal(t, 0, m.roomCount())

	// Same id, but no carried-over entries and a fresh admin.
	second := newClient("second")
	fresh := m.join("42", second)
	require.NotSame(t, room, fresh)

	view := nextView(t, second)
	require.Len(t, view.Entries, 1)
	assert.Empty(t, view.Entries[0].Name)
	assert.False(t, view.Entries[0].HasNumber)
	assert.True(t, view.IsAdmin)
}

func TestManager_RoomsAreIndependent(t *testing.T) {
	m := newRoomManager(testConfig())

	a := newClient("a")
	b := newClient("b")
	roomA := m.join("1", a)
	m.join("2", b)
	drainViews(a)
	drainViews(b)

	require.NoError(t, roomA.setNumber(a, "7"))

	view := nextView(t, a)
	require.NotNil(t, view.Entries[0].Number)
	assertNoView(t, b)
}

func TestManager_JoinDeadRoomRetries(t *testing.T) {
	m := newRoomManager(testConfig())

	first := newClient("first")
	room := m.join("7", first)
	room.leave(first)

	// The room object is dead; a join against the same id must land in
	// a fresh room rather than a destroyed one.
	second := newClient("second")
	fresh := m.join("7", second)

	require.NotSame(t, room, fresh)
	assert.Equal(t, 1, fresh.memberCount())
	assert.True(t, nextView(t, second).IsAdmin)
}

func TestManager_ConcurrentJoinsAndLeaves(t *testing.T) {
	m := newRoomManager(testConfig())

	var wg sync.WaitGroup
	rooms := []string{"100", "200", "300"}

	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := newClient(uuidLike(i))
			room := m.join(rooms[i%len(rooms)], c)
			drainViews(c)
			room.leave(c)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, m.roomCount())
}

func uuidLike(i int) string {
	return string(rune('a'+i%26)) + string(rune('0'+i%10))
}

func TestManager_NewRoomID(t *testing.T) {
	m := newRoomManager(testConfig())

	for i := 0; i < 10; i++ {
		id := m.newRoomID()
		assert.Len(t, id, 9)
		assert.True(t, isNumericID(id))
		assert.NotEqual(t, byte('0'), id[0])
	}
}

func TestManager_ShutdownClosesClients(t *testing.T) {
	m := newRoomManager(testConfig())

	first := newClient("first")
	room := m.join("55", first)
	drainViews(first)

	// The reaper path: the manager drops the room, then the room closes
	// its clients.
	m.evict("55", room)
	room.shutdown()

	_, ok := <-first.send
	assert.False(t, ok)
	assert.Equal(t, 0, m.roomCount())

	// A dead room rejects joins.
	assert.False(t, room.join(newClient("late")))
}

func TestIsNumericID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"123456789", true},
		{"1", true},
		{"", false},
		{"12a34", false},
		{"-123", false},
		{"12.5", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, isNumericID(tt.id))
		})
	}
}
