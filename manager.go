package main

import (
	"crypto/rand"
	"sync"
	"time"
)

// RoomManager holds the set of live rooms keyed by numeric id. Rooms are
// created lazily on first join and exist only while they have at least
// one connection; there is no global instance, callers inject one.
type RoomManager struct {
	cfg *Config

	mu    sync.Mutex
	rooms map[string]*Room
}

func newRoomManager(cfg *Config) *RoomManager {
	m := &RoomManager{
		cfg:   cfg,
		rooms: make(map[string]*Room),
	}
	if cfg.sessionTimeout > 0 {
		go m.reaperLoop()
	}
	return m
}

// join attaches a connection to the room with the given id, creating the
// room if it does not exist. A join racing the destruction of a dying
// room retries against a fresh one, so an unknown id always behaves as
// "create new room".
func (m *RoomManager) join(roomID string, c *Client) *Room {
	for {
		m.mu.Lock()
		room, ok := m.rooms[roomID]
		if !ok {
			room = newRoom(roomID, m.cfg, m)
			m.rooms[roomID] = room
			metricActiveRooms.Inc()
			logf(m.cfg, "ROOMS: Created room %s", roomID)
		}
		m.mu.Unlock()

		if room.join(c) {
			return room
		}

		// Lost the race against the last leave; the dead room is on
		// its way out of the table.
		m.evict(roomID, room)
	}
}

// release removes a room that emptied itself. The identity check keeps a
// stale release from evicting a fresh room reusing the same id.
func (m *RoomManager) release(r *Room) {
	m.evict(r.id, r)
}

func (m *RoomManager) evict(roomID string, r *Room) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.rooms[roomID] == r {
		delete(m.rooms, roomID)
		metricActiveRooms.Dec()
		logf(m.cfg, "ROOMS: Destroyed room %s", roomID)
	}
}

func (m *RoomManager) roomCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rooms)
}

// newRoomID generates a random 9-digit room id and ensures it doesn't
// collide with a live room.
func (m *RoomManager) newRoomID() string {
	const digits = "0123456789"
	for {
		buf := make([]byte, 9)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, len(buf))
		for i := range out {
			out[i] = digits[int(buf[i])%len(digits)]
		}
		if out[0] == '0' {
			out[0] = '1'
		}
		id := string(out)

		m.mu.Lock()
		_, exists := m.rooms[id]
		m.mu.Unlock()

		if !exists {
			return id
		}
	}
}

// reaperLoop periodically closes rooms that have been idle longer than
// the session timeout. Teardown then follows the normal leave path as
// each connection's pumps wind down.
func (m *RoomManager) reaperLoop() {
	ticker := time.NewTicker(m.cfg.sessionTimeout / 2)
	for range ticker.C {
		cutoff := time.Now().Add(-m.cfg.sessionTimeout)

		m.mu.Lock()
		var idle []*Room
		for id, room := range m.rooms {
			if room.idleSince().Before(cutoff) {
				delete(m.rooms, id)
				metricActiveRooms.Dec()
				idle = append(idle, room)
			}
		}
		m.mu.Unlock()

		for _, room := range idle {
			logf(m.cfg, "ROOMS: Reaped idle room %s", room.id)
			go room.shutdown()
		}
	}
}
