// QuickAverage room engine
//
// Each participant provides their name and a number. These are combined
// into a shared list, broadcast to every connection in the room together
// with the running average.
//
// Features:
// - WebSockets per room ID: /room/:roomid and /room/:roomid/ws
// - First connection to a room becomes admin
// - Admin can clear everyone's numbers (names are preserved)
// - Rooms can start with numbers hidden; only the admin sees them until
//   it reveals the room, one-way
// - Non-numeric input is rejected without touching the stored number
// - Rooms are destroyed the instant the last connection departs
// - Random numeric room IDs via crypto/rand, with server-side collision check
// - In-browser QR button to share the current room, backed by go-qrcode

package main

import (
	"errors"
	"sync"
	"time"
)

var errNotAdmin = errors.New("only the room admin may do that")

// Client is one live connection's mailbox within a room. The transport
// half lives in client.go; the engine only ever touches the id, the send
// channel, and the viewing preference.
type Client struct {
	id          string
	send        chan any
	onlyViewing bool // guarded by the owning room's mutex
}

func newClient(id string) *Client {
	return &Client{
		id:   id,
		send: make(chan any, 8),
	}
}

// Room owns one entry store, the reveal gate, and the admin identity.
// Every membership change and mutation is serialized through mu, so a
// broadcast never observes a half-applied mutation. Rooms are fully
// independent of each other.
type Room struct {
	id      string
	cfg     *Config
	manager *RoomManager

	mu         sync.Mutex
	clients    map[*Client]bool
	store      entryStore
	adminID    string
	hidden     bool
	closed     bool
	lastActive time.Time
}

func newRoom(id string, cfg *Config, manager *RoomManager) *Room {
	return &Room{
		id:         id,
		cfg:        cfg,
		manager:    manager,
		clients:    make(map[*Client]bool),
		hidden:     cfg.startHidden,
		lastActive: time.Now(),
	}
}

// unlockAndRelease ends a serialized room operation. A room that
// emptied during the operation (last leave, or a wedged last client
// dropped mid-broadcast) is marked closed and removed from the manager
// once the lock is released.
func (r *Room) unlockAndRelease() {
	empty := len(r.clients) == 0 && !r.closed
	if empty {
		r.closed = true
	}
	r.mu.Unlock()
	if empty {
		r.manager.release(r)
	}
}

// join admits a connection and immediately broadcasts, so the joiner's
// first received view is the current full state. The first admitted
// connection becomes admin. Returns false if the room has already been
// destroyed, in which case the caller should retry against a fresh room.
func (r *Room) join(c *Client) bool {
	r.mu.Lock()
	defer r.unlockAndRelease()

	if r.closed {
		return false
	}

	if r.adminID == "" {
		r.adminID = c.id
	}

	r.clients[c] = true
	r.store.add(c.id)
	r.lastActive = time.Now()

	metricActiveConnections.Inc()
	logf(r.cfg, "ROOMS: Connection %s joined %s (%d members)", c.id, r.id, len(r.clients))

	r.broadcastLocked()

	return true
}

// leave removes the connection's entry and destroys the room when no
// connections remain. Safe to call for connections that already left.
func (r *Room) leave(c *Client) {
	r.mu.Lock()
	defer r.unlockAndRelease()

	if !r.clients[c] {
		return
	}

	delete(r.clients, c)
	close(c.send)
	r.store.remove(c.id)
	r.lastActive = time.Now()

	metricActiveConnections.Dec()
	logf(r.cfg, "ROOMS: Connection %s left %s (%d members)", c.id, r.id, len(r.clients))

	if c.id == r.adminID && r.cfg.promoteAdmin && r.store.len() > 0 {
		r.adminID = r.store.entries[0].ConnectionID
		logf(r.cfg, "ROOMS: Connection %s promoted to admin of %s", r.adminID, r.id)
	}

	if len(r.clients) > 0 {
		r.broadcastLocked()
	}
}

func (r *Room) setName(c *Client, value string) error {
	r.mu.Lock()
	defer r.unlockAndRelease()

	if !r.clients[c] {
		metricRejectedMutations.WithLabelValues("unknown_connection").Inc()
		return errUnknownConnection
	}

	changed, err := r.store.setName(c.id, value)
	if err != nil {
		metricRejectedMutations.WithLabelValues("unknown_connection").Inc()
		return err
	}

	r.lastActive = time.Now()
	if changed {
		r.broadcastLocked()
	}
	return nil
}

func (r *Room) setNumber(c *Client, value string) error {
	r.mu.Lock()
	defer r.unlockAndRelease()

	if !r.clients[c] {
		metricRejectedMutations.WithLabelValues("unknown_connection").Inc()
		return errUnknownConnection
	}

	changed, err := r.store.setNumber(c.id, value)
	if err != nil {
		if errors.Is(err, errInvalidNumber) {
			metricRejectedMutations.WithLabelValues("invalid_number").Inc()
		} else {
			metricRejectedMutations.WithLabelValues("unknown_connection").Inc()
		}
		return err
	}

	r.lastActive = time.Now()
	if changed {
		r.broadcastLocked()
	}
	return nil
}

// clear resets every entry's number, preserving names. Admin-only.
// Clearing an already-clear room still broadcasts the (already-correct)
// state, so the caller always sees its action acknowledged.
func (r *Room) clear(c *Client) error {
	r.mu.Lock()
	defer r.unlockAndRelease()

	if !r.clients[c] {
		metricRejectedMutations.WithLabelValues("unknown_connection").Inc()
		return errUnknownConnection
	}
	if c.id != r.adminID {
		metricRejectedMutations.WithLabelValues("unauthorized").Inc()
		return errNotAdmin
	}

	r.store.clear()
	r.lastActive = time.Now()
	r.broadcastLocked()
	return nil
}

// reveal opens the room-level gate. Admin-only, one-way, idempotent:
// revealing an already-revealed room changes nothing and broadcasts
// nothing.
func (r *Room) reveal(c *Client) error {
	r.mu.Lock()
	defer r.unlockAndRelease()

	if !r.clients[c] {
		metricRejectedMutations.WithLabelValues("unknown_connection").Inc()
		return errUnknownConnection
	}
	if c.id != r.adminID {
		metricRejectedMutations.WithLabelValues("unauthorized").Inc()
		return errNotAdmin
	}

	if !r.hidden {
		return nil
	}

	r.hidden = false
	r.lastActive = time.Now()
	r.broadcastLocked()
	return nil
}

// setOnlyViewing records a connection-local presentation preference. It
// gates nothing for other viewers, so only the owner's own view is
// refreshed, never the room's.
func (r *Room) setOnlyViewing(c *Client, viewing bool) error {
	r.mu.Lock()
	defer r.unlockAndRelease()

	if !r.clients[c] {
		metricRejectedMutations.WithLabelValues("unknown_connection").Inc()
		return errUnknownConnection
	}

	if c.onlyViewing == viewing {
		return nil
	}
	c.onlyViewing = viewing
	r.lastActive = time.Now()

	r.sendLocked(c, viewFor(r.snapshotLocked(), c.id, c.onlyViewing))
	return nil
}

func (r *Room) snapshotLocked() roomState {
	return roomState{
		roomID:  r.id,
		entries: r.store.snapshot(),
		adminID: r.adminID,
		hidden:  r.hidden,
	}
}

// broadcastLocked pushes one per-viewer projection of the current state
// to every connection. Per-client ordering follows mutation order since
// views are enqueued while the room lock is held.
func (r *Room) broadcastLocked() {
	state := r.snapshotLocked()

	for client := range r.clients {
		r.sendLocked(client, viewFor(state, client.id, client.onlyViewing))
	}

	metricBroadcasts.Inc()
}

// sendLocked enqueues without blocking; a client too wedged to drain its
// buffer is dropped rather than stalling the room.
func (r *Room) sendLocked(c *Client, msg any) {
	select {
	case c.send <- msg:
	default:
		delete(r.clients, c)
		close(c.send)
		r.store.remove(c.id)
		metricActiveConnections.Dec()
	}
}

func (r *Room) memberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

func (r *Room) idleSince() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastActive
}

// shutdown disconnects all clients of this room (used by the reaper).
// The manager removes the room from its table before calling this.
func (r *Room) shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	for c := range r.clients {
		delete(r.clients, c)
		close(c.send)
		metricActiveConnections.Dec()
	}
	r.store = entryStore{}
}
