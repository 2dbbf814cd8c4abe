package main

import (
	_ "embed"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const maxMessageSize = 4096

// isNumericID reports whether s is a syntactically valid room id.
func isNumericID(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// serveWS upgrades the connection and attaches it to the room named in
// the URL. The connection's lifetime is scoped to exactly this room; a
// transport close is an implicit leave with no grace period.
func serveWS(cfg *Config, m *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		roomID := ps.ByName("roomid")
		if !isNumericID(roomID) {
			http.Error(w, "invalid room id", http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := newClient(uuid.New().String())
		room := m.join(roomID, client)

		go writePump(conn, client)
		readPump(cfg, conn, client, room)
	}
}

func readPump(cfg *Config, conn *websocket.Conn, c *Client, room *Room) {
	defer func() {
		room.leave(c)
		_ = conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)

	for {
		var msg ClientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}

		dispatch(cfg, room, c, msg)
	}
}

// dispatch routes one inbound message into the room. Rejected mutations
// leave prior state untouched and are logged, never surfaced to other
// connections.
func dispatch(cfg *Config, room *Room, c *Client, msg ClientMessage) {
	var err error

	switch msg.Type {
	case "setName":
		err = room.setName(c, msg.Value)
	case "setNumber":
		err = room.setNumber(c, msg.Value)
	case "clear":
		err = room.clear(c)
	case "reveal":
		err = room.reveal(c)
	case "onlyViewing":
		viewing := msg.Viewing != nil && *msg.Viewing
		err = room.setOnlyViewing(c, viewing)
	default:
		// ignore unknown types
	}

	if err != nil {
		logf(cfg, "ROOMS: Dropped %q from %s in %s: %v", msg.Type, c.id, room.id, err)
	}
}

func writePump(conn *websocket.Conn, c *Client) {
	defer conn.Close()

	for msg := range c.send {
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// QR handler: generates a PNG QR code for the current room URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	roomID := ps.ByName("roomid")
	if !isNumericID(roomID) {
		http.Error(w, "invalid room id", http.StatusBadRequest)
		return
	}

	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /room/:roomid/qr; strip trailing "/qr" to get the room URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

//go:embed assets/average/index.html
var indexHTML []byte

func getRoomPageHandler(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if !isNumericID(ps.ByName("roomid")) {
			http.Error(w, "invalid room id", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write(indexHTML)
	}
}

// redirectNewRoom handles GET on the bare path by generating a new
// random room ID (with server-side collision detection) and redirecting
// to /room/:roomid.
func redirectNewRoom(cfg *Config, m *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		roomID := m.newRoomID()
		logf(cfg, "ROOMS: Redirecting %s to room %s", realIP(r), roomID)
		http.Redirect(w, r, cfg.prefix+"/room/"+roomID, http.StatusTemporaryRedirect)
	}
}

// registerAverageRooms sets up routes so that:
//   - /                      → redirects to new random room (9-digit ID)
//   - /room                  → same redirect
//   - /room/:roomid          → HTML client
//   - /room/:roomid/ws       → WebSocket for that room
//   - /room/:roomid/qr       → PNG QR code for that room URL
func registerAverageRooms(cfg *Config, m *RoomManager, mux *httprouter.Router, errs chan<- error) {
	mux.GET(cfg.prefix+"/", redirectNewRoom(cfg, m))
	mux.GET(cfg.prefix+"/room", redirectNewRoom(cfg, m))

	mux.GET(cfg.prefix+"/room/:roomid", getRoomPageHandler(cfg))

	// Shared assets (no roomid in route)
	mux.GET(cfg.prefix+"/assets/average/app.css", serveAssets(cfg, errs))
	mux.GET(cfg.prefix+"/assets/average/app.js", serveAssets(cfg, errs))

	mux.GET(cfg.prefix+"/room/:roomid/ws", serveWS(cfg, m))

	mux.GET(cfg.prefix+"/room/:roomid/qr", qrHandler)
}
