package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatch(t *testing.T) {
	cfg := testConfig()
	cfg.startHidden = true

	viewing := true

	tests := []struct {
		name     string
		msg      ClientMessage
		wantView bool
		check    func(t *testing.T, view RoomViewMessage)
	}{
		{
			name:     "setName",
			msg:      ClientMessage{Type: "setName", Value: "Peter"},
			wantView: true,
			check: func(t *testing.T, view RoomViewMessage) {
				assert.Equal(t, "Peter", view.Entries[0].Name)
			},
		},
		{
			name:     "setNumber",
			msg:      ClientMessage{Type: "setNumber", Value: "7"},
			wantView: true,
			check: func(t *testing.T, view RoomViewMessage) {
				assert.True(t, view.Entries[0].HasNumber)
			},
		},
		{
			name:     "setNumber rejected",
			msg:      ClientMessage{Type: "setNumber", Value: "seven"},
			wantView: false,
		},
		{
			name:     "clear",
			msg:      ClientMessage{Type: "clear"},
			wantView: true,
			check: func(t *testing.T, view RoomViewMessage) {
				assert.False(t, view.Entries[0].HasNumber)
			},
		},
		{
			name:     "reveal",
			msg:      ClientMessage{Type: "reveal"},
			wantView: true,
			check: func(t *testing.T, view RoomViewMessage) {
				assert.False(t, view.Hidden)
			},
		},
		{
			name:     "onlyViewing",
			msg:      ClientMessage{Type: "onlyViewing", Viewing: &viewing},
			wantView: true,
			check: func(t *testing.T, view RoomViewMessage) {
				assert.True(t, view.OnlyViewing)
			},
		},
		{
			name:     "unknown type ignored",
			msg:      ClientMessage{Type: "launchMissiles"},
			wantView: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newRoomManager(cfg)
			c := newClient("admin")
			room := m.join("31337", c)
			if tt.name == "setNumber rejected" || tt.name == "clear" {
				require.NoError(t, room.setNumber(c, "1"))
			}
			drainViews(c)

			dispatch(cfg, room, c, tt.msg)

			if !tt.wantView {
				assertNoView(t, c)
				return
			}
			view := nextView(t, c)
			if tt.check != nil {
				tt.check(t, view)
			}
		})
	}
}

func TestDispatch_RejectedMutationsReachNoOne(t *testing.T) {
	m := newRoomManager(testConfig())

	admin := newClient("admin")
	other := newClient("other")
	room := m.join("80", admin)
	m.join("80", other)
	drainViews(admin)
	drainViews(other)

	dispatch(testConfig(), room, other, ClientMessage{Type: "clear"})
	dispatch(testConfig(), room, other, ClientMessage{Type: "reveal"})
	dispatch(testConfig(), room, other, ClientMessage{Type: "setNumber", Value: "NaN"})

	assertNoView(t, admin)
	assertNoView(t, other)
}
