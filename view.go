package main

// Messages coming from clients
type ClientMessage struct {
	Type    string `json:"type"`              // "setName", "setNumber", "clear", "reveal", "onlyViewing"
	Value   string `json:"value,omitempty"`   // setName / setNumber
	Viewing *bool  `json:"viewing,omitempty"` // onlyViewing
}

// EntryView is one row of a participant's view of the room.
type EntryView struct {
	Name      string   `json:"name"`
	Number    *float64 `json:"number,omitempty"` // omitted when absent or masked
	HasNumber bool     `json:"hasNumber"`
	Self      bool     `json:"self,omitempty"`
}

// RoomViewMessage is pushed to every connection after each accepted
// mutation. The payload differs per viewer: while the room is hidden,
// non-admin viewers receive entries without numbers and no average.
type RoomViewMessage struct {
	Type        string      `json:"type"` // "room_view"
	RoomID      string      `json:"roomId"`
	Entries     []EntryView `json:"entries"`
	Average     *float64    `json:"average,omitempty"` // omitted when undefined or masked
	Hidden      bool        `json:"hidden"`
	IsAdmin     bool        `json:"isAdmin"`
	OnlyViewing bool        `json:"onlyViewing"`
}

// roomState is an immutable snapshot of a room's broadcastable state.
type roomState struct {
	roomID  string
	entries []Entry
	adminID string
	hidden  bool
}

// viewFor projects a room state into one viewer's payload. The admin's
// view is never gated by the hidden state; everyone else gets numbers
// and the average only once the room is revealed.
func viewFor(state roomState, viewerID string, onlyViewing bool) RoomViewMessage {
	isAdmin := viewerID != "" && viewerID == state.adminID
	masked := state.hidden && !isAdmin

	entries := make([]EntryView, 0, len(state.entries))
	for _, e := range state.entries {
		ev := EntryView{
			Name:      e.Name,
			HasNumber: e.HasNumber,
			Self:      e.ConnectionID == viewerID,
		}
		if e.HasNumber && !masked {
			n := e.Number
			ev.Number = &n
		}
		entries = append(entries, ev)
	}

	msg := RoomViewMessage{
		Type:        "room_view",
		RoomID:      state.roomID,
		Entries:     entries,
		Hidden:      state.hidden,
		IsAdmin:     isAdmin,
		OnlyViewing: onlyViewing,
	}

	if avg, ok := computeAverage(state.entries); ok && !masked {
		msg.Average = &avg
	}

	return msg
}
