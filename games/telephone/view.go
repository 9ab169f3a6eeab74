/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package telephone

// View is a read-only snapshot of everything the client displays. It
// shares no memory with the session that produced it.
type View struct {
	RoomID    string        `json:"roomId"`
	Connected bool          `json:"connected"`
	Screen    Screen        `json:"screen"`
	Phase     Phase         `json:"phase"`
	Status    string        `json:"status"`
	Self      Identity      `json:"self"`
	Host      bool          `json:"host"`
	Roster    []RosterEntry `json:"roster"`
	Task      Panel         `json:"task"`
	Tool      DrawMode      `json:"tool"`
	Drawn     bool          `json:"drawn"`
	Replay    ReplayView    `json:"replay"`
	Chat      ChatView      `json:"chat"`

	// last drawing this client submitted, as a data URL
	LastDrawing string `json:"-"`
}

// Renderer receives a fresh View after every state change, and blocking
// notices (server errors, rejected input) as they happen.
type Renderer interface {
	Render(View)
	Notice(msg string)
}

type nopRenderer struct{}

func (nopRenderer) Render(View)   {}
func (nopRenderer) Notice(string) {}
