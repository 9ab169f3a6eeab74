/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package telephone

import "fmt"

// Phase is the room-wide game phase as last reported by the server.
type Phase int

const (
	PhaseIdle      Phase = iota // no game running
	PhaseActive                 // task-assignment loop running
	PhaseReplaying              // all chains revealed, voting in progress
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseActive:
		return "active"
	case PhaseReplaying:
		return "replaying"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Transitions the server is expected to drive. Anything else is still
// applied (the server is authoritative) but gets logged.
var phaseTransitions = map[Phase][]Phase{
	PhaseIdle:      {PhaseIdle, PhaseActive},
	PhaseActive:    {PhaseActive, PhaseReplaying, PhaseIdle},
	PhaseReplaying: {PhaseIdle},
}

// CanTransitionTo checks if moving from p to target is an expected server-driven step.
func (p Phase) CanTransitionTo(target Phase) bool {
	allowed, ok := phaseTransitions[p]
	if !ok {
		return false
	}

	for _, phase := range allowed {
		if phase == target {
			return true
		}
	}
	return false
}

// StepKind tags a chain step or a task as a word or a drawing.
type StepKind string

const (
	KindWord    StepKind = "word"
	KindDrawing StepKind = "drawing"
)

func (k StepKind) Valid() bool {
	return k == KindWord || k == KindDrawing
}

// PanelKind selects which of the mutually exclusive task panels is shown.
type PanelKind int

const (
	PanelWaiting PanelKind = iota
	PanelWord
	PanelDrawing
)

func (k PanelKind) String() string {
	switch k {
	case PanelWaiting:
		return "waiting"
	case PanelWord:
		return "word"
	case PanelDrawing:
		return "drawing"
	}
	return fmt.Sprintf("panel(%d)", int(k))
}

func (k PanelKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// OverlayMode is the chat channel's display mode. ModeOverlay is the
// drawing-phase mode: the history is hidden and incoming chat floats
// across the canvas instead.
type OverlayMode int

const (
	ModeLog OverlayMode = iota
	ModeOverlay
)

func (m OverlayMode) String() string {
	if m == ModeOverlay {
		return "overlay"
	}
	return "log"
}

func (m OverlayMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// DrawMode is the canvas tool.
type DrawMode int

const (
	DrawInk DrawMode = iota
	DrawErase
)

func (m DrawMode) String() string {
	if m == DrawErase {
		return "erase"
	}
	return "ink"
}

func (m DrawMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Screen is the top-level view the client is showing.
type Screen int

const (
	ScreenRoom Screen = iota
	ScreenReveal
)

func (s Screen) String() string {
	if s == ScreenReveal {
		return "reveal"
	}
	return "room"
}

func (s Screen) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
