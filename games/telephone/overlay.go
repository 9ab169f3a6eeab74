/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package telephone

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
)

const (
	overlayLaneHeight  = 26
	overlayTopMargin   = 4
	overlayMinDuration = 10 * time.Second
	overlaySpread      = 5 * time.Second
)

// Rand is the random source used for overlay placement. *math/rand.Rand
// and *math/rand/v2.Rand both satisfy it.
type Rand interface {
	Float64() float64
}

// ChatLine is one entry of the append-only chat log.
type ChatLine struct {
	Name    string    `json:"name,omitempty"`
	Content string    `json:"content"`
	System  bool      `json:"system"`
	At      time.Time `json:"at"`
}

func (l ChatLine) String() string {
	if l.System {
		return "* " + l.Content
	}
	return l.Name + ": " + l.Content
}

// OverlayItem is a floating chat message crossing the drawing surface.
// It removes itself once Duration has elapsed since SpawnedAt.
type OverlayItem struct {
	ID        uuid.UUID     `json:"id"`
	Text      string        `json:"text"`
	Lane      int           `json:"lane"`
	Top       int           `json:"top"`
	Duration  time.Duration `json:"duration"`
	SpawnedAt time.Time     `json:"spawnedAt"`
}

func (i OverlayItem) ExpiresAt() time.Time {
	return i.SpawnedAt.Add(i.Duration)
}

// Overlay is the chat channel: a persistent log plus, in drawing-phase
// mode, transient items floating over the canvas.
type Overlay struct {
	log    []ChatLine
	items  []OverlayItem
	mode   OverlayMode
	height int
	rnd    Rand
	now    func() time.Time
}

// NewOverlay seeds its own random source when rnd is nil.
func NewOverlay(height int, rnd Rand, now func() time.Time) *Overlay {
	if height <= 0 {
		height = DefaultCanvasHeight
	}
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if now == nil {
		now = time.Now
	}
	return &Overlay{height: height, rnd: rnd, now: now}
}

// Lanes is the number of equal-height rows overlay items are placed in.
func (o *Overlay) Lanes() int {
	return max(1, o.height/overlayLaneHeight)
}

func (o *Overlay) Mode() OverlayMode {
	return o.mode
}

// SetMode only changes presentation. The log is never discarded.
func (o *Overlay) SetMode(m OverlayMode) {
	o.mode = m
}

// LogVisible reports whether the chat history is shown.
func (o *Overlay) LogVisible() bool {
	return o.mode == ModeLog
}

func (o *Overlay) Title() string {
	if o.mode == ModeOverlay {
		return "Chat (messages currently float across the canvas)"
	}
	return "Chat (while drawing, messages only float across the canvas)"
}

// AppendChat logs a player message and, in overlay mode, spawns one
// floating item for it.
func (o *Overlay) AppendChat(name, content string) (OverlayItem, bool) {
	o.log = append(o.log, ChatLine{Name: name, Content: content, At: o.now()})
	if o.mode != ModeOverlay {
		return OverlayItem{}, false
	}
	return o.spawn(fmt.Sprintf("%s: %s", name, content)), true
}

// AppendSystem logs a local system line. System lines never float.
func (o *Overlay) AppendSystem(content string) {
	o.log = append(o.log, ChatLine{Content: content, System: true, At: o.now()})
}

func (o *Overlay) spawn(text string) OverlayItem {
	lanes := o.Lanes()
	lane := min(int(o.float()*float64(lanes)), lanes-1)

	item := OverlayItem{
		ID:        uuid.New(),
		Text:      text,
		Lane:      lane,
		Top:       overlayTopMargin + lane*overlayLaneHeight,
		Duration:  overlayMinDuration + time.Duration(o.float()*float64(overlaySpread)),
		SpawnedAt: o.now(),
	}
	o.items = append(o.items, item)

	return item
}

func (o *Overlay) float() float64 {
	f := o.rnd.Float64()
	if f < 0 || f >= 1 {
		return 0
	}
	return f
}

// Sweep removes items whose traversal finished at or before now and
// returns how many were removed.
func (o *Overlay) Sweep(now time.Time) int {
	kept := o.items[:0]
	for _, it := range o.items {
		if now.Before(it.ExpiresAt()) {
			kept = append(kept, it)
		}
	}
	removed := len(o.items) - len(kept)
	clear(o.items[len(kept):])
	o.items = kept
	return removed
}

func (o *Overlay) Log() []ChatLine {
	return append([]ChatLine(nil), o.log...)
}

func (o *Overlay) Items() []OverlayItem {
	return append([]OverlayItem(nil), o.items...)
}

// ChatView is the rendered chat channel.
type ChatView struct {
	Title      string        `json:"title"`
	Mode       OverlayMode   `json:"mode"`
	LogVisible bool          `json:"logVisible"`
	Lines      []ChatLine    `json:"lines"`
	Overlay    []OverlayItem `json:"overlay"`
}

func (o *Overlay) View() ChatView {
	return ChatView{
		Title:      o.Title(),
		Mode:       o.mode,
		LogVisible: o.LogVisible(),
		Lines:      o.Log(),
		Overlay:    o.Items(),
	}
}
