package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/Seednode/partybox-telephone/games/telephone"
	"github.com/stretchr/testify/assert"
)

func TestTerminal_PrintsOnlyChanges(t *testing.T) {
	var out bytes.Buffer
	term := newTerminal(&out)

	v := testView()
	v.Chat.Lines = []telephone.ChatLine{{Content: "Connected to room 1", System: true, At: time.Now()}}

	term.Render(v)
	first := out.String()
	assert.Contains(t, first, "* Connected to room 1")
	assert.Contains(t, first, "Players: 🦊 #0 ana (host) (you)")
	assert.Contains(t, first, "== Waiting to start ==")

	out.Reset()
	term.Render(v)
	assert.Empty(t, out.String(), "an unchanged view prints nothing")

	v.Chat.Lines = append(v.Chat.Lines, telephone.ChatLine{Name: "bo", Content: "hi"})
	term.Render(v)
	assert.Equal(t, "bo: hi\n", out.String())
}

func TestTerminal_TaskPrompts(t *testing.T) {
	var out bytes.Buffer
	term := newTerminal(&out)

	v := testView()
	v.Task = telephone.PresentTask(&telephone.Task{ChainID: "c", StepIndex: 1, Kind: telephone.KindDrawing, PredecessorKind: telephone.KindWord, PredecessorContent: "volcano"}, telephone.PhaseActive)
	term.Render(v)

	assert.Contains(t, out.String(), "volcano")
	assert.Contains(t, out.String(), "/draw")
}

func TestTerminal_Replay(t *testing.T) {
	var out bytes.Buffer
	term := newTerminal(&out)

	var r telephone.Replayer
	r.Load([]telephone.Chain{{ChainID: "c1", Steps: []telephone.Step{
		{FromPlayerIndex: 0, ToPlayerIndex: 1, Type: telephone.KindWord, Word: "kite"},
		{FromPlayerIndex: 1, ToPlayerIndex: 0, Type: telephone.KindDrawing, DrawingID: "data:image/png;base64,AAAA"},
	}}})

	v := testView()
	v.Screen = telephone.ScreenReveal
	v.Replay = r.View()
	term.Render(v)

	got := out.String()
	assert.Contains(t, got, "Chain 1 / 1")
	assert.Contains(t, got, "P0 → P1: kite")
	assert.Contains(t, got, "[drawing")
	assert.Contains(t, got, "/ok")

	out.Reset()
	r.Rate(telephone.Tally{ChainID: "c1", OkCount: 2, TotalPlayers: 2, Finished: true})
	v.Replay = r.View()
	term.Render(v)

	got = out.String()
	assert.NotContains(t, got, "kite", "the chain is not printed twice")
	assert.Contains(t, got, "✓ 2 / ✗ 0 (2 players)")
	assert.Contains(t, got, "/next")
}

func TestTerminal_Notice(t *testing.T) {
	var out bytes.Buffer
	term := newTerminal(&out)

	term.Notice("Room is full")

	assert.Equal(t, "! Room is full\n", out.String())
	assert.False(t, strings.Contains(out.String(), "=="))
}
