/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/Seednode/partybox-telephone/games/telephone"
)

// terminal renders session views as plain text, printing only what
// changed since the previous view.
type terminal struct {
	mu  sync.Mutex
	out io.Writer

	lines   int
	status  string
	panel   telephone.Panel
	roster  string
	replay  string
	verdict string
	screen  telephone.Screen
}

func newTerminal(out io.Writer) *terminal {
	return &terminal{out: out}
}

func (t *terminal) Notice(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(t.out, "! %s\n", msg)
}

func (t *terminal) Println(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintln(t.out, text)
}

func (t *terminal) Render(v telephone.View) {
	t.mu.Lock()
	defer t.mu.Unlock()

	lines := v.Chat.Lines
	if t.lines > len(lines) {
		t.lines = 0
	}
	for _, l := range lines[t.lines:] {
		fmt.Fprintln(t.out, l.String())
	}
	t.lines = len(lines)

	if roster := rosterText(v.Roster); roster != t.roster {
		t.roster = roster
		if roster != "" {
			fmt.Fprintf(t.out, "Players: %s\n", roster)
		}
	}

	if v.Status != t.status {
		t.status = v.Status
		fmt.Fprintf(t.out, "[%s] %s\n", v.Phase, v.Status)
	}

	if v.Screen != t.screen {
		t.screen = v.Screen
		t.replay = ""
		t.verdict = ""
		if v.Screen == telephone.ScreenRoom {
			t.panel = telephone.Panel{}
		}
	}

	if v.Screen == telephone.ScreenReveal {
		t.renderReplay(v.Replay)
		return
	}

	if v.Task != t.panel {
		t.panel = v.Task
		fmt.Fprintf(t.out, "== %s ==\n%s\n", v.Task.Title, v.Task.Description)
		switch v.Task.Kind {
		case telephone.PanelWord:
			fmt.Fprintln(t.out, "Type /word <your word> to submit.")
		case telephone.PanelDrawing:
			fmt.Fprintln(t.out, "Draw with /draw x,y x,y ..., then /submit.")
		}
	}
}

func (t *terminal) renderReplay(r telephone.ReplayView) {
	if r.Progress != t.replay {
		t.replay = r.Progress
		t.verdict = ""
		fmt.Fprintf(t.out, "== %s ==\n", r.Progress)
		for _, s := range r.Steps {
			fmt.Fprintf(t.out, "  %s\n", stepLine(s))
		}
		if r.State == telephone.ReplayShowing {
			fmt.Fprintln(t.out, "Vote with /ok or /bad.")
		}
	}

	verdict := r.TallyText + "|" + r.VerdictText
	if verdict == t.verdict {
		return
	}
	t.verdict = verdict

	if r.TallyText != "" {
		fmt.Fprintln(t.out, r.TallyText)
	}
	if r.VerdictText != "" {
		fmt.Fprintln(t.out, r.VerdictText)
	}
	if r.AdvanceEnabled {
		fmt.Fprintln(t.out, "Type /next for the next chain.")
	}
}

func rosterLine(e telephone.RosterEntry) string {
	line := fmt.Sprintf("%s #%d %s", e.Avatar, e.Index, e.Name)
	if e.Host {
		line += " (host)"
	}
	if e.Self {
		line += " (you)"
	}
	return line
}

func rosterText(entries []telephone.RosterEntry) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, rosterLine(e))
	}
	return strings.Join(parts, ", ")
}

func stepLine(s telephone.StepView) string {
	if s.Kind == telephone.KindDrawing {
		return fmt.Sprintf("%s: [drawing, %d bytes]", s.Label, len(s.Image))
	}
	return fmt.Sprintf("%s: %s", s.Label, s.Text)
}
