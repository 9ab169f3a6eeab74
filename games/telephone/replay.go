/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package telephone

import "fmt"

// ReplayState is where the replayer is within the reveal set.
type ReplayState int

const (
	ReplayEmpty     ReplayState = iota // no reveal set, or an empty one
	ReplayShowing                      // showing the chain at the cursor
	ReplayExhausted                    // cursor moved past the last chain
)

func (s ReplayState) String() string {
	switch s {
	case ReplayShowing:
		return "showing"
	case ReplayExhausted:
		return "exhausted"
	}
	return "empty"
}

func (s ReplayState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Verdict is the outcome of a finished vote.
type Verdict int

const (
	VerdictPending Verdict = iota
	VerdictPositive
	VerdictNegative
	VerdictNeutral
)

func (v Verdict) String() string {
	switch v {
	case VerdictPositive:
		return "positive"
	case VerdictNegative:
		return "negative"
	case VerdictNeutral:
		return "neutral"
	}
	return "pending"
}

func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v Verdict) Text() string {
	switch v {
	case VerdictPositive:
		return "✅ This chain held together"
	case VerdictNegative:
		return "❌ This chain went off the rails"
	case VerdictNeutral:
		return "➖ It's a tie"
	}
	return ""
}

// Tally is the running vote count for one chain.
type Tally struct {
	ChainID      string `json:"chainId"`
	OkCount      int    `json:"okCount"`
	BadCount     int    `json:"badCount"`
	TotalPlayers int    `json:"totalPlayers"`
	Finished     bool   `json:"finished"`
}

// Verdict is pending until the tally is finished.
func (t Tally) Verdict() Verdict {
	switch {
	case !t.Finished:
		return VerdictPending
	case t.OkCount > t.BadCount:
		return VerdictPositive
	case t.OkCount < t.BadCount:
		return VerdictNegative
	}
	return VerdictNeutral
}

// Replayer steps through a reveal set one chain at a time. The cursor only
// moves forward; once past the last chain the set is exhausted for good.
type Replayer struct {
	chains []Chain
	cursor int
	tally  *Tally // single slot, for the chain at the cursor only
}

// Load replaces the reveal set and shows its first chain.
func (r *Replayer) Load(chains []Chain) {
	r.chains = make([]Chain, len(chains))
	for i, ch := range chains {
		ch.Steps = append([]Step(nil), ch.Steps...)
		r.chains[i] = ch
	}
	r.cursor = 0
	r.tally = nil
}

// Reset drops the reveal set entirely.
func (r *Replayer) Reset() {
	r.chains = nil
	r.cursor = 0
	r.tally = nil
}

func (r *Replayer) State() ReplayState {
	switch {
	case len(r.chains) == 0:
		return ReplayEmpty
	case r.cursor >= len(r.chains):
		return ReplayExhausted
	}
	return ReplayShowing
}

func (r *Replayer) Cursor() int {
	return r.cursor
}

func (r *Replayer) Len() int {
	return len(r.chains)
}

// Current returns the chain at the cursor, if one is being shown.
func (r *Replayer) Current() (Chain, bool) {
	if r.State() != ReplayShowing {
		return Chain{}, false
	}
	return r.chains[r.cursor], true
}

// Tally returns the tally for the current chain, if any votes arrived.
func (r *Replayer) Tally() (Tally, bool) {
	if r.tally == nil {
		return Tally{}, false
	}
	return *r.tally, true
}

// Rate records t if it belongs to the chain at the cursor and reports
// whether it was accepted. Tallies for any other chain are dropped.
func (r *Replayer) Rate(t Tally) bool {
	ch, ok := r.Current()
	if !ok || ch.ChainID != t.ChainID {
		return false
	}
	r.tally = &t
	return true
}

// CanAdvance is true once the current chain's vote has finished.
func (r *Replayer) CanAdvance() bool {
	return r.State() == ReplayShowing && r.tally != nil && r.tally.Finished
}

// Advance moves the cursor forward one chain, stopping at Exhausted.
func (r *Replayer) Advance() ReplayState {
	if r.cursor < len(r.chains) {
		r.cursor++
		r.tally = nil
	}
	return r.State()
}

// StepView is one rendered step of a chain.
type StepView struct {
	Label string   `json:"label"`
	Kind  StepKind `json:"kind"`
	Text  string   `json:"text,omitempty"`
	Image string   `json:"image,omitempty"`
}

func stepView(s Step) StepView {
	v := StepView{
		Label: fmt.Sprintf("P%d → P%d", s.FromPlayerIndex, s.ToPlayerIndex),
		Kind:  s.Type,
	}
	if s.Type == KindDrawing {
		v.Image = s.DrawingID
		return v
	}
	v.Text = s.Word
	if v.Text == "" {
		v.Text = "(empty)"
	}
	return v
}

// ReplayView is the rendered reveal screen.
type ReplayView struct {
	State          ReplayState `json:"state"`
	Position       int         `json:"position"`
	Total          int         `json:"total"`
	Progress       string      `json:"progress"`
	OwnerIndex     int         `json:"ownerIndex"`
	Steps          []StepView  `json:"steps,omitempty"`
	Final          *StepView   `json:"final,omitempty"`
	TallyText      string      `json:"tallyText"`
	Verdict        Verdict     `json:"verdict"`
	VerdictText    string      `json:"verdictText,omitempty"`
	AdvanceEnabled bool        `json:"advanceEnabled"`
}

func (r *Replayer) View() ReplayView {
	v := ReplayView{State: r.State(), Total: len(r.chains)}

	switch v.State {
	case ReplayEmpty:
		v.Progress = "No chain results."
		return v
	case ReplayExhausted:
		v.Position = len(r.chains)
		v.Progress = "Every chain this round has been judged 🎉"
		v.TallyText = "Thanks for playing!"
		return v
	}

	ch := r.chains[r.cursor]
	v.Position = r.cursor + 1
	v.OwnerIndex = ch.OwnerIndex
	v.Progress = fmt.Sprintf("Chain %d / %d (started by player #%d)", v.Position, v.Total, ch.OwnerIndex)

	v.Steps = make([]StepView, 0, len(ch.Steps))
	for _, s := range ch.Steps {
		v.Steps = append(v.Steps, stepView(s))
	}
	if n := len(v.Steps); n > 0 {
		final := v.Steps[n-1]
		v.Final = &final
	}

	v.TallyText = "Waiting for everyone to vote..."
	if t, ok := r.Tally(); ok {
		v.TallyText = fmt.Sprintf("✓ %d / ✗ %d (%d players)", t.OkCount, t.BadCount, t.TotalPlayers)
		v.Verdict = t.Verdict()
		v.VerdictText = v.Verdict.Text()
	}
	v.AdvanceEnabled = r.CanAdvance()

	return v
}
