/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package telephone

import (
	"fmt"
	"strings"
)

// Task is the submission this client currently owes.
type Task struct {
	ChainID            string   `json:"chainId"`
	StepIndex          int      `json:"stepIndex"`
	Kind               StepKind `json:"kind"`
	PredecessorKind    StepKind `json:"predecessorKind,omitempty"`
	PredecessorContent string   `json:"predecessorContent,omitempty"`
	FromPlayerIndex    int      `json:"fromPlayerIndex"`
}

func taskFromMessage(m ServerMessage) (Task, error) {
	if m.ChainID == "" {
		return Task{}, fmt.Errorf("task without chain id")
	}
	if !m.TaskType.Valid() {
		return Task{}, fmt.Errorf("unknown task type %q", m.TaskType)
	}

	t := Task{
		ChainID:         m.ChainID,
		StepIndex:       m.StepIndex,
		Kind:            m.TaskType,
		PredecessorKind: m.PrevStepType,
		FromPlayerIndex: m.FromPlayerIndex,
	}

	switch {
	case t.PredecessorKind == KindDrawing:
		t.PredecessorContent = m.PrevDrawingID
	case m.PrevWord != "":
		t.PredecessorKind = KindWord
		t.PredecessorContent = m.PrevWord
	case m.PrevDrawingID != "":
		t.PredecessorKind = KindDrawing
		t.PredecessorContent = m.PrevDrawingID
	}

	return t, nil
}

// Panel is the rendered task area.
type Panel struct {
	Kind        PanelKind `json:"kind"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ChainID     string    `json:"chainId,omitempty"`
	StepIndex   int       `json:"stepIndex"`
	Reference   string    `json:"reference,omitempty"` // previous drawing to describe
}

// PresentTask maps the current task onto one of the three panels.
func PresentTask(task *Task, phase Phase) Panel {
	if task == nil {
		if phase == PhaseActive {
			return Panel{
				Kind:        PanelWaiting,
				Title:       "Waiting",
				Description: "Waiting for the other players to finish this step.",
			}
		}
		return Panel{
			Kind:        PanelWaiting,
			Title:       "Waiting to start",
			Description: "Waiting for the host to start the game.",
		}
	}

	p := Panel{ChainID: task.ChainID, StepIndex: task.StepIndex}

	switch task.Kind {
	case KindWord:
		p.Kind = PanelWord
		p.Title = fmt.Sprintf("Step %d: write a word", task.StepIndex)
		if task.PredecessorKind == KindDrawing {
			p.Description = "Write the word you think the previous player's drawing shows."
			p.Reference = task.PredecessorContent
		} else {
			p.Description = "Enter your starting word (don't tell the other players)."
		}
	case KindDrawing:
		p.Kind = PanelDrawing
		p.Title = fmt.Sprintf("Step %d: draw", task.StepIndex)
		if task.PredecessorKind == KindWord && task.PredecessorContent != "" {
			p.Description = fmt.Sprintf("Draw “%s”. No writing!", task.PredecessorContent)
		} else {
			p.Description = "Draw what the previous player gave you."
		}
	default:
		p.Kind = PanelWaiting
		p.Title = "Waiting"
		p.Description = "Waiting for the other players to finish this step."
	}

	return p
}

// Presenter owns the task area's input state: the word being typed and
// the drawing canvas. Every Show wipes both.
type Presenter struct {
	canvas *Canvas
	word   string
	panel  Panel
}

func NewPresenter(c *Canvas) *Presenter {
	p := &Presenter{canvas: c}
	p.panel = PresentTask(nil, PhaseIdle)
	return p
}

// Show switches the task area to the panel for task, clearing any input
// left over from the previous task.
func (p *Presenter) Show(task *Task, phase Phase) Panel {
	p.word = ""
	p.canvas.Clear()
	p.canvas.SetMode(DrawInk)
	p.panel = PresentTask(task, phase)
	return p.panel
}

func (p *Presenter) Panel() Panel {
	return p.panel
}

// DrawingPhase is true exactly while the drawing panel is shown.
func (p *Presenter) DrawingPhase() bool {
	return p.panel.Kind == PanelDrawing
}

func (p *Presenter) Canvas() *Canvas {
	return p.canvas
}

func (p *Presenter) SetWord(s string) {
	p.word = s
}

func (p *Presenter) Word() string {
	return p.word
}

func (p *Presenter) wordSubmission(task *Task) (ClientMessage, error) {
	if task == nil || task.Kind != KindWord {
		return ClientMessage{}, ErrNoTask
	}
	word := strings.TrimSpace(p.word)
	if word == "" {
		return ClientMessage{}, ErrEmptyWord
	}
	return submitWordMessage(task.ChainID, word), nil
}

func (p *Presenter) drawingReady(task *Task) error {
	if task == nil || task.Kind != KindDrawing {
		return ErrNoTask
	}
	if !p.canvas.HasContent() {
		return ErrBlankDrawing
	}
	return nil
}
