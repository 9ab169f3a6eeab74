/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package telephone

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	overlaySweepInterval = 250 * time.Millisecond
	commandBuffer        = 16
)

// Transport is the outbound half of the room connection.
type Transport interface {
	Open() bool
	Send(ClientMessage) bool
}

// Stream is a Transport that also delivers inbound frames in arrival order.
// Frames is closed when the connection ends; Err then says why.
type Stream interface {
	Transport
	Frames() <-chan []byte
	Err() error
}

type Options struct {
	RoomID string
	Name   string

	CanvasWidth  int
	CanvasHeight int
	PixelRatio   float64
	Brush        Brush

	// ChatRate <= 0 disables chat throttling.
	ChatRate  rate.Limit
	ChatBurst int

	// Rand places overlay items; nil uses a freshly seeded source.
	Rand     Rand
	Now      func() time.Time
	Renderer Renderer
	Logger   *zerolog.Logger
}

// Session is the client's controller. It owns all game state, applies
// inbound server messages one at a time through Dispatch, and is the only
// component that writes to the transport.
//
// Dispatch and the player action methods must be called from a single
// goroutine; Run provides that goroutine and Post queues work onto it.
// Snapshot is safe from any goroutine.
type Session struct {
	roomID string
	name   string
	log    zerolog.Logger
	out    Renderer
	now    func() time.Time

	transport Transport
	connected bool

	roster    Roster
	self      Identity
	phase     Phase
	task      *Task
	status    string
	screen    Screen
	replay    Replayer
	overlay   *Overlay
	presenter *Presenter
	chat      *rate.Limiter

	lastDrawing string

	commands chan func(*Session)

	mu       sync.RWMutex
	snapshot View
}

func New(opts Options) *Session {
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = opts.Logger.With().Str("room", opts.RoomID).Logger()
	}
	out := opts.Renderer
	if out == nil {
		out = nopRenderer{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	limit := opts.ChatRate
	if limit <= 0 {
		limit = rate.Inf
	}

	canvas := NewCanvas(opts.CanvasWidth, opts.CanvasHeight, opts.PixelRatio)
	if opts.Brush.Size > 0 {
		canvas.SetBrush(opts.Brush)
	}
	_, height := canvas.DisplaySize()

	s := &Session{
		roomID:    opts.RoomID,
		name:      opts.Name,
		log:       log,
		out:       out,
		now:       now,
		phase:     PhaseIdle,
		status:    "Waiting",
		overlay:   NewOverlay(height, opts.Rand, now),
		presenter: NewPresenter(canvas),
		chat:      rate.NewLimiter(limit, max(opts.ChatBurst, 1)),
		commands:  make(chan func(*Session), commandBuffer),
	}
	s.publish()

	return s
}

// Connect dials the room and announces this player.
func (s *Session) Connect(ctx context.Context, server string) (*Conn, error) {
	conn, err := Dial(ctx, server, s.roomID, s.log)
	if err != nil {
		s.overlay.AppendSystem("Could not connect to the server.")
		s.render()
		return nil, err
	}
	s.Open(conn)
	return conn, nil
}

// Open adopts an already-connected transport, sends the join announcement
// and waits in Idle for the server's roster.
func (s *Session) Open(t Transport) {
	s.transport = t
	s.connected = true
	s.phase = PhaseIdle
	_ = s.send(joinMessage(s.name))
	s.overlay.AppendSystem(fmt.Sprintf("Connected to room %s", s.roomID))
	s.log.Info().Str("name", s.name).Msg("joined room")
	s.render()
}

// Disconnected records the loss of the transport. Game state is kept.
func (s *Session) Disconnected(err error) {
	s.connected = false
	if err != nil && !errors.Is(err, ErrConnClosed) {
		s.log.Warn().Err(err).Msg("connection lost")
		s.overlay.AppendSystem("Connection error.")
	}
	s.overlay.AppendSystem("Disconnected from the server.")
	s.render()
}

// Run applies inbound frames and queued commands until ctx is done. It
// keeps running after the stream ends so local state stays browsable. A
// nil stream runs the session offline, e.g. after a failed Connect.
func (s *Session) Run(ctx context.Context, stream Stream) error {
	ticker := time.NewTicker(overlaySweepInterval)
	defer ticker.Stop()

	var frames <-chan []byte
	if stream != nil {
		frames = stream.Frames()
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data, ok := <-frames:
			if !ok {
				frames = nil
				s.Disconnected(stream.Err())
				continue
			}
			s.HandleFrame(data)
		case fn := <-s.commands:
			fn(s)
		case <-ticker.C:
			if s.overlay.Sweep(s.now()) > 0 {
				s.render()
			}
		}
	}
}

// Post queues fn to run on the Run goroutine.
func (s *Session) Post(ctx context.Context, fn func(*Session)) error {
	select {
	case s.commands <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HandleFrame decodes and dispatches one raw inbound frame. Malformed
// frames are logged and dropped.
func (s *Session) HandleFrame(data []byte) {
	msg, err := DecodeServerMessage(data)
	if err != nil {
		s.log.Warn().Err(err).Int("bytes", len(data)).Msg("dropping inbound frame")
		return
	}
	s.Dispatch(msg)
}

// Dispatch applies one server message. Unknown types are logged and
// ignored; no message can leave the session in a partial state.
func (s *Session) Dispatch(msg ServerMessage) {
	switch msg.Type {
	case MsgPlayerJoined:
		s.onPlayerJoined(msg)
	case MsgPlayerLeft:
		s.onPlayerLeft(msg)
	case MsgGameStarted:
		s.onGameStarted(msg)
	case MsgTaskAssigned:
		s.onTaskAssigned(msg)
	case MsgStepSubmitted:
		s.onStepSubmitted(msg)
	case MsgRevealAll:
		s.onRevealAll(msg)
	case MsgChat:
		s.onChat(msg)
	case MsgChainRated:
		s.onChainRated(msg)
	case MsgRoomReset:
		s.onRoomReset()
	case MsgError:
		s.onError(msg)
	default:
		s.log.Debug().Str("type", msg.Type).Msg("ignoring unknown message type")
	}
}

func (s *Session) onPlayerJoined(msg ServerMessage) {
	s.roster = Roster(msg.Players).clone()
	s.self = resolveIdentity(s.roster, s.name)
	s.overlay.AppendSystem("A new player joined.")
	s.render()
}

func (s *Session) onPlayerLeft(msg ServerMessage) {
	s.roster = s.roster.Without(msg.Name)
	s.self = resolveIdentity(s.roster, s.name)
	s.overlay.AppendSystem(fmt.Sprintf("%s left the room.", msg.Name))
	s.render()
}

func (s *Session) onGameStarted(msg ServerMessage) {
	// The server may hand out the first task before announcing the start,
	// so only a task left over from an earlier game is cleared here.
	fresh := s.phase != PhaseActive
	s.setPhase(PhaseActive, msg.Type)
	if fresh {
		s.task = nil
		s.showTask()
	}

	s.status = "Game in progress"
	if msg.PlayerCount > 0 {
		s.status = fmt.Sprintf("Game in progress (%d players, %d steps)", msg.PlayerCount, msg.MaxSteps)
	}
	s.overlay.AppendSystem("The game has started!")
	s.render()
}

func (s *Session) onTaskAssigned(msg ServerMessage) {
	task, err := taskFromMessage(msg)
	if err != nil {
		s.log.Warn().Err(err).Msg("ignoring task assignment")
		return
	}

	s.setPhase(PhaseActive, msg.Type)
	s.task = &task
	s.showTask()
	s.log.Debug().Str("chain", task.ChainID).Int("step", task.StepIndex).Str("kind", string(task.Kind)).Msg("task assigned")
	s.render()
}

func (s *Session) onStepSubmitted(msg ServerMessage) {
	what := "a word"
	if msg.StepType == KindDrawing {
		what = "a drawing"
	}
	s.overlay.AppendSystem(fmt.Sprintf("A player submitted %s.", what))
	s.render()
}

func (s *Session) onRevealAll(msg ServerMessage) {
	s.setPhase(PhaseReplaying, msg.Type)
	s.replay.Load(msg.Chains)
	s.screen = ScreenReveal
	s.status = "Voting"
	s.render()
}

func (s *Session) onChat(msg ServerMessage) {
	s.overlay.AppendChat(msg.PlayerName, msg.Content)
	s.render()
}

func (s *Session) onChainRated(msg ServerMessage) {
	accepted := s.replay.Rate(Tally{
		ChainID:      msg.ChainID,
		OkCount:      msg.OkCount,
		BadCount:     msg.BadCount,
		TotalPlayers: msg.TotalPlayers,
		Finished:     msg.Finished,
	})
	if !accepted {
		s.log.Debug().Str("chain", msg.ChainID).Msg("ignoring tally for a chain not on screen")
		return
	}
	s.render()
}

func (s *Session) onRoomReset() {
	s.setPhase(PhaseIdle, MsgRoomReset)
	s.task = nil
	s.replay.Reset()
	s.showTask()
	s.status = "Waiting"
	s.screen = ScreenRoom
	s.overlay.AppendSystem("The room was reset. A new game can be started.")
	s.render()
}

func (s *Session) onError(msg ServerMessage) {
	text := msg.Message
	if text == "" {
		text = "An error occurred."
	}
	s.log.Info().Str("message", text).Msg("server error")
	s.out.Notice(text)
}

func (s *Session) setPhase(next Phase, cause string) {
	if !s.phase.CanTransitionTo(next) {
		s.log.Warn().
			Stringer("from", s.phase).
			Stringer("to", next).
			Str("cause", cause).
			Msg("unexpected phase transition")
	}
	s.phase = next
}

// showTask re-presents the task area and keeps drawing-phase mode in step
// with it.
func (s *Session) showTask() {
	s.presenter.Show(s.task, s.phase)
	if s.presenter.DrawingPhase() {
		s.overlay.SetMode(ModeOverlay)
	} else {
		s.overlay.SetMode(ModeLog)
	}
}

// send is the single outbound path. It drops the message when the
// transport is not open, or when an open transport refuses it.
func (s *Session) send(msg ClientMessage) error {
	if s.transport == nil || !s.transport.Open() {
		s.log.Debug().Str("type", msg.Type).Msg("not connected, dropping outbound message")
		return ErrNotConnected
	}
	if !s.transport.Send(msg) {
		s.log.Warn().Str("type", msg.Type).Msg("outbound message dropped")
		return ErrSendDropped
	}
	return nil
}

func (s *Session) isOpen() bool {
	return s.transport != nil && s.transport.Open()
}

func (s *Session) reject(err error, notice string) error {
	s.out.Notice(notice)
	return err
}

// StartGame asks the server to start a game. Host only.
func (s *Session) StartGame() error {
	if !s.isOpen() {
		return ErrNotConnected
	}
	if !s.self.IsHost() {
		return s.reject(ErrNotHost, "Only the host can start the game.")
	}
	return s.send(ClientMessage{Type: MsgStartGame})
}

// Restart asks the server to reset the room. Host only.
func (s *Session) Restart() error {
	if !s.isOpen() {
		return ErrNotConnected
	}
	if !s.self.IsHost() {
		return s.reject(ErrNotHost, "Only the host can restart the game.")
	}
	return s.send(ClientMessage{Type: MsgRestart})
}

// SendChat sends a chat line. Chat works in every phase.
func (s *Session) SendChat(text string) error {
	content := strings.TrimSpace(text)
	if content == "" {
		return ErrEmptyChat
	}
	if !s.isOpen() {
		return ErrNotConnected
	}
	if !s.chat.AllowN(s.now(), 1) {
		return s.reject(ErrChatThrottled, "You're sending messages too quickly.")
	}
	return s.send(chatMessage(content))
}

// TypeWord replaces the word being entered for the current task.
func (s *Session) TypeWord(text string) {
	s.presenter.SetWord(text)
}

// SubmitWord sends the typed word for the current word task and clears
// the task without waiting for the server.
func (s *Session) SubmitWord() error {
	msg, err := s.presenter.wordSubmission(s.task)
	switch {
	case errors.Is(err, ErrEmptyWord):
		return s.reject(err, "Please enter a word.")
	case err != nil:
		return err
	}
	if err := s.send(msg); err != nil {
		return err
	}
	s.completeTask()
	return nil
}

// SubmitDrawing exports the canvas once and sends it for the current
// drawing task, then clears the task without waiting for the server.
func (s *Session) SubmitDrawing() error {
	err := s.presenter.drawingReady(s.task)
	switch {
	case errors.Is(err, ErrBlankDrawing):
		return s.reject(err, "Draw something before submitting.")
	case err != nil:
		return err
	}
	if !s.isOpen() {
		return ErrNotConnected
	}

	data, err := s.presenter.Canvas().Export()
	if err != nil {
		s.log.Error().Err(err).Msg("exporting drawing")
		return s.reject(err, "Could not export the drawing.")
	}
	if err := s.send(submitDrawingMessage(s.task.ChainID, data)); err != nil {
		return err
	}
	s.lastDrawing = data
	s.completeTask()
	return nil
}

func (s *Session) completeTask() {
	s.task = nil
	s.showTask()
	s.render()
}

// Vote rates the chain currently on screen.
func (s *Session) Vote(ok bool) error {
	ch, shown := s.replay.Current()
	if !shown {
		return ErrNoChain
	}
	return s.send(rateChainMessage(ch.ChainID, ok))
}

// NextChain advances the replay once the current vote has finished.
func (s *Session) NextChain() error {
	if !s.replay.CanAdvance() {
		return ErrAdvanceDisabled
	}
	s.replay.Advance()
	s.render()
	return nil
}

// ShowRoom returns from the reveal screen to the room screen.
func (s *Session) ShowRoom() {
	s.screen = ScreenRoom
	s.render()
}

// PointerDown, PointerMove and PointerUp feed the canvas. Input is ignored
// unless the drawing panel is shown.
func (s *Session) PointerDown(p Point) {
	if !s.presenter.DrawingPhase() {
		return
	}
	s.presenter.Canvas().PointerDown(p)
}

func (s *Session) PointerMove(p Point) {
	if !s.presenter.DrawingPhase() {
		return
	}
	s.presenter.Canvas().PointerMove(p)
}

func (s *Session) PointerUp() {
	s.presenter.Canvas().PointerUp()
	s.render()
}

func (s *Session) ToggleEraser() DrawMode {
	m := s.presenter.Canvas().ToggleEraser()
	s.render()
	return m
}

func (s *Session) ClearCanvas() {
	s.presenter.Canvas().Clear()
	s.render()
}

func (s *Session) SetBrush(b Brush) {
	s.presenter.Canvas().SetBrush(b)
}

func (s *Session) Phase() Phase {
	return s.phase
}

// Task returns a copy of the current task, or nil when none is owed.
func (s *Session) Task() *Task {
	if s.task == nil {
		return nil
	}
	t := *s.task
	return &t
}

func (s *Session) Self() Identity {
	return s.self
}

func (s *Session) Roster() Roster {
	return s.roster.clone()
}

func (s *Session) Canvas() *Canvas {
	return s.presenter.Canvas()
}

// Snapshot returns the most recently rendered view.
func (s *Session) Snapshot() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

func (s *Session) render() {
	s.out.Render(s.publish())
}

func (s *Session) publish() View {
	canvas := s.presenter.Canvas()
	v := View{
		RoomID:      s.roomID,
		Connected:   s.connected,
		Screen:      s.screen,
		Phase:       s.phase,
		Status:      s.status,
		Self:        s.self,
		Host:        s.self.IsHost(),
		Roster:      rosterView(s.roster, s.self),
		Task:        s.presenter.Panel(),
		Tool:        canvas.Mode(),
		Drawn:       canvas.HasContent(),
		Replay:      s.replay.View(),
		Chat:        s.overlay.View(),
		LastDrawing: s.lastDrawing,
	}

	s.mu.Lock()
	s.snapshot = v
	s.mu.Unlock()

	return v
}
