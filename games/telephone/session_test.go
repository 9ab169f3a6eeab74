package telephone

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	mu       sync.Mutex
	closed   bool
	dropping bool
	sent     []ClientMessage
	frames   chan []byte
	err      error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{frames: make(chan []byte, 16)}
}

func (f *fakeTransport) Open() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.closed
}

func (f *fakeTransport) Send(msg ClientMessage) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || f.dropping {
		return false
	}
	f.sent = append(f.sent, msg)
	return true
}

func (f *fakeTransport) Frames() <-chan []byte { return f.frames }
func (f *fakeTransport) Err() error            { return f.err }

func (f *fakeTransport) close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *fakeTransport) drop(on bool) {
	f.mu.Lock()
	f.dropping = on
	f.mu.Unlock()
}

func (f *fakeTransport) messages() []ClientMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ClientMessage(nil), f.sent...)
}

func (f *fakeTransport) last() ClientMessage {
	msgs := f.messages()
	if len(msgs) == 0 {
		return ClientMessage{}
	}
	return msgs[len(msgs)-1]
}

type recordingRenderer struct {
	mu      sync.Mutex
	views   []View
	notices []string
}

func (r *recordingRenderer) Render(v View) {
	r.mu.Lock()
	r.views = append(r.views, v)
	r.mu.Unlock()
}

func (r *recordingRenderer) Notice(msg string) {
	r.mu.Lock()
	r.notices = append(r.notices, msg)
	r.mu.Unlock()
}

func (r *recordingRenderer) noticeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notices)
}

func (r *recordingRenderer) renders() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

func newTestSession(t *testing.T, name string) (*Session, *fakeTransport, *recordingRenderer) {
	t.Helper()

	out := &recordingRenderer{}
	s := New(Options{
		RoomID:       "1",
		Name:         name,
		CanvasWidth:  100,
		CanvasHeight: 80,
		PixelRatio:   1,
		Renderer:     out,
	})
	tr := newFakeTransport()
	s.Open(tr)

	return s, tr, out
}

func joined(players ...Player) ServerMessage {
	return ServerMessage{Type: MsgPlayerJoined, Players: players}
}

func TestSession_OpenSendsJoin(t *testing.T) {
	s, tr, _ := newTestSession(t, "ana")

	require.Len(t, tr.messages(), 1)
	assert.Equal(t, ClientMessage{Type: MsgJoin, Name: "ana"}, tr.last())
	assert.Equal(t, PhaseIdle, s.Phase())

	v := s.Snapshot()
	assert.True(t, v.Connected)
	assert.Equal(t, PanelWaiting, v.Task.Kind)
	require.NotEmpty(t, v.Chat.Lines)
	assert.Contains(t, v.Chat.Lines[0].Content, "room 1")
}

func TestSession_RosterResolvesSelf(t *testing.T) {
	s, _, _ := newTestSession(t, "bo")

	s.Dispatch(joined(Player{Index: 0, Name: "ana"}, Player{Index: 1, Name: "bo"}))

	self := s.Self()
	assert.True(t, self.Resolved)
	assert.Equal(t, 1, self.Index)
	assert.False(t, s.Snapshot().Host)

	s.Dispatch(ServerMessage{Type: MsgPlayerLeft, Name: "ana"})

	assert.Equal(t, Roster{{Index: 1, Name: "bo"}}, s.Roster())
	assert.Equal(t, 1, s.Self().Index, "indices are never reassigned")
	assert.False(t, s.Self().IsHost())
}

func TestSession_RosterWithoutSelf(t *testing.T) {
	s, _, _ := newTestSession(t, "cy")

	s.Dispatch(joined(Player{Index: 0, Name: "ana"}))

	assert.False(t, s.Self().Resolved)
	assert.False(t, s.Snapshot().Host)
}

func TestSession_HostOnlyActions(t *testing.T) {
	s, tr, out := newTestSession(t, "bo")
	s.Dispatch(joined(Player{Index: 0, Name: "ana"}, Player{Index: 1, Name: "bo"}))

	assert.ErrorIs(t, s.StartGame(), ErrNotHost)
	assert.ErrorIs(t, s.Restart(), ErrNotHost)
	assert.Len(t, tr.messages(), 1, "only the join went out")
	assert.Equal(t, 2, out.noticeCount())

	h, htr, _ := newTestSession(t, "ana")
	h.Dispatch(joined(Player{Index: 0, Name: "ana"}))
	require.True(t, h.Snapshot().Host)

	require.NoError(t, h.StartGame())
	assert.Equal(t, ClientMessage{Type: MsgStartGame}, htr.last())
	require.NoError(t, h.Restart())
	assert.Equal(t, ClientMessage{Type: MsgRestart}, htr.last())
}

func TestSession_DrawingTask(t *testing.T) {
	s, tr, _ := newTestSession(t, "ana")
	s.Dispatch(ServerMessage{Type: MsgGameStarted, PlayerCount: 3, MaxSteps: 3})
	s.Dispatch(ServerMessage{
		Type:            MsgTaskAssigned,
		ChainID:         "c1",
		StepIndex:       1,
		TaskType:        KindDrawing,
		PrevStepType:    KindWord,
		PrevWord:        "volcano",
		FromPlayerIndex: 2,
	})

	v := s.Snapshot()
	assert.Equal(t, PhaseActive, v.Phase)
	assert.Equal(t, PanelDrawing, v.Task.Kind)
	assert.Contains(t, v.Task.Description, "volcano")
	assert.Equal(t, ModeOverlay, v.Chat.Mode, "drawing switches chat to overlay mode")
	assert.Contains(t, v.Status, "3 players")

	s.PointerDown(Point{10, 10})
	s.PointerMove(Point{60, 40})
	s.PointerUp()
	assert.True(t, s.Snapshot().Drawn)

	require.NoError(t, s.SubmitDrawing())

	assert.Nil(t, s.Task())
	msg := tr.last()
	assert.Equal(t, MsgSubmitDrawing, msg.Type)
	assert.Equal(t, "c1", msg.ChainID)
	assert.True(t, strings.HasPrefix(msg.DrawingID, "data:image/png;base64,"))

	img, err := DecodeDataURL(msg.DrawingID)
	require.NoError(t, err)
	assert.Equal(t, s.Canvas().Bounds(), img.Bounds())

	v = s.Snapshot()
	assert.Equal(t, PanelWaiting, v.Task.Kind)
	assert.Equal(t, ModeLog, v.Chat.Mode)
	assert.False(t, v.Drawn)
	assert.Equal(t, msg.DrawingID, v.LastDrawing)
}

func TestSession_BlankDrawingRejected(t *testing.T) {
	s, tr, out := newTestSession(t, "ana")
	s.Dispatch(ServerMessage{Type: MsgTaskAssigned, ChainID: "c1", TaskType: KindDrawing, PrevWord: "kite"})

	assert.ErrorIs(t, s.SubmitDrawing(), ErrBlankDrawing)
	assert.Len(t, tr.messages(), 1)
	assert.Equal(t, 1, out.noticeCount())
	assert.NotNil(t, s.Task())
}

func TestSession_PointerIgnoredOutsideDrawing(t *testing.T) {
	s, _, _ := newTestSession(t, "ana")
	s.Dispatch(ServerMessage{Type: MsgTaskAssigned, ChainID: "c1", TaskType: KindWord})

	s.PointerDown(Point{10, 10})
	s.PointerMove(Point{60, 40})
	s.PointerUp()

	assert.False(t, s.Canvas().HasContent())
}

func TestSession_WordTask(t *testing.T) {
	s, tr, out := newTestSession(t, "ana")
	s.Dispatch(ServerMessage{Type: MsgTaskAssigned, ChainID: "c1", TaskType: KindWord})
	assert.Equal(t, PanelWord, s.Snapshot().Task.Kind)

	s.TypeWord("   ")
	assert.ErrorIs(t, s.SubmitWord(), ErrEmptyWord)
	assert.Len(t, tr.messages(), 1, "blank word is never sent")
	assert.Equal(t, 1, out.noticeCount())
	require.NotNil(t, s.Task())

	s.TypeWord(" volcano ")
	require.NoError(t, s.SubmitWord())
	assert.Equal(t, ClientMessage{Type: MsgSubmitWord, ChainID: "c1", Word: "volcano"}, tr.last())
	assert.Nil(t, s.Task())
}

func TestSession_SubmitWithoutTask(t *testing.T) {
	s, tr, _ := newTestSession(t, "ana")

	assert.ErrorIs(t, s.SubmitWord(), ErrNoTask)
	assert.ErrorIs(t, s.SubmitDrawing(), ErrNoTask)
	assert.Len(t, tr.messages(), 1)
}

func TestSession_SubmitWhileDisconnectedKeepsTask(t *testing.T) {
	s, tr, _ := newTestSession(t, "ana")
	s.Dispatch(ServerMessage{Type: MsgTaskAssigned, ChainID: "c1", TaskType: KindWord})
	tr.close()

	s.TypeWord("kite")
	assert.ErrorIs(t, s.SubmitWord(), ErrNotConnected)
	assert.NotNil(t, s.Task())
	assert.Len(t, tr.messages(), 1)
}

func TestSession_FullBufferIsNotDisconnect(t *testing.T) {
	s, tr, _ := newTestSession(t, "ana")
	s.Dispatch(joined(Player{Index: 0, Name: "ana"}))
	s.Dispatch(ServerMessage{Type: MsgTaskAssigned, ChainID: "c1", TaskType: KindWord})
	tr.drop(true)

	s.TypeWord("kite")
	err := s.SubmitWord()
	assert.ErrorIs(t, err, ErrSendDropped)
	assert.NotErrorIs(t, err, ErrNotConnected)
	assert.NotNil(t, s.Task(), "a dropped submission keeps the task")
	assert.ErrorIs(t, s.SendChat("hi"), ErrSendDropped)
	assert.ErrorIs(t, s.StartGame(), ErrSendDropped)
	assert.True(t, s.Snapshot().Connected)

	tr.drop(false)
	require.NoError(t, s.SubmitWord())
	assert.Equal(t, ClientMessage{Type: MsgSubmitWord, ChainID: "c1", Word: "kite"}, tr.last())
	assert.Nil(t, s.Task())
}

func TestSession_DroppedDrawingKeepsCanvas(t *testing.T) {
	s, tr, _ := newTestSession(t, "ana")
	s.Dispatch(ServerMessage{Type: MsgTaskAssigned, ChainID: "c1", TaskType: KindDrawing, PrevWord: "kite"})
	s.PointerDown(Point{10, 10})
	s.PointerMove(Point{60, 40})
	s.PointerUp()
	tr.drop(true)

	assert.ErrorIs(t, s.SubmitDrawing(), ErrSendDropped)
	assert.NotNil(t, s.Task())
	assert.True(t, s.Canvas().HasContent())
	assert.Len(t, tr.messages(), 1)
}

func TestSession_StepSubmittedIsAnonymous(t *testing.T) {
	s, _, out := newTestSession(t, "ana")
	s.Dispatch(joined(Player{Index: 0, Name: "ana"}, Player{Index: 1, Name: "bo"}))
	s.Dispatch(ServerMessage{Type: MsgGameStarted, PlayerCount: 2, MaxSteps: 2})
	s.Dispatch(ServerMessage{Type: MsgTaskAssigned, ChainID: "c1", TaskType: KindWord})

	before := s.Snapshot()
	task := s.Task()
	renders := out.renders()

	s.Dispatch(ServerMessage{Type: MsgStepSubmitted, ChainID: "c2", FromPlayerIndex: 1, StepType: KindWord})
	s.Dispatch(ServerMessage{Type: MsgStepSubmitted, ChainID: "c2", FromPlayerIndex: 1, StepType: KindDrawing})

	v := s.Snapshot()
	require.Len(t, v.Chat.Lines, len(before.Chat.Lines)+2)
	added := v.Chat.Lines[len(before.Chat.Lines):]
	for i, noun := range []string{"a word", "a drawing"} {
		line := added[i]
		assert.True(t, line.System)
		assert.Contains(t, line.Content, noun)
		assert.NotContains(t, line.Content, "bo")
		assert.NotContains(t, line.Content, "ana")
		assert.NotContains(t, line.Content, "1")
	}

	assert.Equal(t, before.Phase, v.Phase)
	assert.Equal(t, before.Task, v.Task)
	assert.Equal(t, before.Roster, v.Roster)
	assert.Equal(t, task, s.Task())
	assert.Equal(t, renders+2, out.renders())
}

func TestSession_NewTaskClearsInput(t *testing.T) {
	s, _, _ := newTestSession(t, "ana")
	s.Dispatch(ServerMessage{Type: MsgTaskAssigned, ChainID: "c1", TaskType: KindDrawing, PrevWord: "kite"})
	s.PointerDown(Point{10, 10})
	s.PointerMove(Point{50, 50})
	s.ToggleEraser()

	s.Dispatch(ServerMessage{Type: MsgTaskAssigned, ChainID: "c2", StepIndex: 1, TaskType: KindDrawing, PrevWord: "boat"})

	assert.False(t, s.Canvas().HasContent())
	assert.Equal(t, DrawInk, s.Canvas().Mode())
	assert.Equal(t, "c2", s.Task().ChainID)
}

func TestSession_GameStartedAfterFirstTask(t *testing.T) {
	s, _, _ := newTestSession(t, "ana")

	s.Dispatch(ServerMessage{Type: MsgTaskAssigned, ChainID: "c1", TaskType: KindWord})
	s.Dispatch(ServerMessage{Type: MsgGameStarted, PlayerCount: 2, MaxSteps: 2})

	require.NotNil(t, s.Task(), "first task survives the late start announcement")
	assert.Equal(t, PanelWord, s.Snapshot().Task.Kind)
}

func TestSession_GameStartedClearsStaleTask(t *testing.T) {
	s, _, _ := newTestSession(t, "ana")
	s.Dispatch(ServerMessage{Type: MsgTaskAssigned, ChainID: "old", TaskType: KindWord})
	s.Dispatch(ServerMessage{Type: MsgRevealAll, Chains: twoChains()})
	require.NotNil(t, s.Task())

	s.Dispatch(ServerMessage{Type: MsgGameStarted})

	assert.Nil(t, s.Task())
	assert.Equal(t, PhaseActive, s.Phase())
	assert.Contains(t, s.Snapshot().Task.Description, "other players")
}

func TestSession_InvalidTaskIgnored(t *testing.T) {
	s, _, _ := newTestSession(t, "ana")

	s.Dispatch(ServerMessage{Type: MsgTaskAssigned, TaskType: KindWord})
	s.Dispatch(ServerMessage{Type: MsgTaskAssigned, ChainID: "c", TaskType: "poem"})

	assert.Nil(t, s.Task())
	assert.Equal(t, PhaseIdle, s.Phase())
}

func TestSession_RevealAndVote(t *testing.T) {
	s, tr, _ := newTestSession(t, "ana")
	s.Dispatch(ServerMessage{Type: MsgGameStarted})
	s.Dispatch(ServerMessage{Type: MsgRevealAll, Chains: twoChains()})

	v := s.Snapshot()
	assert.Equal(t, PhaseReplaying, v.Phase)
	assert.Equal(t, ScreenReveal, v.Screen)
	assert.Equal(t, 1, v.Replay.Position)
	assert.ErrorIs(t, s.NextChain(), ErrAdvanceDisabled)

	require.NoError(t, s.Vote(true))
	ok := tr.last()
	assert.Equal(t, MsgRateChain, ok.Type)
	assert.Equal(t, "c1", ok.ChainID)
	require.NotNil(t, ok.IsOk)
	assert.True(t, *ok.IsOk)

	s.Dispatch(ServerMessage{Type: MsgChainRated, ChainID: "c1", OkCount: 3, BadCount: 1, TotalPlayers: 4, Finished: true})
	v = s.Snapshot()
	assert.Equal(t, VerdictPositive, v.Replay.Verdict)
	assert.True(t, v.Replay.AdvanceEnabled)

	require.NoError(t, s.NextChain())
	v = s.Snapshot()
	assert.Equal(t, 2, v.Replay.Position)
	assert.False(t, v.Replay.AdvanceEnabled)

	require.NoError(t, s.Vote(false))
	assert.False(t, *tr.last().IsOk)

	s.Dispatch(ServerMessage{Type: MsgChainRated, ChainID: "c2", OkCount: 1, BadCount: 3, TotalPlayers: 4, Finished: true})
	require.NoError(t, s.NextChain())

	v = s.Snapshot()
	assert.Equal(t, ReplayExhausted, v.Replay.State)
	assert.ErrorIs(t, s.Vote(true), ErrNoChain)
	assert.ErrorIs(t, s.NextChain(), ErrAdvanceDisabled)
}

func TestSession_MismatchedTallyIgnored(t *testing.T) {
	s, _, out := newTestSession(t, "ana")
	s.Dispatch(ServerMessage{Type: MsgRevealAll, Chains: twoChains()})
	before := s.Snapshot()
	renders := out.renders()

	s.Dispatch(ServerMessage{Type: MsgChainRated, ChainID: "c2", OkCount: 4, TotalPlayers: 4, Finished: true})

	assert.Equal(t, before, s.Snapshot())
	assert.Equal(t, renders, out.renders())
	assert.ErrorIs(t, s.NextChain(), ErrAdvanceDisabled)
}

func TestSession_RoomResetFromAnyPhase(t *testing.T) {
	setups := map[string][]ServerMessage{
		"idle":   nil,
		"active": {{Type: MsgGameStarted}, {Type: MsgTaskAssigned, ChainID: "c1", TaskType: KindDrawing, PrevWord: "kite"}},
		"replaying": {
			{Type: MsgGameStarted},
			{Type: MsgRevealAll, Chains: twoChains()},
			{Type: MsgChainRated, ChainID: "c1", Finished: true},
		},
	}

	for name, msgs := range setups {
		t.Run(name, func(t *testing.T) {
			s, _, _ := newTestSession(t, "ana")
			for _, m := range msgs {
				s.Dispatch(m)
			}

			s.Dispatch(ServerMessage{Type: MsgRoomReset})

			v := s.Snapshot()
			assert.Equal(t, PhaseIdle, v.Phase)
			assert.Nil(t, s.Task())
			assert.Equal(t, ScreenRoom, v.Screen)
			assert.Equal(t, ReplayEmpty, v.Replay.State)
			assert.Equal(t, PanelWaiting, v.Task.Kind)
			assert.Equal(t, ModeLog, v.Chat.Mode)
		})
	}
}

func TestSession_ChatOverlayDuringDrawing(t *testing.T) {
	s, _, _ := newTestSession(t, "ana")

	s.Dispatch(ServerMessage{Type: MsgChat, PlayerName: "bo", Content: "hello"})
	assert.Empty(t, s.Snapshot().Chat.Overlay)

	s.Dispatch(ServerMessage{Type: MsgTaskAssigned, ChainID: "c1", TaskType: KindDrawing, PrevWord: "kite"})
	s.Dispatch(ServerMessage{Type: MsgChat, PlayerName: "bo", Content: "nice"})

	v := s.Snapshot()
	require.Len(t, v.Chat.Overlay, 1)
	assert.Equal(t, "bo: nice", v.Chat.Overlay[0].Text)
	assert.False(t, v.Chat.LogVisible)

	var chats int
	for _, l := range v.Chat.Lines {
		if !l.System {
			chats++
		}
	}
	assert.Equal(t, 2, chats, "the log keeps every message in both modes")
}

func TestSession_OverlaySpreadsWithoutInjectedRand(t *testing.T) {
	s, _, _ := newTestSession(t, "ana")
	s.Dispatch(ServerMessage{Type: MsgTaskAssigned, ChainID: "c1", TaskType: KindDrawing, PrevWord: "kite"})

	for i := 0; i < 100; i++ {
		s.Dispatch(ServerMessage{Type: MsgChat, PlayerName: "bo", Content: "nice"})
	}

	items := s.Snapshot().Chat.Overlay
	require.Len(t, items, 100)

	lanes := map[int]bool{}
	durations := map[time.Duration]bool{}
	for _, it := range items {
		assert.GreaterOrEqual(t, it.Lane, 0)
		assert.Less(t, it.Lane, 80/overlayLaneHeight)
		assert.GreaterOrEqual(t, it.Duration, 10*time.Second)
		assert.Less(t, it.Duration, 15*time.Second)

		lanes[it.Lane] = true
		durations[it.Duration] = true
	}

	assert.Greater(t, len(lanes), 1, "items are spread across lanes")
	assert.Greater(t, len(durations), 1, "items cross at different speeds")
}

func TestSession_SendChat(t *testing.T) {
	s, tr, _ := newTestSession(t, "ana")

	assert.ErrorIs(t, s.SendChat("   "), ErrEmptyChat)
	require.NoError(t, s.SendChat("  hi all "))
	assert.Equal(t, ClientMessage{Type: MsgChat, Content: "hi all"}, tr.last())

	tr.close()
	assert.ErrorIs(t, s.SendChat("anyone?"), ErrNotConnected)
}

func TestSession_ChatThrottle(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out := &recordingRenderer{}
	s := New(Options{
		RoomID:    "1",
		Name:      "ana",
		ChatRate:  1,
		ChatBurst: 2,
		Now:       func() time.Time { return now },
		Renderer:  out,
	})
	tr := newFakeTransport()
	s.Open(tr)

	require.NoError(t, s.SendChat("one"))
	require.NoError(t, s.SendChat("two"))
	assert.ErrorIs(t, s.SendChat("three"), ErrChatThrottled)
	assert.Equal(t, 1, out.noticeCount())

	now = now.Add(time.Second)
	assert.NoError(t, s.SendChat("four"))
	assert.Len(t, tr.messages(), 4)
}

func TestSession_ServerErrorIsNotice(t *testing.T) {
	s, _, out := newTestSession(t, "ana")

	s.Dispatch(ServerMessage{Type: MsgError, Message: "Room is full"})
	s.Dispatch(ServerMessage{Type: MsgError})

	require.Equal(t, 2, out.noticeCount())
	assert.Equal(t, "Room is full", out.notices[0])
	assert.NotEmpty(t, out.notices[1])
}

func TestSession_MalformedAndUnknownFrames(t *testing.T) {
	s, _, out := newTestSession(t, "ana")
	before := s.Snapshot()
	renders := out.renders()

	s.HandleFrame([]byte("not json"))
	s.HandleFrame([]byte(`{"players":[]}`))
	s.HandleFrame([]byte(`{"type":"fireworks"}`))

	assert.Equal(t, before, s.Snapshot())
	assert.Equal(t, renders, out.renders())
	assert.Equal(t, PhaseIdle, s.Phase())
}

func TestSession_HandleFrameDecodesWireNames(t *testing.T) {
	s, _, _ := newTestSession(t, "bo")

	s.HandleFrame([]byte(`{"type":"player_joined","players":[{"index":0,"name":"ana"},{"index":1,"name":"bo"}]}`))
	s.HandleFrame([]byte(`{"type":"task_assigned","chainId":"c9","stepIndex":1,"taskType":"drawing","prevStepType":"word","prevWord":"volcano","fromPlayerIndex":0}`))

	assert.Equal(t, 1, s.Self().Index)
	task := s.Task()
	require.NotNil(t, task)
	assert.Equal(t, "c9", task.ChainID)
	assert.Equal(t, "volcano", task.PredecessorContent)
}

func TestSession_DroppedWhenNotOpen(t *testing.T) {
	s := New(Options{RoomID: "1", Name: "ana"})

	assert.ErrorIs(t, s.StartGame(), ErrNotConnected)
	assert.ErrorIs(t, s.SendChat("hi"), ErrNotConnected)
	assert.False(t, s.Snapshot().Connected)
}

func TestSession_TaskReturnsCopy(t *testing.T) {
	s, _, _ := newTestSession(t, "ana")
	s.Dispatch(ServerMessage{Type: MsgTaskAssigned, ChainID: "c1", TaskType: KindWord})

	task := s.Task()
	task.ChainID = "mutated"

	assert.Equal(t, "c1", s.Task().ChainID)
}

func TestSession_SnapshotJSON(t *testing.T) {
	s, _, _ := newTestSession(t, "ana")
	s.Dispatch(joined(Player{Index: 0, Name: "ana"}))

	data, err := json.Marshal(s.Snapshot())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "idle", decoded["phase"])
	assert.Equal(t, "room", decoded["screen"])
	assert.Equal(t, true, decoded["host"])
	assert.NotContains(t, decoded, "LastDrawing")
}

func TestSession_RunWithoutStream(t *testing.T) {
	s := New(Options{RoomID: "1", Name: "ana"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, nil) }()

	got := make(chan error, 1)
	require.NoError(t, s.Post(ctx, func(s *Session) {
		got <- s.SendChat("hello?")
	}))
	select {
	case err := <-got:
		assert.ErrorIs(t, err, ErrNotConnected)
	case <-time.After(time.Second):
		t.Fatal("posted command never ran")
	}
	assert.False(t, s.Snapshot().Connected)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestSession_Run(t *testing.T) {
	s, tr, _ := newTestSession(t, "ana")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, tr) }()

	tr.frames <- []byte(`{"type":"player_joined","players":[{"index":0,"name":"ana"}]}`)
	require.Eventually(t, func() bool {
		return s.Snapshot().Host
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Post(ctx, func(s *Session) {
		_ = s.StartGame()
	}))
	require.Eventually(t, func() bool {
		return tr.last().Type == MsgStartGame
	}, time.Second, 5*time.Millisecond)

	tr.err = ErrConnClosed
	close(tr.frames)
	require.Eventually(t, func() bool {
		return !s.Snapshot().Connected
	}, time.Second, 5*time.Millisecond)
	assert.True(t, s.Snapshot().Host, "state survives the disconnect")

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
