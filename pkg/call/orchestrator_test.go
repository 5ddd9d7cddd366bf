package call

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/harunnryd/payfone/pkg/animator"
	"github.com/harunnryd/payfone/pkg/directory"
	"github.com/harunnryd/payfone/pkg/greeting"
	"github.com/harunnryd/payfone/pkg/metrics"
)

type fakeChatService struct {
	mu            sync.Mutex
	greetDelay    time.Duration
	greetText     string
	replyDelay    time.Duration
	replyText     string
	greetingCalls int
}

func (s *fakeChatService) Greeting(ctx context.Context, number string) (string, error) {
	s.mu.Lock()
	s.greetingCalls++
	delay, text := s.greetDelay, s.greetText
	s.mu.Unlock()
	if delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}
	return text, nil
}

func (s *fakeChatService) Send(ctx context.Context, number, text string) (string, error) {
	s.mu.Lock()
	delay, reply := s.replyDelay, s.replyText
	s.mu.Unlock()
	if delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}
	return reply, nil
}

type fakeRinger struct {
	mu        sync.Mutex
	ringing   bool
	starts    int
	stops     int
	lastStop  time.Time
	lastStart time.Time
	tones     []rune
}

func (r *fakeRinger) PlayDTMF(key rune, dur time.Duration) {
	r.mu.Lock()
	r.tones = append(r.tones, key)
	r.mu.Unlock()
}

func (r *fakeRinger) StartRing() {
	r.mu.Lock()
	if !r.ringing {
		r.ringing = true
		r.starts++
		r.lastStart = time.Now()
	}
	r.mu.Unlock()
}

func (r *fakeRinger) StopRing() {
	r.mu.Lock()
	if r.ringing {
		r.ringing = false
		r.stops++
		r.lastStop = time.Now()
	}
	r.mu.Unlock()
}

func (r *fakeRinger) Ringing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ringing
}

type speakCall struct {
	text  string
	key   string
	start func()
	done  func()
}

type fakeSpeaker struct {
	mu      sync.Mutex
	auto    bool
	calls   []speakCall
	stopped int
}

func (s *fakeSpeaker) Speak(text, key string, onAudioStart, onDone func()) {
	s.mu.Lock()
	s.calls = append(s.calls, speakCall{text: text, key: key, start: onAudioStart, done: onDone})
	auto := s.auto
	s.mu.Unlock()
	if auto {
		if onAudioStart != nil {
			onAudioStart()
		}
		if onDone != nil {
			onDone()
		}
	}
}

func (s *fakeSpeaker) Stop() {
	s.mu.Lock()
	s.stopped++
	s.mu.Unlock()
}

func (s *fakeSpeaker) Playing() bool { return false }

func (s *fakeSpeaker) lastCall() (speakCall, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		return speakCall{}, false
	}
	return s.calls[len(s.calls)-1], true
}

type harness struct {
	orch     *Orchestrator
	svc      *fakeChatService
	ringer   *fakeRinger
	speaker  *fakeSpeaker
	dir      *directory.Directory
	book     *animator.Animator
	timeline *metrics.MemoryObserver
}

func newHarness(t *testing.T, svc *fakeChatService, book *animator.Animator) *harness {
	t.Helper()
	dir := directory.New(nil)
	dir.Replace([]directory.Persona{
		{Number: "18005551212", Label: "Plutus", Provider: "mock"},
		{Number: "1", Label: "Operator", Provider: "mock"},
		{Number: "2", Label: "Oracle", Provider: "mock"},
	})
	ringer := &fakeRinger{}
	speaker := &fakeSpeaker{auto: true}
	timeline := metrics.NewMemoryObserver()
	orch := NewOrchestrator(Config{JoinPollInterval: 5 * time.Millisecond}, Deps{
		Resolver: dir,
		Greeter:  greeting.NewFetcher(svc, nil),
		Chat:     svc,
		Tones:    ringer,
		Speaker:  speaker,
		BookAnim: book,
		Observer: timeline,
	})
	return &harness{orch: orch, svc: svc, ringer: ringer, speaker: speaker, dir: dir, book: book, timeline: timeline}
}

func waitForState(t *testing.T, o *Orchestrator, want State) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if o.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state never reached %s, still %s", want, o.State())
}

func TestDigitEntryAccumulatesAndCaps(t *testing.T) {
	h := newHarness(t, &fakeChatService{}, nil)
	for i := 0; i < 15; i++ {
		h.orch.PressDigit('5')
	}
	if got := h.orch.DialBuffer(); len(got) != 11 {
		t.Fatalf("expected buffer capped at 11 digits, got %d", len(got))
	}
	if h.orch.State() != StateDialing {
		t.Fatalf("expected DIALING, got %s", h.orch.State())
	}
	h.ringer.mu.Lock()
	tones := len(h.ringer.tones)
	h.ringer.mu.Unlock()
	if tones != 15 {
		t.Fatalf("every key press plays a tone, got %d", tones)
	}
}

func TestClearWhileDialingEmptiesBuffer(t *testing.T) {
	h := newHarness(t, &fakeChatService{}, nil)
	h.orch.PressDigit('1')
	h.orch.PressDigit('2')
	h.orch.Clear()
	if h.orch.DialBuffer() != "" {
		t.Fatalf("expected empty buffer after clear")
	}
	if h.orch.State() != StateIdle {
		t.Fatalf("expected IDLE after clear, got %s", h.orch.State())
	}
}

func TestDialUnknownNumberIsSilentNoOp(t *testing.T) {
	h := newHarness(t, &fakeChatService{}, nil)
	h.orch.PressDigit('9')
	h.orch.PressDigit('9')
	h.orch.Dial()
	if h.orch.State() != StateDialing {
		t.Fatalf("wrong number must not change state, got %s", h.orch.State())
	}
	if h.ringer.Ringing() {
		t.Fatalf("wrong number must not start ringback")
	}
}

func TestDialConnectsAndSpeaksGreeting(t *testing.T) {
	svc := &fakeChatService{greetText: "The markets never sleep."}
	h := newHarness(t, svc, nil)

	for _, d := range "18005551212" {
		h.orch.PressDigit(d)
	}
	h.orch.Dial()
	waitForState(t, h.orch, StateConnected)

	waitCond(t, func() bool {
		msgs := h.orch.Transcript()
		return len(msgs) == 1 && !msgs[0].Pending
	})
	msgs := h.orch.Transcript()
	if msgs[0].Role != RoleAssistant || msgs[0].Text != "The markets never sleep." {
		t.Fatalf("unexpected greeting message: %+v", msgs[0])
	}
	if h.ringer.Ringing() {
		t.Fatalf("ringback must be silent once connected")
	}
	if h.orch.DialBuffer() != "" {
		t.Fatalf("dial buffer must clear on connect")
	}
}

func TestEmptyGreetingConnectsSilent(t *testing.T) {
	h := newHarness(t, &fakeChatService{greetText: ""}, nil)
	h.orch.SelectEntry("1")
	waitForState(t, h.orch, StateConnected)
	if len(h.orch.Transcript()) != 0 {
		t.Fatalf("no placeholder may be inserted for an empty greeting")
	}
	if _, ok := h.speaker.lastCall(); ok {
		t.Fatalf("nothing must be spoken for an empty greeting")
	}
}

func TestGreetingRingJoinWaitsForSlowAnimation(t *testing.T) {
	// Fast greeting (immediate), slow animation (~200ms): ringback must
	// stay up until the animation finishes.
	svc := &fakeChatService{greetText: "hello"}
	book := animator.New("book", 20, 100, nil)
	h := newHarness(t, svc, book)

	h.orch.SelectEntry("1")
	time.Sleep(80 * time.Millisecond)
	if !h.ringer.Ringing() {
		t.Fatalf("ringback stopped before the animation finished")
	}
	waitForState(t, h.orch, StateConnected)
	if h.ringer.Ringing() {
		t.Fatalf("ringback must stop at the join")
	}
	h.ringer.mu.Lock()
	held := h.ringer.lastStop.Sub(h.ringer.lastStart)
	h.ringer.mu.Unlock()
	if held < 150*time.Millisecond {
		t.Fatalf("ring released too early: %s", held)
	}
}

func TestGreetingRingJoinWaitsForSlowGreeting(t *testing.T) {
	// Slow greeting (~200ms), fast animation: same join, other order.
	svc := &fakeChatService{greetDelay: 200 * time.Millisecond, greetText: "hello"}
	book := animator.New("book", 2, 100, nil)
	h := newHarness(t, svc, book)

	h.orch.SelectEntry("1")
	time.Sleep(100 * time.Millisecond)
	if !h.ringer.Ringing() {
		t.Fatalf("ringback stopped before the greeting resolved")
	}
	waitForState(t, h.orch, StateConnected)
	h.ringer.mu.Lock()
	held := h.ringer.lastStop.Sub(h.ringer.lastStart)
	h.ringer.mu.Unlock()
	if held < 150*time.Millisecond {
		t.Fatalf("ring released too early: %s", held)
	}
}

func TestPlaceholderRevealedOnlyAtAudioStart(t *testing.T) {
	svc := &fakeChatService{greetText: "Welcome to the exchange."}
	h := newHarness(t, svc, nil)
	h.speaker.mu.Lock()
	h.speaker.auto = false
	h.speaker.mu.Unlock()

	h.orch.SelectEntry("1")
	waitForState(t, h.orch, StateConnected)
	waitCond(t, func() bool { return len(h.orch.Transcript()) == 1 })

	msgs := h.orch.Transcript()
	if !msgs[0].Pending || msgs[0].Text != DefaultPlaceholder {
		t.Fatalf("expected pending placeholder before audio start, got %+v", msgs[0])
	}

	callInfo, ok := h.speaker.lastCall()
	if !ok {
		t.Fatalf("speaker never invoked")
	}
	callInfo.start()

	msgs = h.orch.Transcript()
	if msgs[0].Pending || msgs[0].Text != "Welcome to the exchange." {
		t.Fatalf("expected revealed text after audio start, got %+v", msgs[0])
	}
}

func TestSupersededGreetingNeverMutatesNewCall(t *testing.T) {
	svc := &fakeChatService{greetDelay: 250 * time.Millisecond, greetText: "stale"}
	h := newHarness(t, svc, nil)

	h.orch.SelectEntry("1")
	time.Sleep(30 * time.Millisecond)

	svc.mu.Lock()
	svc.greetDelay = 0
	svc.greetText = "fresh"
	svc.mu.Unlock()

	h.orch.SelectEntry("2")
	waitForState(t, h.orch, StateConnected)
	waitCond(t, func() bool { return len(h.orch.Transcript()) == 1 })

	// Give the superseded establish flow time to resolve and be discarded.
	time.Sleep(300 * time.Millisecond)
	msgs := h.orch.Transcript()
	if len(msgs) != 1 {
		t.Fatalf("expected exactly one message in call B, got %d", len(msgs))
	}
	if msgs[0].Text != "fresh" {
		t.Fatalf("call A's greeting leaked into call B: %q", msgs[0].Text)
	}
	if p, _ := h.orch.Persona(); p.Number != "2" {
		t.Fatalf("expected connection to persona 2, got %q", p.Number)
	}
}

func TestNewCallTearsDownPrevious(t *testing.T) {
	svc := &fakeChatService{greetText: "hi", replyText: "reply"}
	h := newHarness(t, svc, nil)

	h.orch.SelectEntry("1")
	waitForState(t, h.orch, StateConnected)
	if err := h.orch.Send("hello"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	waitCond(t, func() bool { return len(h.orch.Transcript()) == 3 })

	h.orch.SelectEntry("2")
	waitForState(t, h.orch, StateConnected)
	waitCond(t, func() bool { return len(h.orch.Transcript()) == 1 })

	h.speaker.mu.Lock()
	stops := h.speaker.stopped
	h.speaker.mu.Unlock()
	if stops == 0 {
		t.Fatalf("previous call's audio must be stopped before the new call")
	}
}

func TestSendOutsideConnectedRefused(t *testing.T) {
	h := newHarness(t, &fakeChatService{}, nil)
	if err := h.orch.Send("hello"); err != ErrNotConnected {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestSendEmptyReplyLeavesTranscriptUnchanged(t *testing.T) {
	svc := &fakeChatService{greetText: "hi", replyText: ""}
	h := newHarness(t, svc, nil)
	h.orch.SelectEntry("1")
	waitForState(t, h.orch, StateConnected)
	waitCond(t, func() bool { return len(h.orch.Transcript()) == 1 })

	if err := h.orch.Send("anyone there?"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	waitCond(t, func() bool { return h.orch.ChatStatus() == ChatReady && len(h.orch.Transcript()) == 2 })

	time.Sleep(50 * time.Millisecond)
	msgs := h.orch.Transcript()
	if len(msgs) != 2 {
		t.Fatalf("empty reply must not append an assistant message, got %d entries", len(msgs))
	}
}

func TestChatStatusCyclesAroundSend(t *testing.T) {
	svc := &fakeChatService{greetText: "hi", replyDelay: 100 * time.Millisecond, replyText: "pong"}
	h := newHarness(t, svc, nil)
	h.orch.SelectEntry("1")
	waitForState(t, h.orch, StateConnected)

	if err := h.orch.Send("ping"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if h.orch.ChatStatus() != ChatSubmitted {
		t.Fatalf("expected submitted immediately after send")
	}
	waitCond(t, func() bool { return h.orch.ChatStatus() == ChatReady })
}

func TestHangUpIdempotent(t *testing.T) {
	svc := &fakeChatService{greetText: "hi"}
	h := newHarness(t, svc, nil)

	h.orch.HangUp() // while idle
	if h.orch.State() != StateIdle {
		t.Fatalf("hang-up while idle must stay IDLE")
	}

	h.orch.SelectEntry("1")
	waitForState(t, h.orch, StateConnected)
	h.orch.HangUp()
	h.orch.HangUp()

	if h.orch.State() != StateIdle {
		t.Fatalf("expected IDLE after hang-up")
	}
	if len(h.orch.Transcript()) != 0 {
		t.Fatalf("transcript must be empty after hang-up")
	}
	if h.orch.DialBuffer() != "" {
		t.Fatalf("dial buffer must be empty after hang-up")
	}
	if h.ringer.Ringing() {
		t.Fatalf("ringback must be silent after hang-up")
	}
}

func TestStarKeyHangsUpWhileConnected(t *testing.T) {
	svc := &fakeChatService{greetText: "hi"}
	h := newHarness(t, svc, nil)
	h.orch.SelectEntry("1")
	waitForState(t, h.orch, StateConnected)

	h.orch.PressKey('*')
	if h.orch.State() != StateIdle {
		t.Fatalf("'*' while connected must hang up, got %s", h.orch.State())
	}
}

func TestEndToEndDialConverseHangUp(t *testing.T) {
	svc := &fakeChatService{
		greetText: "Plutus here, markets are open.",
		replyText: "The S&P 500 is up half a percent.",
	}
	h := newHarness(t, svc, nil)

	for _, d := range "18005551212" {
		h.orch.PressKey(d)
	}
	h.orch.PressKey('#')
	waitForState(t, h.orch, StateConnected)
	waitCond(t, func() bool {
		msgs := h.orch.Transcript()
		return len(msgs) == 1 && !msgs[0].Pending
	})
	if h.ringer.Ringing() {
		t.Fatalf("ringback must be silent by the time the greeting resolved")
	}

	if err := h.orch.Send("what is the S&P 500 doing"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	waitCond(t, func() bool {
		msgs := h.orch.Transcript()
		return len(msgs) == 3 && !msgs[2].Pending
	})

	msgs := h.orch.Transcript()
	if msgs[0].Role != RoleAssistant || msgs[1].Role != RoleUser || msgs[2].Role != RoleAssistant {
		t.Fatalf("unexpected transcript roles: %+v", msgs)
	}
	if msgs[2].Text != "The S&P 500 is up half a percent." {
		t.Fatalf("unexpected reply: %q", msgs[2].Text)
	}

	h.orch.HangUp()
	if h.orch.State() != StateIdle || len(h.orch.Transcript()) != 0 {
		t.Fatalf("expected empty IDLE phone after hang-up")
	}
}

func TestSpeakingFlagClearsWhenClipEnds(t *testing.T) {
	svc := &fakeChatService{greetText: "hello"}
	h := newHarness(t, svc, nil)

	var mu sync.Mutex
	var speaking []bool
	h.orch.AddListener(ListenerFunc(func(ev Event) {
		if ev.Kind == EventSpeaking {
			mu.Lock()
			speaking = append(speaking, ev.Speaking)
			mu.Unlock()
		}
	}))

	h.orch.SelectEntry("1")
	waitForState(t, h.orch, StateConnected)
	waitCond(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(speaking) >= 2
	})

	mu.Lock()
	defer mu.Unlock()
	if !speaking[0] {
		t.Fatalf("speaking flag must rise when audio starts, got %v", speaking)
	}
	if speaking[len(speaking)-1] {
		t.Fatalf("speaking flag still raised after the clip ended: %v", speaking)
	}
}

func TestStaleSpeechEndDiscarded(t *testing.T) {
	svc := &fakeChatService{greetText: "hello"}
	h := newHarness(t, svc, nil)
	h.speaker.mu.Lock()
	h.speaker.auto = false
	h.speaker.mu.Unlock()

	h.orch.SelectEntry("1")
	waitForState(t, h.orch, StateConnected)
	waitCond(t, func() bool {
		_, ok := h.speaker.lastCall()
		return ok
	})
	clip, _ := h.speaker.lastCall()

	var sawLate bool
	h.orch.HangUp()
	h.orch.AddListener(ListenerFunc(func(ev Event) {
		if ev.Kind == EventSpeaking {
			sawLate = true
		}
	}))
	clip.done() // arrives after the call was torn down

	if sawLate {
		t.Fatalf("a superseded clip's completion must not emit events")
	}
}

func TestCallTimelineRecorded(t *testing.T) {
	svc := &fakeChatService{greetText: "hi", replyText: "pong"}
	h := newHarness(t, svc, nil)

	h.orch.SelectEntry("1")
	waitForState(t, h.orch, StateConnected)
	if err := h.orch.Send("ping"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	waitCond(t, func() bool { return len(h.orch.Transcript()) == 3 })
	h.orch.HangUp()

	names := make(map[string]bool)
	var connectMS float64
	for _, ev := range h.timeline.Events() {
		names[ev.Name] = true
		if ev.Name == "call_connected" {
			connectMS = ev.Value
		}
	}
	for _, want := range []string{"call_connecting", "call_connected", "chat_reply", "call_hangup"} {
		if !names[want] {
			t.Fatalf("timeline missing %q, recorded %v", want, names)
		}
	}
	if connectMS < 0 {
		t.Fatalf("connect duration must be non-negative, got %f", connectMS)
	}
}

func TestHangUpClosesBookInReverse(t *testing.T) {
	svc := &fakeChatService{greetText: "hi"}
	book := animator.New("book", 8, 200, nil)
	h := newHarness(t, svc, book)

	h.orch.SelectEntry("1")
	waitForState(t, h.orch, StateConnected)
	waitCond(t, func() bool { return book.Done() })

	h.orch.HangUp()
	if book.Frame() == 1 {
		t.Fatalf("book must close frame-by-frame, not snap shut")
	}
	waitCond(t, func() bool { return !book.Playing() && book.Frame() == 1 })
}

func waitCond(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}
