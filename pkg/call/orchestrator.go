// Package call implements the payphone call lifecycle: dialing, the
// connecting join of greeting fetch and animation, the conversation loop,
// and hang-up teardown. All state lives behind one orchestrator; the UI and
// the websocket feed observe it through events.
package call

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/harunnryd/payfone/pkg/animator"
	"github.com/harunnryd/payfone/pkg/directory"
	"github.com/harunnryd/payfone/pkg/errorsx"
	"github.com/harunnryd/payfone/pkg/logging"
	"github.com/harunnryd/payfone/pkg/metrics"
	"github.com/harunnryd/payfone/pkg/redact"
)

// ErrNotConnected is returned by Send outside the CONNECTED state.
var ErrNotConnected = errorsx.Wrap(errors.New("call not connected"), errorsx.ReasonStateInvalid)

// Ringer is the tone generator surface the orchestrator drives.
type Ringer interface {
	PlayDTMF(key rune, dur time.Duration)
	StartRing()
	StopRing()
}

// Speaker is the playback driver surface. onAudioStart fires exactly once,
// when playback audibly begins; onDone fires once the clip has drained,
// failed, or been stopped, unless a newer clip superseded it.
type Speaker interface {
	Speak(text, contextKey string, onAudioStart, onDone func())
	Stop()
	Playing() bool
}

// Chat sends a user message to the connected persona and returns the reply
// text, possibly empty.
type Chat interface {
	Send(ctx context.Context, number, text string) (string, error)
}

// Greeter obtains the opening line for a freshly dialed persona. Fetch
// resolves to "" on failure or cancellation and never delivers late results.
type Greeter interface {
	Fetch(ctx context.Context, number string) string
	Cancel()
}

// Config tunes the orchestrator. Zero values pick the defaults.
type Config struct {
	MaxDialDigits    int           // dialed buffer cap, default 11
	MaxTranscript    int           // transcript ring size, default 60
	DTMFDuration     time.Duration // key feedback tone length, default 180ms
	JoinPollInterval time.Duration // animation-wait poll, default 50ms
	Placeholder      string        // pending assistant text, default "…"
}

func (c Config) withDefaults() Config {
	if c.MaxDialDigits <= 0 {
		c.MaxDialDigits = 11
	}
	if c.MaxTranscript <= 0 {
		c.MaxTranscript = 60
	}
	if c.DTMFDuration <= 0 {
		c.DTMFDuration = 180 * time.Millisecond
	}
	if c.JoinPollInterval <= 0 {
		c.JoinPollInterval = 50 * time.Millisecond
	}
	if c.Placeholder == "" {
		c.Placeholder = DefaultPlaceholder
	}
	return c
}

// Deps are the collaborators the orchestrator composes. Resolver, Greeter,
// Chat, Ringer and Speaker are required; the animators are optional.
type Deps struct {
	Resolver directory.Resolver
	Greeter  Greeter
	Chat     Chat
	Tones    Ringer
	Speaker  Speaker
	DialAnim *animator.Animator
	BookAnim *animator.Animator
	Observer metrics.Observer
	Logger   *slog.Logger
}

// Orchestrator is the single-handset call state machine. At most one call
// session is live at any time; establishing a new one first tears down
// whatever was active.
type Orchestrator struct {
	cfg  Config
	deps Deps

	mu            sync.Mutex
	fsm           *stateMachine
	dialBuf       string
	session       *Session
	gen           uint64
	attemptCancel context.CancelFunc
	chatStatus    ChatStatus

	lmu       sync.Mutex
	listeners []Listener

	observer metrics.Observer
	logger   *slog.Logger
}

func NewOrchestrator(cfg Config, deps Deps) *Orchestrator {
	obs := deps.Observer
	if obs == nil {
		obs = metrics.NoopObserver{}
	}
	return &Orchestrator{
		cfg:        cfg.withDefaults(),
		deps:       deps,
		fsm:        newStateMachine(),
		chatStatus: ChatReady,
		observer:   obs,
		logger:     logging.NewComponentLogger(deps.Logger, "call"),
	}
}

// AddListener registers an observer for orchestrator events.
func (o *Orchestrator) AddListener(l Listener) {
	o.lmu.Lock()
	o.listeners = append(o.listeners, l)
	o.lmu.Unlock()
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State { return o.fsm.State() }

// DialBuffer returns the accumulated digits.
func (o *Orchestrator) DialBuffer() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.dialBuf
}

// ChatStatus returns the submit flag for the presentation layer.
func (o *Orchestrator) ChatStatus() ChatStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.chatStatus
}

// Transcript returns a snapshot of the live session's messages, or nil when
// no session exists.
func (o *Orchestrator) Transcript() []Message {
	o.mu.Lock()
	s := o.session
	o.mu.Unlock()
	if s == nil {
		return nil
	}
	return s.transcript.Snapshot()
}

// Persona returns the connected persona, if any.
func (o *Orchestrator) Persona() (directory.Persona, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session == nil {
		return directory.Persona{}, false
	}
	return o.session.Persona, true
}

// PressKey dispatches a keypad rune: digits accumulate, '*' clears or hangs
// up depending on call state, '#' dials.
func (o *Orchestrator) PressKey(key rune) {
	switch {
	case key >= '0' && key <= '9':
		o.PressDigit(key)
	case key == '*':
		o.Clear()
	case key == '#':
		o.Dial()
	}
}

// PressDigit appends a digit to the dialed buffer, capped at the configured
// length, and plays its DTMF feedback pair.
func (o *Orchestrator) PressDigit(key rune) {
	if key < '0' || key > '9' {
		return
	}
	o.deps.Tones.PlayDTMF(key, o.cfg.DTMFDuration)

	o.mu.Lock()
	state := o.fsm.State()
	if state != StateIdle && state != StateDialing {
		o.mu.Unlock()
		return
	}
	if len(o.dialBuf) >= o.cfg.MaxDialDigits {
		o.mu.Unlock()
		return
	}
	o.dialBuf += string(key)
	var change StateChange
	var transitioned bool
	if state == StateIdle {
		change, _ = o.fsm.Transition(StateDialing, "digit entry")
		transitioned = true
	}
	dialed := o.dialBuf
	o.mu.Unlock()

	if transitioned {
		o.emitState(change, dialed)
	} else {
		o.emit(Event{Kind: EventState, Time: time.Now(), State: state.String(), Dialed: dialed})
	}
}

// Clear is the '*' control: hang-up while a call is connecting or connected,
// dial-buffer clear otherwise.
func (o *Orchestrator) Clear() {
	o.deps.Tones.PlayDTMF('*', o.cfg.DTMFDuration)

	switch o.fsm.State() {
	case StateConnecting, StateConnected:
		o.HangUp()
	default:
		o.mu.Lock()
		o.dialBuf = ""
		var change StateChange
		var transitioned bool
		if o.fsm.State() == StateDialing {
			change, _ = o.fsm.Transition(StateIdle, "dial buffer cleared")
			transitioned = true
		}
		o.mu.Unlock()
		if transitioned {
			o.emitState(change, "")
		}
	}
}

// Dial resolves the dialed buffer against the directory and, on a match,
// establishes the call without gating on any animation (the dial-pad path's
// animation is already complete by the time dialing confirms). An
// unconfigured number is silently ignored.
func (o *Orchestrator) Dial() {
	o.mu.Lock()
	number := o.dialBuf
	o.mu.Unlock()

	p, ok := o.deps.Resolver.Resolve(number)
	if !ok {
		o.logger.Debug("no route for dialed number", slog.String("number", number))
		return
	}
	o.connect(p, false)
}

// SelectEntry establishes a call to a directory entry. This path requests
// the greeting/animation join: ringback keeps going until both the greeting
// text and the address-book intro animation have finished.
func (o *Orchestrator) SelectEntry(number string) {
	p, ok := o.deps.Resolver.Resolve(number)
	if !ok {
		o.logger.Debug("no route for directory entry", slog.String("number", number))
		return
	}
	o.connect(p, true)
}

// connect tears down any active call, creates a fresh session, starts
// ringback, and spawns the establish flow. The intro animation starts here,
// after teardown, so the teardown reset cannot cancel it.
func (o *Orchestrator) connect(p directory.Persona, joinIntro bool) {
	o.HangUp()

	o.mu.Lock()
	o.gen++
	gen := o.gen
	ctx, cancel := context.WithCancel(context.Background())
	o.attemptCancel = cancel
	o.session = newSession(p, o.cfg.MaxTranscript)
	o.dialBuf = ""
	change, err := o.fsm.Transition(StateConnecting, "persona resolved")
	o.mu.Unlock()
	if err != nil {
		// Unreachable after HangUp, but never establish on a bad transition.
		o.logger.Error("connect transition refused", slog.String("error", err.Error()))
		cancel()
		return
	}

	var wait *animator.Animator
	if joinIntro {
		wait = o.deps.BookAnim
		if wait != nil {
			// Restart the intro from frame 1 even if the previous hang-up's
			// reverse close is still running.
			wait.PlayOnce(nil)
		}
	} else if o.deps.DialAnim != nil {
		o.deps.DialAnim.PlayOnce(nil)
	}

	o.deps.Tones.StartRing()
	o.emitState(change, "")
	o.observe("call_connecting", 0, map[string]string{"number": p.Number, "persona": p.Label})

	go o.establish(ctx, gen, p, wait)
}

// establish runs the connecting join: fetch the greeting, wait out the intro
// animation when one was requested, then stop ringback and go connected.
// Whichever of the two activities finishes later gates the other.
func (o *Orchestrator) establish(ctx context.Context, gen uint64, p directory.Persona, wait *animator.Animator) {
	text := o.deps.Greeter.Fetch(ctx, p.Number)

	if wait != nil {
		ticker := time.NewTicker(o.cfg.JoinPollInterval)
		defer ticker.Stop()
		for wait.Playing() {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}
	if ctx.Err() != nil {
		return
	}

	o.mu.Lock()
	if gen != o.gen || o.fsm.State() != StateConnecting {
		o.mu.Unlock()
		return
	}
	o.deps.Tones.StopRing()
	change, err := o.fsm.Transition(StateConnected, "greeting join complete")
	if err != nil {
		o.mu.Unlock()
		return
	}
	var pending Message
	hasGreeting := text != ""
	if hasGreeting {
		pending = o.session.transcript.Append(RoleAssistant, o.cfg.Placeholder, true)
		o.session.pendingID = pending.ID
	}
	o.mu.Unlock()

	o.observe("call_connected", float64(time.Since(o.fsm.ConnectingSince()).Milliseconds()),
		map[string]string{"number": p.Number, "greeting": boolTag(hasGreeting)})
	o.emitState(change, "")
	if !hasGreeting {
		// Connected but silent: upstream produced nothing to say.
		return
	}
	o.emitTranscript()
	o.deps.Speaker.Speak(text, p.Number, func() {
		o.reveal(gen, pending.ID, text)
	}, func() {
		o.speechEnded(gen)
	})
}

// Send appends the user message, issues the chat request, and speaks a
// non-empty reply with the same placeholder-then-reveal pattern as the
// greeting. Only legal while connected.
func (o *Orchestrator) Send(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	o.mu.Lock()
	if o.fsm.State() != StateConnected || o.session == nil {
		o.mu.Unlock()
		return ErrNotConnected
	}
	gen := o.gen
	sess := o.session
	number := sess.Number
	ctx := sess.Context()
	sess.transcript.Append(RoleUser, text, false)
	o.chatStatus = ChatSubmitted
	o.mu.Unlock()

	o.emitTranscript()
	o.emitChatStatus(ChatSubmitted)
	o.logger.Info("message sent",
		slog.String("number", number),
		slog.String("text", redact.Text(text)))

	go o.converse(ctx, gen, number, text)
	return nil
}

func (o *Orchestrator) converse(ctx context.Context, gen uint64, number, text string) {
	started := time.Now()
	reply, err := o.deps.Chat.Send(ctx, number, text)
	if err != nil {
		// Degrades to an absent reply, never surfaced as an error.
		o.logger.Warn("chat send failed",
			slog.String("number", number),
			slog.String("reason", string(errorsx.Reason(errorsx.Wrap(err, errorsx.ReasonChatSend)))),
			slog.String("error", err.Error()))
		reply = ""
	}
	reply = strings.TrimSpace(reply)

	o.mu.Lock()
	if gen != o.gen || o.session == nil {
		o.mu.Unlock()
		return
	}
	o.chatStatus = ChatReady
	if reply == "" {
		o.mu.Unlock()
		o.emitChatStatus(ChatReady)
		return
	}
	// Ringback must never overlap conversational audio.
	o.deps.Tones.StopRing()
	pending := o.session.transcript.Append(RoleAssistant, o.cfg.Placeholder, true)
	o.session.pendingID = pending.ID
	o.mu.Unlock()

	o.observe("chat_reply", float64(time.Since(started).Milliseconds()),
		map[string]string{"number": number})
	o.emitChatStatus(ChatReady)
	o.emitTranscript()
	o.deps.Speaker.Speak(reply, number, func() {
		o.reveal(gen, pending.ID, reply)
	}, func() {
		o.speechEnded(gen)
	})
}

// reveal swaps the placeholder for its final text, in lockstep with the
// moment audio starts. Superseded generations are discarded.
func (o *Orchestrator) reveal(gen uint64, id, text string) {
	o.mu.Lock()
	if gen != o.gen || o.session == nil {
		o.mu.Unlock()
		return
	}
	if !o.session.transcript.Reveal(id, text) {
		o.mu.Unlock()
		return
	}
	if o.session.pendingID == id {
		o.session.pendingID = ""
	}
	o.mu.Unlock()

	o.emitTranscript()
	o.emit(Event{Kind: EventSpeaking, Time: time.Now(), Speaking: true})
	o.logger.Debug("message revealed", slog.String("text", redact.Text(text)))
}

// speechEnded clears the speaking flag once the clip finishes, fails, or is
// stopped, so observers never show a voice on the line after the audio went
// quiet. Superseded generations are discarded.
func (o *Orchestrator) speechEnded(gen uint64) {
	o.mu.Lock()
	stale := gen != o.gen
	o.mu.Unlock()
	if stale {
		return
	}
	o.emit(Event{Kind: EventSpeaking, Time: time.Now(), Speaking: false})
}

// HangUp tears the call down from any state: cancel the in-flight greeting
// fetch, stop ringback, stop playback, drop the session and dialed digits,
// and park the animations back at idle. Always safe, always idempotent.
func (o *Orchestrator) HangUp() {
	o.mu.Lock()
	o.gen++
	if o.attemptCancel != nil {
		o.attemptCancel()
		o.attemptCancel = nil
	}
	o.deps.Greeter.Cancel()
	o.deps.Tones.StopRing()
	o.deps.Speaker.Stop()
	hadSession := o.session != nil
	if o.session != nil {
		o.session.teardown()
		o.session = nil
	}
	o.dialBuf = ""
	o.chatStatus = ChatReady
	prev := o.fsm.State()
	var change StateChange
	changed := false
	if prev != StateIdle {
		change, _ = o.fsm.Transition(StateIdle, "hang up")
		changed = true
	}
	o.mu.Unlock()

	if o.deps.DialAnim != nil {
		o.deps.DialAnim.Stop(true)
	}
	if o.deps.BookAnim != nil {
		// The book closes by playing back to frame 1 from wherever the intro
		// got to, instead of snapping shut.
		if f := o.deps.BookAnim.Frame(); f > 1 {
			o.deps.BookAnim.PlayRange(f, 1, nil)
		} else {
			o.deps.BookAnim.Stop(true)
		}
	}

	if changed {
		o.emitState(change, "")
		o.emit(Event{Kind: EventSpeaking, Time: time.Now(), Speaking: false})
		o.emitChatStatus(ChatReady)
		o.emitTranscript()
	}
	if hadSession || changed {
		o.observe("call_hangup", 0, map[string]string{"from": prev.String()})
	}
}

func (o *Orchestrator) emitState(change StateChange, dialed string) {
	ev := Event{
		Kind:   EventState,
		Time:   change.Timestamp,
		State:  change.ToState.String(),
		Reason: change.Reason,
		Dialed: dialed,
	}
	o.mu.Lock()
	if o.session != nil {
		ev.Persona = o.session.Persona.Label
	}
	o.mu.Unlock()
	o.emit(ev)
}

func (o *Orchestrator) emitTranscript() {
	o.emit(Event{Kind: EventTranscript, Time: time.Now(), Transcript: o.Transcript()})
}

func (o *Orchestrator) emitChatStatus(s ChatStatus) {
	o.emit(Event{Kind: EventChatStatus, Time: time.Now(), ChatStatus: s})
}

func (o *Orchestrator) emit(ev Event) {
	o.lmu.Lock()
	listeners := make([]Listener, len(o.listeners))
	copy(listeners, o.listeners)
	o.lmu.Unlock()
	for _, l := range listeners {
		l.OnCallEvent(ev)
	}
}

func (o *Orchestrator) observe(name string, value float64, tags map[string]string) {
	o.observer.RecordEvent(metrics.Event{
		Name:  name,
		Time:  time.Now(),
		Value: value,
		Tags:  tags,
	})
}

func boolTag(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
