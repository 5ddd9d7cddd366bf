// Package payfone is the composition root: it loads configuration, opens
// the store, builds the vendor adapters, and wires the call orchestrator
// to its tone, playback, and animation collaborators.
package payfone

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/harunnryd/payfone/pkg/animator"
	"github.com/harunnryd/payfone/pkg/audio"
	"github.com/harunnryd/payfone/pkg/call"
	"github.com/harunnryd/payfone/pkg/directory"
	"github.com/harunnryd/payfone/pkg/greeting"
	"github.com/harunnryd/payfone/pkg/logging"
	"github.com/harunnryd/payfone/pkg/metrics"
	"github.com/harunnryd/payfone/pkg/playback"
	"github.com/harunnryd/payfone/pkg/redact"
	"github.com/harunnryd/payfone/pkg/server"
	"github.com/harunnryd/payfone/pkg/store"
	"github.com/harunnryd/payfone/pkg/tone"
)

// Animation geometry shared with the front-end frame strips.
const (
	DialAnimFrames = 12
	BookAnimFrames = 16
	AnimFPS        = 12
)

// Options tune pieces the config file does not cover.
type Options struct {
	// Sink receives every audio frame the app produces. Defaults to the
	// null sink, which discards them.
	Sink audio.Sink
	// QuietLogs sends log output to the artifacts dir (or discards it)
	// instead of stdout, keeping the terminal free for the front-end.
	QuietLogs bool
}

// App owns every long-lived component.
type App struct {
	cfg    Config
	logger *slog.Logger

	store    *store.SQLiteStore
	dir      *directory.Directory
	convo    *ConvoService
	fetcher  *greeting.Fetcher
	tones    *tone.Generator
	speaker  *playback.Driver
	dialAnim *animator.Animator
	bookAnim *animator.Animator
	orch     *call.Orchestrator
	hub      *server.Hub
	srv      *server.Server
	observer metrics.Observer

	logFile      *os.File
	artifactFile *os.File
}

func NewApp(cfg Config, opts Options) (*App, error) {
	a := &App{cfg: cfg}

	if err := a.initLogging(opts); err != nil {
		return nil, err
	}
	redact.SetEnabled(cfg.Privacy.RedactPII)
	if err := a.initObserver(); err != nil {
		return nil, err
	}

	st, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		a.closeFiles()
		return nil, err
	}
	a.store = st

	a.dir = directory.New(a.logger)
	if err := a.loadDirectory(context.Background()); err != nil {
		a.Close()
		return nil, err
	}

	llmAdapter, err := buildLLM(cfg.Vendors.LLM)
	if err != nil {
		a.Close()
		return nil, err
	}
	synth, err := buildTTS(cfg.Vendors.TTS)
	if err != nil {
		a.Close()
		return nil, err
	}
	transcriber, err := buildSTT(cfg.Vendors.STT)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.convo = NewConvoService(a.dir, llmAdapter, 12, a.logger)
	a.fetcher = greeting.NewFetcher(a.convo, a.logger)

	sink := opts.Sink
	if sink == nil {
		sink = audio.NullSink{}
	}
	a.tones = tone.NewGenerator(sink, audio.DefaultRate, a.logger)
	a.speaker = playback.NewDriver(playback.Config{}, synth, sink, a.logger)

	a.dialAnim = animator.New("dial", DialAnimFrames, AnimFPS, a.logger)
	a.bookAnim = animator.New("book", BookAnimFrames, AnimFPS, a.logger)

	a.orch = call.NewOrchestrator(call.Config{
		MaxDialDigits:    cfg.Call.MaxDialDigits,
		MaxTranscript:    cfg.Call.MaxTranscript,
		DTMFDuration:     time.Duration(cfg.Call.DTMFDurationMS) * time.Millisecond,
		JoinPollInterval: time.Duration(cfg.Call.JoinPollIntervalMS) * time.Millisecond,
		Placeholder:      cfg.Call.Placeholder,
	}, call.Deps{
		Resolver: a.dir,
		Greeter:  a.fetcher,
		Chat:     a.convo,
		Tones:    a.tones,
		Speaker:  a.speaker,
		DialAnim: a.dialAnim,
		BookAnim: a.bookAnim,
		Observer: a.observer,
		Logger:   a.logger,
	})

	a.hub = server.NewHub(a.logger)
	a.orch.AddListener(a.hub)
	a.srv = server.New(server.Deps{
		Store:     a.store,
		Directory: a.dir,
		Greet:     a.convo,
		Chat:      a.convo,
		TTS:       synth,
		STT:       transcriber,
		Hub:       a.hub,
		Logger:    a.logger,
	})

	return a, nil
}

func (a *App) initLogging(opts Options) error {
	level := logging.ParseLevel(a.cfg.LogLevel)
	if !opts.QuietLogs {
		a.logger = logging.InitLogger(level, a.cfg.LogFormat)
		slog.SetDefault(a.logger)
		return nil
	}
	if a.cfg.Observability.ArtifactsDir != "" {
		if err := os.MkdirAll(a.cfg.Observability.ArtifactsDir, 0o755); err != nil {
			return fmt.Errorf("artifacts dir: %w", err)
		}
		f, err := os.OpenFile(a.cfg.Observability.ArtifactsDir+"/payfone.log",
			os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		a.logFile = f
		a.logger = logging.NewLogger(f, level, a.cfg.LogFormat)
		slog.SetDefault(a.logger)
		return nil
	}
	devnull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	a.logFile = devnull
	a.logger = logging.NewLogger(devnull, level, a.cfg.LogFormat)
	slog.SetDefault(a.logger)
	return nil
}

func (a *App) initObserver() error {
	if a.cfg.Observability.ArtifactsDir == "" {
		a.observer = metrics.NoopObserver{}
		return nil
	}
	if err := os.MkdirAll(a.cfg.Observability.ArtifactsDir, 0o755); err != nil {
		return fmt.Errorf("artifacts dir: %w", err)
	}
	f, err := os.OpenFile(a.cfg.Observability.ArtifactsDir+"/events.jsonl",
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open events file: %w", err)
	}
	a.artifactFile = f
	a.observer = metrics.NewJSONLObserver(f)
	return nil
}

// loadDirectory snapshots the routes table. An empty table gets the
// starter address book so a fresh install has someone to call.
func (a *App) loadDirectory(ctx context.Context) error {
	routes, err := a.store.ListRoutes(ctx)
	if err != nil {
		return err
	}
	if len(routes) == 0 {
		routes = starterRoutes(a.cfg.Vendors.LLM.Provider)
		for _, p := range routes {
			if err := a.store.PutRoute(ctx, p); err != nil {
				return err
			}
		}
	}
	a.dir.Replace(routes)
	return nil
}

func starterRoutes(provider string) []directory.Persona {
	return []directory.Persona{
		{
			Number:   "0",
			Label:    "Operator",
			Avatar:   "operator",
			Provider: provider,
			Prompt:   "You are a 1970s telephone switchboard operator. Crisp, helpful, slightly harried. Keep replies to a sentence or two.",
		},
		{
			Number:   "411",
			Label:    "Directory Assistance",
			Avatar:   "directory",
			Provider: provider,
			Prompt:   "You are a directory-assistance clerk. You only know about the other numbers on this payphone and love recommending them.",
		},
		{
			Number:   "18005551212",
			Label:    "Plutus",
			Avatar:   "plutus",
			Provider: provider,
			Prompt:   "You are Plutus, the Greek god of wealth, moonlighting on a toll-free hotline. Grandiose, a little out of touch, obsessed with markets.",
		},
	}
}

// Orchestrator exposes the call state machine to front-ends.
func (a *App) Orchestrator() *call.Orchestrator { return a.orch }

// Directory exposes the address book snapshot.
func (a *App) Directory() *directory.Directory { return a.dir }

// DialAnim is the handset-raise animation.
func (a *App) DialAnim() *animator.Animator { return a.dialAnim }

// BookAnim is the address-book intro animation.
func (a *App) BookAnim() *animator.Animator { return a.bookAnim }

// Logger is the app-level logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// ServeHTTP blocks running the HTTP surface until ctx is done.
func (a *App) ServeHTTP(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.srv.Start(a.cfg.Server.Addr)
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.srv.Shutdown(shCtx)
	}
}

// Drain implements runner.Drainer: end the call, stop the server, close
// the store and artifact files.
func (a *App) Drain() error {
	if a.orch != nil {
		a.orch.HangUp()
	}
	if a.srv != nil {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.srv.Shutdown(shCtx)
	}
	return a.Close()
}

// Close releases the store and any open artifact files.
func (a *App) Close() error {
	var firstErr error
	if a.store != nil {
		if err := a.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		a.store = nil
	}
	a.closeFiles()
	return firstErr
}

func (a *App) closeFiles() {
	if fl, ok := a.observer.(metrics.Flusher); ok {
		_ = fl.Flush()
	}
	if a.artifactFile != nil {
		_ = a.artifactFile.Close()
		a.artifactFile = nil
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
		a.logFile = nil
	}
}
