package deepgram

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/harunnryd/payfone/pkg/adapters/stt"
	"github.com/harunnryd/payfone/pkg/errorsx"
	"github.com/harunnryd/payfone/pkg/logging"

	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	client "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
)

type Config struct {
	APIKey   string
	Model    string
	Language string
	// DrainTimeout bounds how long Transcribe waits for trailing results
	// after the whole clip has been written. Default 5s.
	DrainTimeout time.Duration
}

// Transcriber streams one clip through the Deepgram live-transcription
// websocket and returns the joined final transcript.
type Transcriber struct {
	cfg    Config
	logger *slog.Logger
}

func New(cfg Config) *Transcriber {
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = 5 * time.Second
	}
	return &Transcriber{
		cfg:    cfg,
		logger: logging.NewComponentLogger(slog.Default(), "deepgram_stt"),
	}
}

func (t *Transcriber) Name() string { return "deepgram" }

func (t *Transcriber) Transcribe(ctx context.Context, clip []byte, opts stt.Options) (string, error) {
	if len(clip) == 0 {
		return "", nil
	}
	if t.cfg.APIKey == "" {
		return "", errorsx.Wrap(errors.New("missing deepgram api key"), errorsx.ReasonProviderConfig)
	}
	if opts.SampleRate == 0 {
		opts.SampleRate = 16000
	}
	if opts.Encoding == "" {
		opts.Encoding = "linear16"
	}
	language := opts.Language
	if language == "" {
		language = t.cfg.Language
	}

	wsCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	pipeReader, pipeWriter := io.Pipe()

	clientOptions := &interfaces.ClientOptions{
		EnableKeepAlive: true,
	}
	transcriptOptions := &interfaces.LiveTranscriptionOptions{
		Model:          t.cfg.Model,
		Language:       language,
		Encoding:       opts.Encoding,
		SampleRate:     opts.SampleRate,
		InterimResults: false,
		SmartFormat:    true,
	}

	cb := &callback{logger: t.logger, done: make(chan struct{})}

	dgClient, err := client.NewWSUsingCallback(wsCtx, t.cfg.APIKey, clientOptions, transcriptOptions, cb)
	if err != nil {
		t.logger.Error("deepgram_client_create_error", slog.String("error", err.Error()))
		return "", errorsx.Wrap(err, errorsx.ReasonSTTConnect)
	}
	if connected := dgClient.Connect(); !connected {
		t.logger.Error("deepgram_connect_failed")
		return "", errorsx.Wrap(errors.New("deepgram connection failed"), errorsx.ReasonSTTConnect)
	}
	defer dgClient.Stop()

	go func() {
		if err := dgClient.Stream(pipeReader); err != nil && wsCtx.Err() == nil {
			t.logger.Error("deepgram_stream_error", slog.String("error", err.Error()))
		}
	}()

	if _, err := pipeWriter.Write(clip); err != nil {
		_ = pipeWriter.Close()
		return "", errorsx.Wrap(err, errorsx.ReasonSTTTranscribe)
	}
	_ = pipeWriter.Close()

	select {
	case <-cb.done:
	case <-ctx.Done():
		return "", errorsx.Wrap(ctx.Err(), errorsx.ReasonCancelled)
	case <-time.After(t.cfg.DrainTimeout):
		// Connection stayed open without a terminal event. Whatever
		// finals arrived so far are the answer.
	}

	return cb.transcript(), nil
}

// --- Callback Implementation ---

type callback struct {
	logger *slog.Logger
	mu     sync.Mutex
	parts  []string
	once   sync.Once
	done   chan struct{}

	metaLogged bool
}

func (c *callback) transcript() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.TrimSpace(strings.Join(c.parts, " "))
}

func (c *callback) finish() {
	c.once.Do(func() { close(c.done) })
}

func (c *callback) Open(or *msginterfaces.OpenResponse) error {
	c.logger.Info("deepgram_connection_opened")
	return nil
}

func (c *callback) Message(mr *msginterfaces.MessageResponse) error {
	if len(mr.Channel.Alternatives) == 0 {
		return nil
	}
	alt := mr.Channel.Alternatives[0]
	if alt.Transcript == "" {
		return nil
	}
	if !mr.IsFinal && !mr.SpeechFinal {
		return nil
	}
	c.logger.Debug("transcript_received",
		slog.String("transcript", alt.Transcript),
		slog.Bool("speech_final", mr.SpeechFinal))
	c.mu.Lock()
	c.parts = append(c.parts, alt.Transcript)
	c.mu.Unlock()
	return nil
}

func (c *callback) Metadata(md *msginterfaces.MetadataResponse) error {
	if !c.metaLogged {
		c.metaLogged = true
		c.logger.Info("deepgram_metadata_received", slog.String("request_id", md.RequestID))
	}
	return nil
}

func (c *callback) SpeechStarted(ssr *msginterfaces.SpeechStartedResponse) error {
	c.logger.Debug("speech_started_event")
	return nil
}

func (c *callback) UtteranceEnd(ur *msginterfaces.UtteranceEndResponse) error {
	c.logger.Debug("utterance_end_event")
	c.finish()
	return nil
}

func (c *callback) Close(cr *msginterfaces.CloseResponse) error {
	c.logger.Info("deepgram_connection_closed")
	c.finish()
	return nil
}

func (c *callback) Error(er *msginterfaces.ErrorResponse) error {
	c.logger.Error("deepgram_error",
		slog.String("error_code", er.ErrCode),
		slog.String("error_message", er.ErrMsg))
	c.finish()
	return nil
}

func (c *callback) UnhandledEvent(byData []byte) error {
	c.logger.Debug("deepgram_unhandled_event", slog.String("data", string(byData)))
	return nil
}

var _ stt.Transcriber = (*Transcriber)(nil)
