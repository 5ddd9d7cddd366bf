// Package greeting obtains the opening line of dialogue for a freshly
// dialed persona. One fetch per call attempt; a newer fetch or a hang-up
// cancels whatever is in flight, and a cancelled fetch never delivers.
package greeting

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/harunnryd/payfone/pkg/logging"
)

// Service is the upstream that produces greeting text for a persona number.
type Service interface {
	Greeting(ctx context.Context, number string) (string, error)
}

type Fetcher struct {
	mu     sync.Mutex
	svc    Service
	cancel context.CancelFunc
	logger *slog.Logger
}

func NewFetcher(svc Service, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		svc:    svc,
		logger: logging.NewComponentLogger(logger, "greeting"),
	}
}

// Fetch blocks until the greeting resolves, the supplied context is
// cancelled, or a newer Fetch supersedes this one. Failure and cancellation
// both resolve to "": absence of speech is the degraded behavior, not an
// error.
func (f *Fetcher) Fetch(ctx context.Context, number string) string {
	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
	}
	fctx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.mu.Unlock()

	text, err := f.svc.Greeting(fctx, number)
	if err != nil {
		if fctx.Err() == nil {
			f.logger.Warn("greeting fetch failed",
				slog.String("number", number),
				slog.String("error", err.Error()))
		}
		return ""
	}
	if fctx.Err() != nil {
		// Aborted after the response landed; the result must be discarded.
		return ""
	}
	return strings.TrimSpace(text)
}

// Cancel aborts any in-flight fetch. Safe to call when none is running.
func (f *Fetcher) Cancel() {
	f.mu.Lock()
	cancel := f.cancel
	f.cancel = nil
	f.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
