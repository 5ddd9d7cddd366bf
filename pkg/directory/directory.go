// Package directory maps dialed numbers to configured personas. It is a
// read-mostly snapshot: loaded at startup and replaced wholesale on explicit
// save, never mutated mid-call.
package directory

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/harunnryd/payfone/pkg/logging"
)

// Persona is a configured identity reachable by dialing its number.
type Persona struct {
	Number   string `json:"number"`
	Label    string `json:"label"`
	Avatar   string `json:"avatar,omitempty"`
	Provider string `json:"provider"`
	Model    string `json:"model,omitempty"`
	Voice    string `json:"voice,omitempty"`
	Prompt   string `json:"prompt,omitempty"`
}

// Resolver is the lookup boundary the call orchestrator consumes.
type Resolver interface {
	Resolve(number string) (Persona, bool)
}

type Directory struct {
	mu       sync.RWMutex
	byNumber map[string]Persona
	logger   *slog.Logger
}

func New(logger *slog.Logger) *Directory {
	return &Directory{
		byNumber: make(map[string]Persona),
		logger:   logging.NewComponentLogger(logger, "directory"),
	}
}

// Replace swaps the whole snapshot.
func (d *Directory) Replace(personas []Persona) {
	next := make(map[string]Persona, len(personas))
	for _, p := range personas {
		if p.Number == "" {
			continue
		}
		next[p.Number] = p
	}
	d.mu.Lock()
	d.byNumber = next
	d.mu.Unlock()
	d.logger.Info("directory reloaded", slog.Int("entries", len(next)))
}

// Resolve looks up a persona by its dialed number.
func (d *Directory) Resolve(number string) (Persona, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.byNumber[number]
	return p, ok
}

// All returns every persona sorted by label, for the address book view.
func (d *Directory) All() []Persona {
	d.mu.RLock()
	out := make([]Persona, 0, len(d.byNumber))
	for _, p := range d.byNumber {
		out = append(out, p)
	}
	d.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

var _ Resolver = (*Directory)(nil)
