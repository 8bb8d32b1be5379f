// Package watcher watches source files and re-analyzes them as they change,
// emitting alerts when an analysis differs notably from the previous one.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/blackwell-systems/codecoach/internal/analysis"
	"github.com/blackwell-systems/codecoach/internal/realtime"
	"github.com/blackwell-systems/codecoach/internal/scanner"
)

// Alert represents a notable change between two analyses of a file.
type Alert struct {
	Level   string    `json:"level"` // "info", "warning", "critical"
	Title   string    `json:"title"`
	Message string    `json:"message"`
	Path    string    `json:"path"`
	Time    time.Time `json:"time"`
}

// Event is delivered once per debounced analysis of a file.
type Event struct {
	Path     string                `json:"path"`
	Analysis analysis.CodeAnalysis `json:"analysis"`
	Alerts   []Alert               `json:"alerts"`
}

// Watcher feeds file changes under a root through a realtime scheduler,
// one debounce session per file.
type Watcher struct {
	root    string
	opts    analysis.Options
	sched   *realtime.Scheduler
	eventFn func(Event)

	// Progress, when set, personalizes every analysis.
	Progress *analysis.UserProgress

	mu            sync.Mutex
	previous      map[string]analysis.CodeAnalysis
	lastAlertKeys map[string]map[string]bool
}

// New creates a Watcher for root, which may be a directory or a single file.
// The language in opts is replaced per file by its extension.
func New(root string, a realtime.Analyzer, delay time.Duration, opts analysis.Options, eventFn func(Event)) *Watcher {
	return &Watcher{
		root:          root,
		opts:          opts,
		sched:         realtime.NewScheduler(a, delay),
		eventFn:       eventFn,
		previous:      make(map[string]analysis.CodeAnalysis),
		lastAlertKeys: make(map[string]map[string]bool),
	}
}

// Run analyzes every existing source under the root, then watches for
// changes until ctx is cancelled. It returns ctx.Err() on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	info, err := os.Stat(w.root)
	if err != nil {
		return fmt.Errorf("watch root: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer func() { _ = fsw.Close() }()
	defer w.sched.Close()

	single := ""
	if info.IsDir() {
		if err := w.addWatches(fsw, w.root); err != nil {
			return err
		}
	} else {
		single = filepath.Clean(w.root)
		if err := fsw.Add(filepath.Dir(single)); err != nil {
			return fmt.Errorf("watching %s: %w", single, err)
		}
	}

	sources, err := scanner.DiscoverSources([]string{w.root})
	if err != nil {
		return fmt.Errorf("discovering sources: %w", err)
	}
	for _, s := range sources {
		w.Submit(s.Path)
	}
	log.Info().Str("root", w.root).Int("files", len(sources)).Msg("watching")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if single != "" && filepath.Clean(event.Name) != single {
				continue
			}
			w.handleEvent(fsw, event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("file watcher error")
		}
	}
}

// addWatches adds a watch for root and every directory below it that is
// not skipped.
func (w *Watcher) addWatches(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && scanner.SkipDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			log.Warn().Err(err).Str("dir", path).Msg("failed to add watch")
		}
		return nil
	})
}

func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, event fsnotify.Event) {
	path := event.Name
	log.Debug().Str("path", path).Str("op", event.Op.String()).Msg("file event")

	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		w.Forget(path)
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if info.IsDir() {
		if event.Has(fsnotify.Create) && !scanner.SkipDir(info.Name()) {
			if err := w.addWatches(fsw, path); err != nil {
				log.Warn().Err(err).Str("dir", path).Msg("failed to watch new directory")
			}
		}
		return
	}
	w.Submit(path)
}

// Submit reads path and schedules it for analysis. Unsupported or unreadable
// files are ignored.
func (w *Watcher) Submit(path string) {
	lang, ok := scanner.DetectLanguage(path)
	if !ok {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("skipping unreadable file")
		return
	}

	opts := w.opts
	opts.Language = lang
	req := realtime.Request{Code: string(data), Options: opts, Context: w.feedback(path)}
	if err := w.sched.Submit(path, req, func(a analysis.CodeAnalysis) { w.deliver(path, a) }); err != nil {
		log.Debug().Err(err).Str("path", path).Msg("watcher closed, dropping change")
	}
}

// Forget drops the pending analysis and history of path.
func (w *Watcher) Forget(path string) {
	w.sched.Remove(path)
	w.mu.Lock()
	delete(w.previous, path)
	delete(w.lastAlertKeys, path)
	w.mu.Unlock()
}

func (w *Watcher) feedback(path string) *analysis.FeedbackContext {
	w.mu.Lock()
	defer w.mu.Unlock()

	prev, ok := w.previous[path]
	if !ok && w.Progress == nil {
		return nil
	}
	fctx := &analysis.FeedbackContext{UserProgress: w.Progress}
	if ok {
		fctx.PreviousAnalysis = &prev
	}
	return fctx
}

// deliver compares a with the previous analysis of path and emits the
// event. Alerts identical to the previous cycle's are suppressed.
func (w *Watcher) deliver(path string, a analysis.CodeAnalysis) {
	w.mu.Lock()
	var prev *analysis.CodeAnalysis
	if p, ok := w.previous[path]; ok {
		prev = &p
	}
	raw := Compare(prev, &a)

	currentKeys := make(map[string]bool, len(raw))
	alerts := []Alert{}
	for _, al := range raw {
		al.Path = path
		key := al.Level + ":" + al.Title + ":" + al.Message
		currentKeys[key] = true
		if !w.lastAlertKeys[path][key] {
			alerts = append(alerts, al)
		}
	}
	w.lastAlertKeys[path] = currentKeys
	w.previous[path] = a
	w.mu.Unlock()

	if w.eventFn != nil {
		w.eventFn(Event{Path: path, Analysis: a, Alerts: alerts})
	}
}
