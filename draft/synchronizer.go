// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

package draft

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/looplab/fsm"

	"github.com/dreamvisitor/dashboard/gateway"
	"github.com/dreamvisitor/dashboard/lib/clock"
)

// Store loads and saves the remote record behind a Synchronizer. Each
// panel implements this once: the bot config store talks to a record
// collection, the server properties store round-trips a file attachment.
type Store interface {
	// Load fetches the current remote record. A store backing a
	// singleton record that does not exist yet returns a not-found
	// error; the Synchronizer treats the record as empty and creates
	// it on first apply.
	Load(ctx context.Context) (gateway.Record, error)

	// Save writes the draft and returns the authoritative server copy,
	// which becomes the new original. Stores for missing singletons
	// create the record here.
	Save(ctx context.Context, record gateway.Record) (gateway.Record, error)
}

// Synchronizer phases. The externally-modified flag is deliberately not
// a phase: it can be raised in any of them without disturbing edits.
const (
	PhaseLoading  = "loading"
	PhaseClean    = "clean"
	PhaseDirty    = "dirty"
	PhaseApplying = "applying"
)

const (
	eventLoaded      = "loaded"
	eventEdited      = "edited"
	eventMatched     = "matched"
	eventApply       = "apply"
	eventApplied     = "applied"
	eventApplyFailed = "apply-failed"
	eventReload      = "reload"
)

// DefaultSavedIndicatorDuration is how long Saved reports true after a
// successful apply.
const DefaultSavedIndicatorDuration = 3 * time.Second

// SynchronizerConfig carries the dependencies of a Synchronizer.
type SynchronizerConfig struct {
	Store  Store
	Clock  clock.Clock
	Logger *slog.Logger

	// Name identifies the synchronized record in log lines, for
	// example "botconfig" or "serverprops".
	Name string

	// SavedIndicatorDuration overrides DefaultSavedIndicatorDuration
	// when positive.
	SavedIndicatorDuration time.Duration

	// OnChange, if set, is invoked after every observable state
	// change: phase transitions, edits, flag changes, and the saved
	// indicator expiring. It is called without internal locks held and
	// may call back into the Synchronizer.
	OnChange func()
}

// Synchronizer keeps a draft copy of one remote record and reconciles
// it against remote writes. All methods are safe for concurrent use;
// realtime handlers feed HandleRemote from the subscription goroutine
// while the UI loop edits and applies.
type Synchronizer struct {
	store    Store
	clock    clock.Clock
	logger   *slog.Logger
	name     string
	savedFor time.Duration
	onChange func()

	mu                 sync.Mutex
	machine            *fsm.FSM
	draft              gateway.Record
	original           gateway.Record
	externallyModified bool
	loadErr            error
	applyErr           error
	saved              bool
	savedTimer         *clock.Timer
}

// NewSynchronizer builds a Synchronizer in the loading phase. Call Load
// before anything else.
func NewSynchronizer(cfg SynchronizerConfig) (*Synchronizer, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("draft: config missing Store")
	}
	if cfg.Clock == nil {
		return nil, fmt.Errorf("draft: config missing Clock")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("draft: config missing Logger")
	}
	savedFor := cfg.SavedIndicatorDuration
	if savedFor <= 0 {
		savedFor = DefaultSavedIndicatorDuration
	}
	s := &Synchronizer{
		store:    cfg.Store,
		clock:    cfg.Clock,
		logger:   cfg.Logger.With("draft", cfg.Name),
		name:     cfg.Name,
		savedFor: savedFor,
		onChange: cfg.OnChange,
	}
	s.machine = fsm.NewFSM(
		PhaseLoading,
		fsm.Events([]fsm.EventDesc{
			{Name: eventLoaded, Src: []string{PhaseLoading}, Dst: PhaseClean},
			{Name: eventEdited, Src: []string{PhaseClean}, Dst: PhaseDirty},
			{Name: eventMatched, Src: []string{PhaseDirty}, Dst: PhaseClean},
			{Name: eventApply, Src: []string{PhaseDirty}, Dst: PhaseApplying},
			{Name: eventApplied, Src: []string{PhaseApplying}, Dst: PhaseClean},
			{Name: eventApplyFailed, Src: []string{PhaseApplying}, Dst: PhaseDirty},
			{Name: eventReload, Src: []string{PhaseClean, PhaseDirty}, Dst: PhaseLoading},
		}),
		fsm.Callbacks{},
	)
	return s, nil
}

// Phase returns the current synchronization phase.
func (s *Synchronizer) Phase() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Current()
}

// Dirty reports whether the draft structurally differs from the
// original. It is false while loading and during apply.
func (s *Synchronizer) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Current() == PhaseDirty
}

// ExternallyModified reports whether a conflicting remote write arrived
// while local edits existed. The flag clears on apply, revert, or
// refresh.
func (s *Synchronizer) ExternallyModified() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.externallyModified
}

// Saved reports whether an apply succeeded within the saved-indicator
// window.
func (s *Synchronizer) Saved() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved
}

// Err returns the most recent load or apply error, or nil. It clears on
// the next successful load or apply.
func (s *Synchronizer) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return s.loadErr
	}
	return s.applyErr
}

// Draft returns a deep copy of the current draft record. Callers may
// mutate the copy freely; only EditField changes the tracked draft.
func (s *Synchronizer) Draft() gateway.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Clone()
}

// Original returns a deep copy of the last known-good server record.
func (s *Synchronizer) Original() gateway.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.original.Clone()
}

// Field returns the draft value for a field, or nil if absent.
func (s *Synchronizer) Field(name string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft == nil {
		return nil
	}
	return s.draft[name]
}

// Load performs the initial fetch, replacing both original and draft. A
// not-found error from the store is not a failure: the record does not
// exist yet and will be created on first apply.
func (s *Synchronizer) Load(ctx context.Context) error {
	record, err := s.store.Load(ctx)
	if err != nil && !gateway.IsNotFound(err) {
		if gateway.IsCancelled(err) {
			return err
		}
		s.mu.Lock()
		s.loadErr = err
		s.mu.Unlock()
		s.logger.Error("load failed", "error", err)
		s.notify()
		return fmt.Errorf("draft: load %s: %w", s.name, err)
	}
	if err != nil {
		s.logger.Info("record missing, will create on first apply")
		record = gateway.Record{}
	}

	s.mu.Lock()
	s.adoptLocked(ctx, record)
	s.loadErr = nil
	s.mu.Unlock()
	s.notify()
	return nil
}

// EditField sets one draft field and re-derives dirtiness. Editing a
// field back to its original value can transition the draft back to
// clean. Edits are ignored while loading or applying.
func (s *Synchronizer) EditField(name string, value any) {
	s.mu.Lock()
	phase := s.machine.Current()
	if phase != PhaseClean && phase != PhaseDirty {
		s.mu.Unlock()
		return
	}
	if s.draft == nil {
		s.draft = gateway.Record{}
	}
	s.draft[name] = value
	s.reconcilePhaseLocked()
	s.mu.Unlock()
	s.notify()
}

// Apply saves the draft and adopts the server response as the new
// original. On failure the draft and its dirty state are preserved. The
// externally-modified flag clears on success: the operator's write is
// now the newest one.
func (s *Synchronizer) Apply(ctx context.Context) error {
	s.mu.Lock()
	if s.machine.Current() != PhaseDirty {
		s.mu.Unlock()
		return nil
	}
	if err := s.machine.Event(ctx, eventApply); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("draft: apply %s: %w", s.name, err)
	}
	draft := s.draft.Clone()
	s.mu.Unlock()
	s.notify()

	saved, err := s.store.Save(ctx, draft)

	s.mu.Lock()
	if err != nil {
		_ = s.machine.Event(ctx, eventApplyFailed)
		if !gateway.IsCancelled(err) {
			s.applyErr = err
			s.logger.Error("apply failed", "error", err)
		}
		s.mu.Unlock()
		s.notify()
		return fmt.Errorf("draft: apply %s: %w", s.name, err)
	}
	_ = s.machine.Event(ctx, eventApplied)
	s.original = saved.Clone()
	s.draft = saved.Clone()
	s.externallyModified = false
	s.applyErr = nil
	s.startSavedIndicatorLocked()
	s.mu.Unlock()
	s.logger.Info("applied", "record", saved.ID())
	s.notify()
	return nil
}

// Revert discards all local edits, restoring the draft to the original,
// and clears the externally-modified flag. The original is not
// re-fetched; the next remote event or an explicit Refresh brings in
// the newer server copy.
func (s *Synchronizer) Revert(ctx context.Context) {
	s.mu.Lock()
	phase := s.machine.Current()
	if phase != PhaseClean && phase != PhaseDirty {
		s.mu.Unlock()
		return
	}
	changed := s.externallyModified || phase == PhaseDirty
	s.externallyModified = false
	if phase == PhaseDirty {
		s.draft = s.original.Clone()
		_ = s.machine.Event(ctx, eventMatched)
	}
	s.mu.Unlock()
	if changed {
		s.notify()
	}
}

// Refresh discards local edits and re-fetches the server record,
// clearing the externally-modified flag. This is the only operation
// that intentionally loses edits, and the UI only offers it from the
// external-changes banner. A refresh whose fetch failed leaves the
// machine in the loading phase; calling Refresh again retries the
// fetch directly rather than erroring out of that phase.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.machine.Current() == PhaseLoading {
		s.mu.Unlock()
		return s.Load(ctx)
	}
	if err := s.machine.Event(ctx, eventReload); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("draft: refresh %s: %w", s.name, err)
	}
	s.mu.Unlock()
	s.notify()
	return s.Load(ctx)
}

// HandleRemote folds a realtime event for the synchronized record into
// local state. While clean, the remote copy is adopted outright. While
// dirty or applying, the draft is untouched and the externally-modified
// flag is raised only when the remote copy differs from the original;
// an echo of our own apply is not a conflict.
func (s *Synchronizer) HandleRemote(ctx context.Context, record gateway.Record) {
	s.mu.Lock()
	switch s.machine.Current() {
	case PhaseLoading:
		s.mu.Unlock()
		return
	case PhaseClean:
		s.adoptLocked(ctx, record)
		s.mu.Unlock()
		s.notify()
	default:
		if recordsEqual(record, s.original) {
			s.mu.Unlock()
			return
		}
		s.externallyModified = true
		s.logger.Info("remote change while editing", "record", record.ID())
		s.mu.Unlock()
		s.notify()
	}
}

// adoptLocked replaces original and draft with the given record. Caller
// holds s.mu and is in the loading or clean phase.
func (s *Synchronizer) adoptLocked(ctx context.Context, record gateway.Record) {
	s.original = record.Clone()
	s.draft = record.Clone()
	s.externallyModified = false
	if s.machine.Current() == PhaseLoading {
		_ = s.machine.Event(ctx, eventLoaded)
	}
}

// reconcilePhaseLocked moves between clean and dirty to match the
// draft/original comparison. Caller holds s.mu.
func (s *Synchronizer) reconcilePhaseLocked() {
	dirty := !recordsEqual(s.draft, s.original)
	switch {
	case dirty && s.machine.Current() == PhaseClean:
		_ = s.machine.Event(context.Background(), eventEdited)
	case !dirty && s.machine.Current() == PhaseDirty:
		_ = s.machine.Event(context.Background(), eventMatched)
	}
}

// startSavedIndicatorLocked arms the transient saved indicator,
// resetting the window if an apply lands while one is already showing.
func (s *Synchronizer) startSavedIndicatorLocked() {
	s.saved = true
	if s.savedTimer != nil {
		s.savedTimer.Stop()
	}
	s.savedTimer = s.clock.AfterFunc(s.savedFor, func() {
		s.mu.Lock()
		s.saved = false
		s.mu.Unlock()
		s.notify()
	})
}

func (s *Synchronizer) notify() {
	if s.onChange != nil {
		s.onChange()
	}
}

// recordsEqual compares two records structurally. Numeric values keep
// the concrete types the JSON decoder produced, so a float64 3 and an
// int 3 differ; stores normalize field types at load time to make the
// comparison meaningful.
func recordsEqual(a, b gateway.Record) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(map[string]any(a), map[string]any(b))
}
