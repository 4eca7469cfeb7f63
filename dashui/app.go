// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

package dashui

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dreamvisitor/dashboard/botconfig"
	"github.com/dreamvisitor/dashboard/console"
	"github.com/dreamvisitor/dashboard/draft"
	"github.com/dreamvisitor/dashboard/gateway"
	"github.com/dreamvisitor/dashboard/lib/clock"
	"github.com/dreamvisitor/dashboard/profile"
	"github.com/dreamvisitor/dashboard/serverprops"
	"github.com/dreamvisitor/dashboard/status"
)

// DefaultSearchDebounce is how long the user search input must be
// quiet before the pending gateway query fires.
const DefaultSearchDebounce = 250 * time.Millisecond

// AppConfig carries App dependencies.
type AppConfig struct {
	Client *gateway.Client
	Clock  clock.Clock
	Logger *slog.Logger

	// HistoryLimit caps the console transcript. Zero uses 500.
	HistoryLimit int
}

// App is the service container behind the dashboard model: one
// synchronizer per config panel, the console service, the profile
// service, and the status watcher, all sharing a single gateway
// client. Every service's change callback funnels into one
// coalescing channel so the bubbletea loop sees at most one pending
// wakeup no matter how many services changed.
type App struct {
	Client *gateway.Client
	Clock  clock.Clock
	Logger *slog.Logger

	BotConfig   *draft.Synchronizer
	ServerProps *draft.Synchronizer
	Console     *console.Service
	Profiles    *profile.Service
	Status      *status.Watcher

	botStore   *botconfig.Store
	propsStore *serverprops.Store

	changes chan struct{}

	// Search keystrokes arm the debouncer; the due signal fires once
	// typing pauses, so a burst issues one gateway query.
	searchDebounce *draft.Debouncer
	searchDue      chan struct{}
}

// NewApp wires the domain services over the given client.
func NewApp(cfg AppConfig) (*App, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("dashui: config missing Client")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	historyLimit := cfg.HistoryLimit
	if historyLimit <= 0 {
		historyLimit = 500
	}

	app := &App{
		Client:    cfg.Client,
		Clock:     cfg.Clock,
		Logger:    cfg.Logger,
		changes:   make(chan struct{}, 1),
		searchDue: make(chan struct{}, 1),
	}
	app.searchDebounce = draft.NewDebouncer(cfg.Clock, DefaultSearchDebounce)

	app.botStore = botconfig.NewStore(cfg.Client, cfg.Logger)
	botSync, err := draft.NewSynchronizer(draft.SynchronizerConfig{
		Store:    app.botStore,
		Clock:    cfg.Clock,
		Logger:   cfg.Logger,
		Name:     "botconfig",
		OnChange: app.notifyChanged,
	})
	if err != nil {
		return nil, err
	}
	app.BotConfig = botSync

	app.propsStore = serverprops.NewStore(cfg.Client, cfg.Clock, cfg.Logger)
	propsSync, err := draft.NewSynchronizer(draft.SynchronizerConfig{
		Store:    app.propsStore,
		Clock:    cfg.Clock,
		Logger:   cfg.Logger,
		Name:     "serverprops",
		OnChange: app.notifyChanged,
	})
	if err != nil {
		return nil, err
	}
	app.ServerProps = propsSync

	feed := console.NewFeed(console.FeedConfig{
		Clock:        cfg.Clock,
		HistoryLimit: historyLimit,
		OnChange:     app.notifyChanged,
	})
	app.Console = console.NewService(cfg.Client, feed, historyLimit, cfg.Logger)
	app.Profiles = profile.NewService(cfg.Client, cfg.Logger)
	app.Status = status.NewWatcher(cfg.Client, cfg.Logger, app.notifyChanged)

	// Token changes (login, logout, expiry clear) repaint like any
	// other service change.
	cfg.Client.AuthStore().OnChange(app.notifyChanged)

	return app, nil
}

// Changes exposes the coalesced change channel. One receive may cover
// any number of service mutations; receivers re-read whatever state
// they render.
func (app *App) Changes() <-chan struct{} { return app.changes }

// notifyChanged posts a wakeup without blocking. A full channel means
// a wakeup is already pending, which covers this change too.
func (app *App) notifyChanged() {
	select {
	case app.changes <- struct{}{}:
	default:
	}
}

// scheduleSearch (re)arms the search debouncer. The model picks up
// the due signal and runs whatever the input holds by then, so the
// signal itself carries no pattern.
func (app *App) scheduleSearch() {
	app.searchDebounce.Trigger(app.notifySearchDue)
}

func (app *App) notifySearchDue() {
	select {
	case app.searchDue <- struct{}{}:
	default:
	}
}
