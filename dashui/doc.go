// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

// Package dashui implements the terminal dashboard: a bubbletea
// program with a login screen and four tabs (home, console, config,
// users) over the gateway-backed services.
//
// The model owns no domain state of its own. Drafts live in the
// draft.Synchronizer instances, the console transcript in the
// console.Feed, profiles in the profile.Service, and the server
// status in the status.Watcher; the App container wires their change
// callbacks into one coalescing channel that the model drains as
// bubbletea messages. Every async operation completes as an
// unexported tea.Msg, and each completion clears the loading flag it
// set regardless of success or failure, so no view is ever stranded
// in a loading state.
package dashui
