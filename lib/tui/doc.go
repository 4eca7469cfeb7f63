// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

// Package tui provides shared terminal user interface components for
// the dashboard. Built on bubbletea (Elm architecture), these
// components handle the common patterns: theme colors, scrollbars,
// fuzzy matching, and ANSI-aware overlay splicing for modals.
//
// The dashboard views import this package for consistent look and
// behavior; each view owns its own data source, layout, and rendering.
package tui
