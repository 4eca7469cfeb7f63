// Copyright 2026 The Dreamvisitor Authors
// SPDX-License-Identifier: Apache-2.0

// Package draft implements the synchronization pattern shared by every
// editable panel of the dashboard: a locally editable copy of a remote
// record that is loaded, diverges through field edits, is reconciled
// against concurrent remote writes, and is explicitly applied or
// reverted.
//
// The rules, in order of importance:
//
//   - Unsaved operator input is never silently discarded. A remote
//     write arriving while local edits exist only raises the
//     externally-modified flag; the data is untouched until the
//     operator explicitly refreshes.
//   - The known-good original is only replaced by a successful load,
//     a successful apply, or an explicit refresh.
//   - Dirtiness is a derived fact: deep structural inequality between
//     the draft and the original. Editing a field back to its original
//     value makes the draft clean again.
//
// Each panel provides a Store that knows how to load and save its
// record (a structured config record, a properties file, a user
// aggregate); the Synchronizer is identical across all of them.
package draft
