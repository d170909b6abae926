// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package datadir locates and maintains the on-disk data directory used by
// the file backend.
package datadir
