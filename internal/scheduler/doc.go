// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package scheduler runs the periodic background flush of a store.
package scheduler
