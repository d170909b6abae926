// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package admin implements the operator cache commands: manual flush, clear,
// reload, auto flush toggling and inspection.
package admin
