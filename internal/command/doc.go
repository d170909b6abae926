// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package command defines the leobot CLI. It wires flags, validators and
// actions for the record, credits and cache administration commands, the
// serve console, and shell completion.
package command
