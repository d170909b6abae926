// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package subsystem wires a backend, store, flush scheduler and admin into
// the unit the bot and the CLI run against. Construction starts the periodic
// flush; Close runs the shutdown sequence.
package subsystem
