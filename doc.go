// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// leobotgo is the main package for the leobot command line tool. It wires
// the CLI over the lazy loading persistence cache and serves as the entry
// point.
package main
