// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package record defines the ordered, dynamically typed field bag persisted
// for one (scope, entity) pair, and its JSON encoding.
package record
