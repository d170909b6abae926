// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package store implements the lazy loading, write-back record cache shared by
// the guild config and user data stores.
package store
