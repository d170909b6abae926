// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package economy implements the credits service on top of the user data
// store.
package economy
