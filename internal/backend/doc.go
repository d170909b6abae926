// Copyright (c) 2025 Steve Taranto staranto@gmail.com.
// SPDX-License-Identifier: Apache-2.0

// Package backend defines how records are named and laid out, and the
// interface the file and s3 persistence backends implement.
package backend
