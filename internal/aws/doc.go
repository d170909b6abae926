// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package aws contains the AWS config and client helpers used by the s3
// persistence backend.
package aws
