// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package s3 persists records as objects in an S3 (or S3 compatible) bucket.
package s3
