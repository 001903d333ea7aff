//go:build !sqlite_cgo
// +build !sqlite_cgo

package store

// This file is compiled by default (no CGO required).
//
// Build command:
//   CGO_ENABLED=0 go build ./...
//
// Driver used: modernc.org/sqlite

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQL driver name registered for sql.Open.
	DriverName = "sqlite"

	// BuildMode describes the current build configuration.
	BuildMode = "purego"
)
