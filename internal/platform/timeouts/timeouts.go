// Package timeouts defines shared timeout constants used across commands and
// stores.
package timeouts

import "time"

// Shutdown limits how long a command waits for telemetry to flush on exit.
const Shutdown = 5 * time.Second

// SQLiteBusy is how long a SQLite connection waits on a locked database
// before failing with SQLITE_BUSY.
const SQLiteBusy = 5 * time.Second
