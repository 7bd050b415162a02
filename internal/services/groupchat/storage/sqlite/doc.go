// Package sqlite implements the group chat journal and read model on SQLite.
//
// The journal and the read model live in separate databases opened with
// OpenJournal and OpenReadModel. Both return a *Store; each only carries the
// tables for its purpose.
package sqlite
