// Package storage is the job store behind the event list.
//
// Drivers:
//   - memory: tests and throwaway runs
//   - file: JSON snapshot of events plus a JSON Lines audit log
//   - sqlite: events and audit in one database (build tag "sqlite")
package storage
