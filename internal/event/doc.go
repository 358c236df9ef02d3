// Package event defines scheduled events, their argument encoding and the
// paginated listing over a job store.
package event
