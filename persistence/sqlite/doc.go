// Package sqlite provides a persistence backend that keeps every
// collection as a JSON blob in a single sqlite database file.
package sqlite
