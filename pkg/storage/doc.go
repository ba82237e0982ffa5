// Package storage persists fetched tweets as an indented JSON array.
//
// Every write goes through a temp file and rename, so a crash or a
// cancelled fetch leaves the previous complete file in place.
package storage
