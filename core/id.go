package core

import "github.com/oklog/ulid/v2"

// NewID returns a new record identifier: a millisecond timestamp followed by random bits.
func NewID() string {
	return ulid.Make().String()
}
