// Package id generates random identifiers for requests and event subscribers.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Kind is the prefix naming what an id identifies.
type Kind string

const (
	Request    Kind = "req"
	Subscriber Kind = "sub"
)

// size keeps ids short enough for log lines; 16 symbols of the default
// alphabet is 96 bits.
const size = 16

// New returns an id such as "req-V1StGXR8_Z5jdHi6".
func (k Kind) New() (string, error) {
	s, err := gonanoid.New(size)
	if err != nil {
		return "", fmt.Errorf("generate %s id: %w", k, err)
	}
	return string(k) + "-" + s, nil
}

// Must is like New but panics when the system has no entropy.
func (k Kind) Must() string {
	s, err := k.New()
	if err != nil {
		panic(err)
	}
	return s
}
