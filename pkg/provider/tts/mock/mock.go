// Package mock provides a test double for the tts.Catalogue interface.
//
// Use Catalogue to feed a controlled speaker list to consumers and to verify
// how often the engine was queried.
//
// Example:
//
//	c := &mock.Catalogue{
//	    SpeakersResult: []tts.Speaker{{Name: "Alice", UUID: "u1", Styles: []tts.Style{{Name: "Normal"}}}},
//	}
//	speakers, _ := c.Speakers(ctx)
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/vvpreset/pkg/provider/tts"
)

// Compile-time interface assertion.
var _ tts.Catalogue = (*Catalogue)(nil)

// SpeakersCall records a single invocation of Speakers.
type SpeakersCall struct {
	// Ctx is the context passed to Speakers.
	Ctx context.Context
}

// Catalogue is a mock implementation of tts.Catalogue.
type Catalogue struct {
	mu sync.Mutex

	// SpeakersResult is returned by Speakers.
	SpeakersResult []tts.Speaker

	// SpeakersErr, if non-nil, is returned as the error from Speakers.
	SpeakersErr error

	// SpeakersCalls records every call to Speakers in order.
	SpeakersCalls []SpeakersCall
}

// Speakers implements tts.Catalogue.
func (c *Catalogue) Speakers(ctx context.Context) ([]tts.Speaker, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SpeakersCalls = append(c.SpeakersCalls, SpeakersCall{Ctx: ctx})
	if c.SpeakersErr != nil {
		return nil, c.SpeakersErr
	}
	out := make([]tts.Speaker, len(c.SpeakersResult))
	copy(out, c.SpeakersResult)
	return out, nil
}

// CallCount returns the number of Speakers invocations so far.
func (c *Catalogue) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.SpeakersCalls)
}

// Reset clears all recorded calls.
func (c *Catalogue) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SpeakersCalls = nil
}
