// Package tts defines the Catalogue interface for Text-to-Speech engines.
//
// A catalogue wraps the speaker listing of a speech synthesis engine (e.g., a
// local VOICEVOX instance) and presents it as a flat, ordered list of speakers
// and their styles. Consumers turn that list into voice presets.
//
// Implementations must be safe for concurrent use.
package tts

import "context"

// Catalogue is the abstraction over a TTS engine's speaker listing.
type Catalogue interface {
	// Speakers returns all speakers the engine currently offers, in the order
	// the engine reports them. Styles within each speaker keep engine order.
	//
	// Returns an error if the engine cannot be reached, answers with a failure
	// status, or returns a body that lacks required fields.
	Speakers(ctx context.Context) ([]Speaker, error)
}
