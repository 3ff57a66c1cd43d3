package tts

// Speaker is one voice character published by a TTS engine's catalogue.
type Speaker struct {
	// Name is the human-readable speaker name (e.g., "四国めたん").
	Name string

	// UUID is the engine-assigned speaker identifier. It is stable across
	// engine releases even when Name changes.
	UUID string

	// Styles lists the speaker's voice styles in catalogue order.
	Styles []Style
}

// Style is a single voice style of a [Speaker].
type Style struct {
	// Name is the style label (e.g., "ノーマル", "あまあま").
	Name string

	// ID is the engine's internal style identifier. Synthesis requests address
	// voices by this value.
	ID int64
}

// StyleCount returns the total number of styles across speakers.
func StyleCount(speakers []Speaker) int {
	n := 0
	for _, s := range speakers {
		n += len(s.Styles)
	}
	return n
}
