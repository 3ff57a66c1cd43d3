// Package preset converts a TTS engine's speaker catalogue into voice presets
// and reconciles them with a previously saved preset file.
//
// A preset file is a YAML sequence of mappings:
//
//	- id: 0
//	  name: 四国めたん ノーマル
//	  speaker_uuid: 7ffcb7ce-00ec-4bdc-82cd-45a8889e43ff
//	  style_id: 2
//	  speedScale: 1.2
//	  pitchScale: 0
//	  intonationScale: 1
//	  volumeScale: 1
//	  prePhonemeLength: 0.1
//	  postPhonemeLength: 0.1
//	  pauseLength: null
//	  pauseLengthScale: 1
//
// The same layout is read back on the next run, so ids handed out once stay
// attached to their preset name.
package preset

import (
	"gopkg.in/yaml.v3"
)

// UnassignedID marks a preset that has not been numbered yet. It never
// appears in merged output.
const UnassignedID int64 = -1

// Default tuning applied to presets created from the catalogue.
const (
	DefaultSpeedScale        = 1.2
	DefaultPitchScale        = 0
	DefaultIntonationScale   = 1
	DefaultVolumeScale       = 1
	DefaultPrePhonemeLength  = 0.1
	DefaultPostPhonemeLength = 0.1
	DefaultPauseLengthScale  = 1
)

// Preset is one voice preset. Field order matches the persisted key order.
type Preset struct {
	ID                int64    `yaml:"id"`
	Name              string   `yaml:"name"`
	SpeakerUUID       string   `yaml:"speaker_uuid"`
	StyleID           int64    `yaml:"style_id"`
	SpeedScale        float64  `yaml:"speedScale"`
	PitchScale        float64  `yaml:"pitchScale"`
	IntonationScale   float64  `yaml:"intonationScale"`
	VolumeScale       float64  `yaml:"volumeScale"`
	PrePhonemeLength  float64  `yaml:"prePhonemeLength"`
	PostPhonemeLength float64  `yaml:"postPhonemeLength"`
	PauseLength       *float64 `yaml:"pauseLength"`
	PauseLengthScale  float64  `yaml:"pauseLengthScale"`

	// source is the mapping this preset was loaded from. When set it is
	// emitted as-is, so loaded presets round-trip without reformatting.
	source *yaml.Node

	// noStyleKey is set for loaded presets that lack a usable speaker_uuid
	// or style_id.
	noStyleKey bool
}

// Loaded reports whether p was read from a preset file.
func (p Preset) Loaded() bool {
	return p.source != nil
}

// Collection is an ordered list of presets.
type Collection []Preset

// Names returns the preset names in order.
func (c Collection) Names() []string {
	names := make([]string, len(c))
	for i, p := range c {
		names[i] = p.Name
	}
	return names
}

// MaxID returns the largest id in c and false when c is empty.
func (c Collection) MaxID() (int64, bool) {
	if len(c) == 0 {
		return 0, false
	}
	maxID := c[0].ID
	for _, p := range c[1:] {
		if p.ID > maxID {
			maxID = p.ID
		}
	}
	return maxID, true
}

// NextID returns the first id that is free for new presets: one above the
// current maximum, or 0 for an empty collection.
func (c Collection) NextID() int64 {
	maxID, ok := c.MaxID()
	if !ok {
		return 0
	}
	return maxID + 1
}
