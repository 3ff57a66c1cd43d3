package preset

import "github.com/MrWong99/vvpreset/pkg/provider/tts"

// FromSpeakers builds one preset per (speaker, style) pair, in catalogue
// order. Every preset carries [UnassignedID] and the default tuning.
func FromSpeakers(speakers []tts.Speaker) Collection {
	out := make(Collection, 0, tts.StyleCount(speakers))
	for _, sp := range speakers {
		for _, st := range sp.Styles {
			out = append(out, Preset{
				ID:                UnassignedID,
				Name:              sp.Name + " " + st.Name,
				SpeakerUUID:       sp.UUID,
				StyleID:           st.ID,
				SpeedScale:        DefaultSpeedScale,
				PitchScale:        DefaultPitchScale,
				IntonationScale:   DefaultIntonationScale,
				VolumeScale:       DefaultVolumeScale,
				PrePhonemeLength:  DefaultPrePhonemeLength,
				PostPhonemeLength: DefaultPostPhonemeLength,
				PauseLength:       nil,
				PauseLengthScale:  DefaultPauseLengthScale,
			})
		}
	}
	return out
}
