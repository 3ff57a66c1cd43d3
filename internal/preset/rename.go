package preset

import "github.com/MrWong99/vvpreset/internal/phonetic"

// RenameReason explains why a [Rename] was suggested.
type RenameReason string

const (
	// RenameSameStyle means both presets address the same speaker UUID and
	// style id.
	RenameSameStyle RenameReason = "same_style"

	// RenameSimilarName means the names are close by phonetic/fuzzy matching.
	RenameSimilarName RenameReason = "similar_name"
)

// Rename pairs a dropped saved preset with the newly created preset that most
// likely replaced it.
type Rename struct {
	From   Preset
	To     Preset
	Reason RenameReason

	// Score is 1 for RenameSameStyle and the name similarity otherwise.
	Score float64
}

// DetectRenames inspects a merge result and suggests, for each dropped
// preset, the created preset that probably took its place. A created preset
// is suggested at most once. Matching by style wins over matching by name.
// A nil matcher disables name matching.
func DetectRenames(res Result, m *phonetic.Matcher) []Rename {
	if len(res.Dropped) == 0 || len(res.Created) == 0 {
		return nil
	}

	claimed := make([]bool, len(res.Created))
	var renames []Rename
	var unresolved Collection

	byStyle := make(map[string]int, len(res.Created))
	for i, p := range res.Created {
		if _, dup := byStyle[styleKey(p)]; !dup {
			byStyle[styleKey(p)] = i
		}
	}

	for _, d := range res.Dropped {
		if !d.noStyleKey {
			if i, ok := byStyle[styleKey(d)]; ok && !claimed[i] {
				claimed[i] = true
				renames = append(renames, Rename{From: d, To: res.Created[i], Reason: RenameSameStyle, Score: 1})
				continue
			}
		}
		unresolved = append(unresolved, d)
	}

	if m == nil {
		return renames
	}

	for _, d := range unresolved {
		var names []string
		var idx []int
		for i, p := range res.Created {
			if !claimed[i] {
				names = append(names, p.Name)
				idx = append(idx, i)
			}
		}
		match, score, ok := m.Closest(d.Name, names)
		if !ok {
			continue
		}
		for j, n := range names {
			if n == match {
				claimed[idx[j]] = true
				renames = append(renames, Rename{From: d, To: res.Created[idx[j]], Reason: RenameSimilarName, Score: score})
				break
			}
		}
	}
	return renames
}
