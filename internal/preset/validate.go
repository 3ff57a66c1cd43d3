package preset

import (
	"errors"
	"fmt"
)

// ErrInvalidPresetFile is returned by [Check] when a parsed preset file
// contains inconsistent records.
var ErrInvalidPresetFile = errors.New("invalid preset file")

// IssueKind classifies a finding of [Validate].
type IssueKind string

const (
	IssueDuplicateID   IssueKind = "duplicate_id"
	IssueNegativeID    IssueKind = "negative_id"
	IssueDuplicateName IssueKind = "duplicate_name"
)

// Issue is a single consistency problem in a preset collection.
type Issue struct {
	Kind IssueKind

	// Index is the position of the offending entry.
	Index int

	// FirstIndex is the position of the earlier entry it collides with, or -1.
	FirstIndex int

	Preset Preset
}

func (i Issue) Error() string {
	switch i.Kind {
	case IssueDuplicateID:
		return fmt.Sprintf("entry %d (%q): id %d already used by entry %d", i.Index, i.Preset.Name, i.Preset.ID, i.FirstIndex)
	case IssueNegativeID:
		return fmt.Sprintf("entry %d (%q): id %d is negative", i.Index, i.Preset.Name, i.Preset.ID)
	case IssueDuplicateName:
		return fmt.Sprintf("entry %d: name %q already used by entry %d", i.Index, i.Preset.Name, i.FirstIndex)
	}
	return fmt.Sprintf("entry %d: %s", i.Index, i.Kind)
}

// Validate reports duplicate ids, negative ids and duplicate names in c.
// It never modifies c.
func Validate(c Collection) []Issue {
	var issues []Issue
	ids := make(map[int64]int, len(c))
	names := make(map[string]int, len(c))

	for i, p := range c {
		if p.ID < 0 {
			issues = append(issues, Issue{Kind: IssueNegativeID, Index: i, FirstIndex: -1, Preset: p})
		}
		if first, ok := ids[p.ID]; ok {
			issues = append(issues, Issue{Kind: IssueDuplicateID, Index: i, FirstIndex: first, Preset: p})
		} else {
			ids[p.ID] = i
		}
		if first, ok := names[p.Name]; ok {
			issues = append(issues, Issue{Kind: IssueDuplicateName, Index: i, FirstIndex: first, Preset: p})
		} else {
			names[p.Name] = i
		}
	}
	return issues
}

// Check runs [Validate] and returns every issue joined into one error
// matching [ErrInvalidPresetFile], or nil.
func Check(c Collection) error {
	issues := Validate(c)
	if len(issues) == 0 {
		return nil
	}
	errs := make([]error, 0, len(issues)+1)
	errs = append(errs, ErrInvalidPresetFile)
	for _, is := range issues {
		errs = append(errs, is)
	}
	return fmt.Errorf("preset: %w", errors.Join(errs...))
}
