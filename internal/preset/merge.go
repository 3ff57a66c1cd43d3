package preset

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Key selects the natural key used to match fresh presets against saved ones.
type Key string

const (
	// KeyName matches presets by their "<speaker> <style>" name. Renaming a
	// speaker or style upstream therefore produces a new preset.
	KeyName Key = "name"

	// KeyStyle matches presets by speaker UUID and style id, which survive
	// upstream renames. Matched presets keep their saved name.
	KeyStyle Key = "style"
)

// IsValid reports whether k is a recognised merge key.
func (k Key) IsValid() bool {
	switch k {
	case KeyName, KeyStyle:
		return true
	}
	return false
}

// ParseKey converts s to a [Key]. The empty string yields [KeyName].
func ParseKey(s string) (Key, error) {
	if s == "" {
		return KeyName, nil
	}
	k := Key(strings.ToLower(s))
	if !k.IsValid() {
		return "", fmt.Errorf("preset: unknown merge key %q; valid values: name, style", s)
	}
	return k, nil
}

// MergeOption configures [Merge].
type MergeOption func(*mergeOptions)

type mergeOptions struct {
	key Key
}

// WithKey sets the natural key. Defaults to [KeyName].
func WithKey(k Key) MergeOption {
	return func(o *mergeOptions) {
		o.key = k
	}
}

// Result is the outcome of [Merge].
type Result struct {
	// Presets is the merged collection, in the order of the fresh presets.
	Presets Collection

	// Kept lists the saved presets carried over unchanged.
	Kept Collection

	// Created lists the fresh presets that received a new id.
	Created Collection

	// Dropped lists saved presets whose key no longer appears among the
	// fresh presets. They are not part of Presets.
	Dropped Collection

	// NextID is the first id that was free after numbering.
	NextID int64
}

// Merge reconciles fresh presets (typically from [FromSpeakers]) with the
// saved collection. A fresh preset whose key exists in saved is replaced by
// the saved record verbatim; any other fresh preset is numbered from
// saved.NextID() upwards in iteration order. When saved holds several records
// with the same key, the last one wins.
func Merge(saved, fresh Collection, opts ...MergeOption) Result {
	o := mergeOptions{key: KeyName}
	for _, fn := range opts {
		fn(&o)
	}

	byKey := make(map[string]Preset, len(saved))
	for _, p := range saved {
		if k, ok := keyOf(p, o.key); ok {
			byKey[k] = p
		}
	}

	res := Result{
		Presets: make(Collection, 0, len(fresh)),
		NextID:  saved.NextID(),
	}
	seen := make(map[string]struct{}, len(fresh))

	for _, p := range fresh {
		k, ok := keyOf(p, o.key)
		if ok {
			seen[k] = struct{}{}
			if existing, found := byKey[k]; found {
				res.Presets = append(res.Presets, existing)
				res.Kept = append(res.Kept, existing)
				continue
			}
		}
		p.ID = res.NextID
		res.NextID++
		res.Presets = append(res.Presets, p)
		res.Created = append(res.Created, p)
	}

	for _, p := range saved {
		k, ok := keyOf(p, o.key)
		if !ok {
			res.Dropped = append(res.Dropped, p)
			continue
		}
		if _, found := seen[k]; !found {
			res.Dropped = append(res.Dropped, p)
		}
	}
	return res
}

// ErrIDSpaceExhausted is returned by [CheckIDSpace] when new presets cannot
// be numbered above the saved maximum without overflowing int64.
var ErrIDSpaceExhausted = errors.New("preset id space exhausted")

// CheckIDSpace reports whether n new ids fit above the largest id in saved.
func CheckIDSpace(saved Collection, n int) error {
	maxID, ok := saved.MaxID()
	if n <= 0 || !ok {
		return nil
	}
	if maxID > math.MaxInt64-int64(n) {
		return fmt.Errorf("preset: %w: %d new ids after id %d", ErrIDSpaceExhausted, n, maxID)
	}
	return nil
}

// keyOf returns the merge key of p. The second result is false when p has no
// usable key of that kind.
func keyOf(p Preset, k Key) (string, bool) {
	if k == KeyStyle {
		if p.noStyleKey {
			return "", false
		}
		return styleKey(p), true
	}
	return p.Name, true
}

// styleKey combines the canonical speaker UUID with the style id.
func styleKey(p Preset) string {
	return canonicalUUID(p.SpeakerUUID) + "#" + strconv.FormatInt(p.StyleID, 10)
}

// canonicalUUID lower-cases and normalises s when it parses as a UUID and
// returns it trimmed otherwise.
func canonicalUUID(s string) string {
	s = strings.TrimSpace(s)
	if u, err := uuid.Parse(s); err == nil {
		return u.String()
	}
	return s
}
