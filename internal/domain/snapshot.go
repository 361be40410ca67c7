package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

const (
	// TimestampLayout renders snapshot keys, e.g. "2024-01-02 10:00 UTC".
	TimestampLayout = "2006-01-02 15:04 MST"

	// LegacyTimestampLayout is the day-first key format of older captures.
	LegacyTimestampLayout = "02.01.06 15:04 MST"
)

// Snapshot is one capture run's mention counts. Snapshots are write-once.
type Snapshot struct {
	TakenAt  time.Time
	Mentions Mentions
}

// Key returns the persistence key of the snapshot.
func (s Snapshot) Key() string {
	return FormatTimestamp(s.TakenAt)
}

// History is the loaded snapshot corpus in no particular order.
type History []Snapshot

// Sorted returns a copy of h in ascending capture order.
func (h History) Sorted() History {
	out := make(History, len(h))
	copy(out, h)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TakenAt.Before(out[j].TakenAt)
	})
	return out
}

// Places returns every place mentioned anywhere in the corpus, sorted.
func (h History) Places() []string {
	all := make(Mentions)
	for _, snap := range h {
		for place, n := range snap.Mentions {
			if n > 0 {
				all[place] = 1
			}
		}
	}
	return all.Places()
}

// FormatTimestamp renders t in UTC with TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a snapshot key written with either the current or the legacy layout.
func ParseTimestamp(key string) (time.Time, error) {
	for _, layout := range []string{TimestampLayout, LegacyTimestampLayout} {
		if t, err := time.Parse(layout, key); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognized timestamp %q", ErrDataFault, key)
}

// EncodeMentions serializes counts as a flat JSON object.
func EncodeMentions(m Mentions) ([]byte, error) {
	if m == nil {
		m = Mentions{}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode mentions: %w", err)
	}
	return data, nil
}

// DecodeMentions parses a flat JSON object of place -> count. Negative counts
// are rejected; zero counts are dropped so absence keeps meaning zero.
func DecodeMentions(data []byte) (Mentions, error) {
	var raw map[string]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataFault, err)
	}
	m := make(Mentions, len(raw))
	for place, n := range raw {
		if n < 0 {
			return nil, fmt.Errorf("%w: negative count %d for %q", ErrDataFault, n, place)
		}
		if n > 0 {
			m[NormalizePlace(place)] += n
		}
	}
	return m, nil
}

// ParseSnapshot builds a Snapshot from a persisted key and payload.
func ParseSnapshot(key string, data []byte) (Snapshot, error) {
	takenAt, err := ParseTimestamp(key)
	if err != nil {
		return Snapshot{}, err
	}
	mentions, err := DecodeMentions(data)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot %q: %w", key, err)
	}
	return Snapshot{TakenAt: takenAt, Mentions: mentions}, nil
}
