// Package domain models place mentions captured from ranked social-media posts
// and the geocoded heatmap data derived from them.
//
// # Capture
//
// A capture run fetches the hot posts of several sources (subreddits), scans
// every post title for every candidate place name, and produces a [Mentions]
// map of place -> number of posts that mention it. A post contributes at most
// once per place, and posts below the minimum score are ignored:
//
//	places: ["kyiv", "kharkiv", "izium"]
//	titles: ["Shelling in Kharkiv", "Kyiv and Kharkiv tonight", "Weather"]
//	result: {"kharkiv": 2, "kyiv": 1}
//
// Places with zero mentions are absent from the map. Counts from independent
// sources are combined with [Mentions.Merge] (key-wise sum).
//
// # Place Names
//
// The candidate list is a newline-delimited file. Blank and single-character
// lines are dropped, and every name is case-folded ([NormalizePlace]) so
// matching and persistence use one canonical spelling.
//
// # Snapshots
//
// Each capture run is persisted once as a [Snapshot] keyed by its capture
// time. On disk the key is rendered with [TimestampLayout]:
//
//	"2024-01-02 10:00 UTC"
//
// Files written by older versions use [LegacyTimestampLayout]
// ("02.01.06 15:04 MST"), which does not sort lexically across month or year
// boundaries. [ParseTimestamp] accepts both, and all ordering is done on the
// parsed instant, never on the string.
//
// # Geocoding
//
// A [Geocoder] turns a query into coordinates within one country scope. The
// outcome of resolving a place is a [Resolution] whose [Outcome] is Resolved,
// NotFound, or Failed; only Resolved carries a usable [Coordinate].
package domain
