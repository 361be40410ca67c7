package geocode

import (
	"fmt"
	"os"

	"github.com/couchcryptid/place-mention-heatmap/internal/domain"
	"gopkg.in/yaml.v3"
)

// Aliases maps a place spelling the geocoder handles poorly to one it resolves.
// Keys and values are normalized place names.
type Aliases map[string]string

// DefaultAliases covers Russian-era transliterations that the geocoder either
// misses or resolves outside the country scope.
func DefaultAliases() Aliases {
	return Aliases{
		"kiev":          "kyiv",
		"kharkov":       "kharkiv",
		"odessa":        "odesa",
		"nikolaev":      "mykolaiv",
		"zaporozhye":    "zaporizhzhia",
		"lugansk":       "luhansk",
		"artemovsk":     "bakhmut",
		"chernigov":     "chernihiv",
		"dnepr":         "dnipro",
		"krivoy rog":    "kryvyi rih",
		"severodonetsk": "sievierodonetsk",
		"lisichansk":    "lysychansk",
	}
}

// Translate returns the resolver-friendly spelling of place, or place itself.
func (a Aliases) Translate(place string) string {
	if alt, ok := a[place]; ok && alt != "" {
		return alt
	}
	return place
}

// With returns a copy of a overlaid with other.
func (a Aliases) With(other Aliases) Aliases {
	out := make(Aliases, len(a)+len(other))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// LoadAliases reads a YAML mapping of place -> replacement and overlays it on
// the defaults. An empty path returns the defaults.
//
//	kiev: kyiv
//	"krivoy rog": "kryvyi rih"
func LoadAliases(path string) (Aliases, error) {
	if path == "" {
		return DefaultAliases(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read aliases: %w", err)
	}

	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse aliases %s: %w", path, err)
	}

	loaded := make(Aliases, len(raw))
	for from, to := range raw {
		loaded[domain.NormalizePlace(from)] = domain.NormalizePlace(to)
	}
	return DefaultAliases().With(loaded), nil
}
