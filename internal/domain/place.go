package domain

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

// NormalizePlace case-folds and trims a place name.
func NormalizePlace(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ParsePlaces reads a newline-delimited place list. Blank and single-character
// lines are discarded, names are normalized, and duplicates keep their first position.
func ParsePlaces(r io.Reader) ([]string, error) {
	var places []string
	seen := make(map[string]struct{})

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		name := NormalizePlace(scanner.Text())
		if utf8.RuneCountInString(name) <= 1 {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		places = append(places, name)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read place list: %w", err)
	}
	return places, nil
}

// LoadPlaces reads the place list at path.
func LoadPlaces(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open place list: %w", err)
	}
	defer f.Close()

	places, err := ParsePlaces(f)
	if err != nil {
		return nil, err
	}
	if len(places) == 0 {
		return nil, fmt.Errorf("place list %s is empty", path)
	}
	return places, nil
}
