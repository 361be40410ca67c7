package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

var testPlaces = []string{"kyiv", "kharkiv", "izium", "lyman"}

func TestCountMentions_CaseInsensitiveSubstring(t *testing.T) {
	items := []Item{
		{Title: "Shelling in KHARKIV overnight", Score: 10},
		{Title: "Kyiv and Kharkiv under alert", Score: 10},
		{Title: "Weather update", Score: 10},
	}

	res := CountMentions(testPlaces, items, CountOptions{})

	if diff := cmp.Diff(Mentions{"kharkiv": 2, "kyiv": 1}, res.Mentions); diff != "" {
		t.Fatalf("mentions mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 3, res.Scanned)
	assert.Equal(t, 3, res.Eligible)
}

func TestCountMentions_AtMostOncePerItem(t *testing.T) {
	items := []Item{{Title: "Kyiv, Kyiv, Kyiv!", Score: 1}}

	res := CountMentions(testPlaces, items, CountOptions{})

	assert.Equal(t, Mentions{"kyiv": 1}, res.Mentions)
}

func TestCountMentions_DuplicatePlacesCountOnce(t *testing.T) {
	items := []Item{{Title: "Kyiv at night", Score: 1}}

	res := CountMentions([]string{"Kyiv", "kyiv", " KYIV "}, items, CountOptions{})

	assert.Equal(t, Mentions{"kyiv": 1}, res.Mentions)
}

func TestCountMentions_MinScoreFilter(t *testing.T) {
	items := []Item{
		{Title: "Izium liberated", Score: 4},
		{Title: "Izium again", Score: 5},
		{Title: "Lyman", Score: 100},
	}

	res := CountMentions(testPlaces, items, CountOptions{MinScore: 5})

	assert.Equal(t, Mentions{"izium": 1, "lyman": 1}, res.Mentions)
	assert.Equal(t, 3, res.Scanned)
	assert.Equal(t, 2, res.Eligible)
}

func TestCountMentions_ExcludeSelfPosts(t *testing.T) {
	items := []Item{
		{Title: "Discussion: Kyiv", Score: 50, IsSelf: true},
		{Title: "Footage from Kyiv", Score: 50},
	}

	res := CountMentions(testPlaces, items, CountOptions{ExcludeSelfPosts: true})
	assert.Equal(t, Mentions{"kyiv": 1}, res.Mentions)

	res = CountMentions(testPlaces, items, CountOptions{})
	assert.Equal(t, Mentions{"kyiv": 2}, res.Mentions)
}

func TestCountMentions_NoZeroOrNegativeValues(t *testing.T) {
	items := []Item{
		{Title: "nothing here", Score: 1},
		{Title: "Lyman front", Score: -3},
		{Title: "lyman", Score: 2},
	}

	res := CountMentions(testPlaces, items, CountOptions{MinScore: 0})

	for place, n := range res.Mentions {
		assert.Positive(t, n, "place %q", place)
	}
	_, ok := res.Mentions["kyiv"]
	assert.False(t, ok, "unmentioned place must be absent")
}

func TestCountMentions_EmptyInputs(t *testing.T) {
	res := CountMentions(nil, nil, CountOptions{})
	assert.Empty(t, res.Mentions)
	assert.Zero(t, res.Scanned)
}

func TestMentionsMerge_CommutativeAssociativeIdentity(t *testing.T) {
	a := Mentions{"kyiv": 2, "izium": 1}
	b := Mentions{"kyiv": 1, "lyman": 4}
	c := Mentions{"izium": 3}

	assert.Equal(t, a.Merge(b), b.Merge(a))
	assert.Equal(t, a.Merge(b).Merge(c), a.Merge(b.Merge(c)))
	assert.Equal(t, a, a.Merge(Mentions{}))
	assert.Equal(t, a, Mentions{}.Merge(a))
	assert.Equal(t, Mentions{"kyiv": 3, "izium": 1, "lyman": 4}, a.Merge(b))
}

func TestMentionsMerge_DoesNotMutateInputs(t *testing.T) {
	a := Mentions{"kyiv": 2}
	b := Mentions{"kyiv": 1}

	_ = a.Merge(b)

	assert.Equal(t, Mentions{"kyiv": 2}, a)
	assert.Equal(t, Mentions{"kyiv": 1}, b)
}

func TestMentions_PlacesAndTotal(t *testing.T) {
	m := Mentions{"lyman": 1, "izium": 3}

	assert.Equal(t, []string{"izium", "lyman"}, m.Places())
	assert.Equal(t, 4, m.Total())
}
