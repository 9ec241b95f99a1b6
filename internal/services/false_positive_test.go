// internal/services/false_positive_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_RemovesBenignTerms(t *testing.T) {
	filter := NewFalsePositiveFilterWithTerms([]string{"team", "camera"})

	result := filter.Filter([]string{"kill the team", "graphic violence", "new camera"})

	assert.Equal(t, []string{"graphic violence"}, result)
}

func TestFilter_CaseInsensitive(t *testing.T) {
	filter := NewFalsePositiveFilterWithTerms([]string{"team"})

	result := filter.Filter([]string{"GO TEAM GO", "actual threat"})

	assert.Equal(t, []string{"actual threat"}, result)
}

func TestFilter_Idempotent(t *testing.T) {
	filter := NewFalsePositiveFilter()

	phrases := []string{"explicit threat of harm", "smuggling instructions"}
	once := filter.Filter(phrases)
	twice := filter.Filter(once)

	assert.Equal(t, once, twice)
}

func TestFilter_EmptyInput(t *testing.T) {
	filter := NewFalsePositiveFilter()

	assert.Empty(t, filter.Filter(nil))
	assert.Empty(t, filter.Filter([]string{}))
}

func TestFilter_DefaultTermsCoverSportsFalsePositives(t *testing.T) {
	filter := NewFalsePositiveFilter()

	// 体育解说里的"射门""击败"是典型误报来源
	result := filter.Filter([]string{"shoot the ball", "beat the defender"})

	assert.Empty(t, result)
}

func TestFilterByCategory(t *testing.T) {
	filter := NewFalsePositiveFilterWithTerms([]string{"game"})

	result := filter.FilterByCategory(map[string][]string{
		"graphic_violence": {"game over scene", "beheading footage"},
		"gambling":         {"poker stakes"},
	})

	assert.Equal(t, []string{"beheading footage"}, result["graphic_violence"])
	assert.Equal(t, []string{"poker stakes"}, result["gambling"])
}

func TestFilterByCategory_NilMap(t *testing.T) {
	filter := NewFalsePositiveFilter()
	assert.Nil(t, filter.FilterByCategory(nil))
}

func TestFilter_CustomPredicate(t *testing.T) {
	filter := &FalsePositiveFilter{
		IsBenign: func(phrase string) bool { return len(phrase) < 5 },
	}

	result := filter.Filter([]string{"ok", "long enough phrase"})

	assert.Equal(t, []string{"long enough phrase"}, result)
}
