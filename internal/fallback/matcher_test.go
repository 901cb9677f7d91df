package fallback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch_Hit(t *testing.T) {
	rules := []Rule{
		{Words: []string{"hello", "leon"}, Domain: "greetings", Skill: "hello", Action: "run"},
	}

	result, ok := Match("well hello leon!", rules)
	require.True(t, ok)
	assert.Equal(t, "greetings", result.Classification.Domain)
	assert.Equal(t, "hello", result.Classification.Skill)
	assert.Equal(t, "run", result.Classification.Action)
	assert.Equal(t, float64(1), result.Classification.Confidence)
	assert.Empty(t, result.Entities)
}

func TestMatch_NoHit(t *testing.T) {
	rules := []Rule{
		{Words: []string{"hello", "leon"}, Domain: "greetings", Skill: "hello", Action: "run"},
	}

	_, ok := Match("asdfghjkl", rules)
	assert.False(t, ok)
}

func TestMatch_MultiplicityIgnored(t *testing.T) {
	rules := []Rule{
		{Words: []string{"hello", "hello"}, Domain: "greetings", Skill: "hello", Action: "run"},
	}

	_, ok := Match("hello there", rules)
	assert.True(t, ok)
}

func TestMatch_TiesBrokenByDeclarationOrder(t *testing.T) {
	rules := []Rule{
		{Words: []string{"hello"}, Domain: "first", Skill: "a", Action: "run"},
		{Words: []string{"hello"}, Domain: "second", Skill: "b", Action: "run"},
	}

	result, ok := Match("hello", rules)
	require.True(t, ok)
	assert.Equal(t, "first", result.Classification.Domain)
}

// R2: Match is pure.
func TestMatch_Pure(t *testing.T) {
	rules := []Rule{
		{Words: []string{"hello", "leon"}, Domain: "greetings", Skill: "hello", Action: "run"},
	}

	a, okA := Match("well hello leon!", rules)
	b, okB := Match("well hello leon!", rules)
	assert.Equal(t, okA, okB)
	assert.Equal(t, a, b)
}
