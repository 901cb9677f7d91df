package skillconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSkillConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "en-US.json")
	content := `{
		"actions": {
			"addItem": {"slots": [{"name":"item","expectedEntity":"product","pickedQuestion":"What do you want to add?","suggestions":["milk","eggs"]}]},
			"run": {"loop": {"expected_item": {"name": "answer", "type": "global_resolver"}}}
		},
		"resolvers": {
			"confirmation": {"intents": {"yes": {"value": "affirmation"}}}
		}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadSkillConfig(path)
	require.NoError(t, err)

	action, ok := cfg.Action("addItem")
	require.True(t, ok)
	require.Len(t, action.Slots, 1)
	assert.Equal(t, "product", action.Slots[0].ExpectedEntity)

	loopAction, ok := cfg.Action("run")
	require.True(t, ok)
	require.NotNil(t, loopAction.Loop)
	assert.Equal(t, "answer", loopAction.Loop.ExpectedItem.Name)

	value, ok := cfg.Resolve("confirmation", "yes")
	require.True(t, ok)
	assert.Equal(t, "affirmation", value)
}

func TestSkillConfigPath(t *testing.T) {
	got := SkillConfigPath("skills", "shopping", "list", "en-US")
	assert.Equal(t, filepath.Join("skills", "shopping", "list", "config", "en-US.json"), got)
}

func TestLoadGlobalResolver(t *testing.T) {
	dir := t.TempDir()
	localeDir := filepath.Join(dir, "en-US", "global-resolvers")
	require.NoError(t, os.MkdirAll(localeDir, 0o755))
	path := filepath.Join(localeDir, "answer.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"intents": {"denial": {"value": "denial"}}}`), 0o644))

	resolver, err := LoadGlobalResolver(dir, "en-US", "answer")
	require.NoError(t, err)

	value, ok := resolver.Resolve("denial")
	require.True(t, ok)
	assert.Equal(t, "denial", value)
}
