package classifier

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeModelFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("nlp-model"), 0o644))
	return path
}

type fakeBuiltins struct{ names []string }

func (f fakeBuiltins) GetBuiltinEntities() []string { return f.names }

func TestModelLoader_LoadAll_Success(t *testing.T) {
	dir := t.TempDir()
	paths := ModelPaths{
		GlobalResolvers: writeModelFile(t, dir, "leon-global-resolvers-model.nlp"),
		SkillsResolvers: writeModelFile(t, dir, "leon-skills-resolvers-model.nlp"),
		Main:            writeModelFile(t, dir, "leon-main-model.nlp"),
	}

	loader := NewModelLoader(func(Kind) Classifier { return NewFakeClassifier() })
	assert.False(t, loader.IsReady())

	err := loader.LoadAll(context.Background(), dir, paths, RetrainCommands{
		GlobalResolvers: "npm run train:global-resolvers",
		SkillsResolvers: "npm run train:skills-resolvers",
		Main:            "npm run train",
	}, fakeBuiltins{names: []string{"email", "date"}}, "en-US", nil)

	require.NoError(t, err)
	assert.True(t, loader.IsReady())
	assert.True(t, loader.Main.(*FakeClassifier).Loaded)
	assert.True(t, loader.GlobalResolvers.(*FakeClassifier).Loaded)
	assert.True(t, loader.SkillsResolvers.(*FakeClassifier).Loaded)
}

func TestModelLoader_LoadAll_ReplaysCachedSynonymsIntoMain(t *testing.T) {
	dir := t.TempDir()
	paths := ModelPaths{
		GlobalResolvers: writeModelFile(t, dir, "leon-global-resolvers-model.nlp"),
		SkillsResolvers: writeModelFile(t, dir, "leon-skills-resolvers-model.nlp"),
		Main:            writeModelFile(t, dir, "leon-main-model.nlp"),
	}

	synonyms := NewSynonymCache(t.TempDir())
	changed, err := synonyms.Register("en-US", "city", "nyc", []string{"new york", "the big apple"})
	require.NoError(t, err)
	assert.True(t, changed)

	loader := NewModelLoader(func(Kind) Classifier { return NewFakeClassifier() })
	err = loader.LoadAll(context.Background(), dir, paths, RetrainCommands{
		GlobalResolvers: "npm run train:global-resolvers",
		SkillsResolvers: "npm run train:skills-resolvers",
		Main:            "npm run train",
	}, nil, "en-US", synonyms)

	require.NoError(t, err)
	main := loader.Main.(*FakeClassifier)
	assert.Contains(t, main.Synonyms["en-US"], SynonymEntry{Entity: "city", Value: "nyc", SurfaceForms: []string{"new york", "the big apple"}})
}

func TestModelLoader_LoadAll_MissingModelFailsFast(t *testing.T) {
	dir := t.TempDir()
	paths := ModelPaths{
		GlobalResolvers: writeModelFile(t, dir, "leon-global-resolvers-model.nlp"),
		SkillsResolvers: filepath.Join(dir, "does-not-exist.nlp"),
		Main:            writeModelFile(t, dir, "leon-main-model.nlp"),
	}

	loader := NewModelLoader(func(Kind) Classifier { return NewFakeClassifier() })
	err := loader.LoadAll(context.Background(), dir, paths, RetrainCommands{
		SkillsResolvers: "npm run train:skills-resolvers",
	}, fakeBuiltins{}, "en-US", nil)

	require.Error(t, err)
	assert.False(t, loader.IsReady())
}
