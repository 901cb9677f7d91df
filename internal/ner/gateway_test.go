package ner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/harunnryd/nimbus/internal/classifier"
	"github.com/harunnryd/nimbus/internal/conversation"
	"github.com/harunnryd/nimbus/internal/tokenizer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSkillConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "en-US.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"actions": {}, "resolvers": {}}`), 0o644))
	return path
}

func TestGateway_GetBuiltinEntities(t *testing.T) {
	g := NewGateway(classifier.NewFakeClassifier(), nil, classifier.NewSynonymCache(t.TempDir()), func() string { return "en-US" })
	assert.NotEmpty(t, g.GetBuiltinEntities())
}

func TestGateway_ExtractEntities(t *testing.T) {
	dir := t.TempDir()
	configPath := writeSkillConfig(t, dir)

	fake := classifier.NewFakeClassifier()
	fake.Entities["add milk to my list"] = []conversation.Entity{{Name: "product", Value: "milk"}}

	g := NewGateway(fake, nil, classifier.NewSynonymCache(t.TempDir()), func() string { return "en-US" })

	entities, err := g.ExtractEntities(context.Background(), configPath, "add milk to my list")
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "product", entities[0].Name)
}

func TestGateway_ExtractEntities_UnreadableConfigIsNERWarning(t *testing.T) {
	fake := classifier.NewFakeClassifier()
	g := NewGateway(fake, nil, classifier.NewSynonymCache(t.TempDir()), func() string { return "en-US" })

	_, err := g.ExtractEntities(context.Background(), filepath.Join(t.TempDir(), "missing.json"), "hello")
	require.Error(t, err)
}

func TestGateway_MergeSpacyEntities_NilTokenizerIsNoop(t *testing.T) {
	g := NewGateway(classifier.NewFakeClassifier(), nil, classifier.NewSynonymCache(t.TempDir()), func() string { return "en-US" })
	require.NoError(t, g.MergeSpacyEntities(context.Background(), "hello"))
}

type fakeTokenizerClient struct {
	entities []tokenizer.SpacyEntity
}

func (f *fakeTokenizerClient) Connect(context.Context, string) error { return nil }
func (f *fakeTokenizerClient) Close() error                          { return nil }
func (f *fakeTokenizerClient) OnConnected(func())                    {}
func (f *fakeTokenizerClient) GetSpacyEntities(context.Context, string) ([]tokenizer.SpacyEntity, error) {
	return f.entities, nil
}

func TestGateway_MergeSpacyEntities_RegistersSynonym(t *testing.T) {
	tok := &fakeTokenizerClient{entities: []tokenizer.SpacyEntity{
		{Entity: "celebrity", Resolution: map[string]any{"value": "elon musk"}},
	}}
	fake := classifier.NewFakeClassifier()
	g := NewGateway(fake, tok, classifier.NewSynonymCache(t.TempDir()), func() string { return "en-US" })

	require.NoError(t, g.MergeSpacyEntities(context.Background(), "is elon musk rich"))
	require.Len(t, fake.Synonyms["en-US"], 1)
	assert.Equal(t, "celebrity", fake.Synonyms["en-US"][0].Entity)
}

// R1: MergeSpacyEntities is idempotent: calling it twice with the same
// utterance produces the same classifier state as once.
func TestGateway_MergeSpacyEntities_Idempotent(t *testing.T) {
	tok := &fakeTokenizerClient{entities: []tokenizer.SpacyEntity{
		{Entity: "celebrity", Resolution: map[string]any{"value": "elon musk"}},
	}}
	fake := classifier.NewFakeClassifier()
	g := NewGateway(fake, tok, classifier.NewSynonymCache(t.TempDir()), func() string { return "en-US" })

	require.NoError(t, g.MergeSpacyEntities(context.Background(), "is elon musk rich"))
	require.NoError(t, g.MergeSpacyEntities(context.Background(), "is elon musk rich"))

	assert.Len(t, fake.Synonyms["en-US"], 1)
}
