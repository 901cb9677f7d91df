package skillconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// GlobalResolver is the parsed shape of
// "core/data/{lang}/global-resolvers/{name}.json" (spec.md §6).
type GlobalResolver struct {
	Intents map[string]ResolverIntent `json:"intents"`
}

// LoadGlobalResolver reads "{globalResolversRoot}/{lang}/global-resolvers/{name}.json".
func LoadGlobalResolver(globalResolversRoot, lang, name string) (*GlobalResolver, error) {
	path := GlobalResolverPath(globalResolversRoot, lang, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read global resolver %s: %w", path, err)
	}

	var r GlobalResolver
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse global resolver %s: %w", path, err)
	}
	return &r, nil
}

// Resolve looks up the value a global resolver's intent leaf resolves to.
func (r *GlobalResolver) Resolve(intentLeaf string) (string, bool) {
	entry, ok := r.Intents[intentLeaf]
	if !ok {
		return "", false
	}
	return entry.Value, true
}

// GlobalResolverPath builds the on-disk path for one named global resolver
// under a locale.
func GlobalResolverPath(globalResolversRoot, lang, name string) string {
	return filepath.Join(globalResolversRoot, lang, "global-resolvers", name+".json")
}
