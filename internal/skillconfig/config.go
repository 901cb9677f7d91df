// Package skillconfig reads the on-disk skill configuration and global
// resolver files the core consumes (spec.md §6: "On-disk layout
// consumed"). It never executes a skill; it only parses the JSON shape
// that the Slot Filler, Action Loop Handler, and Dispatcher need.
package skillconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SlotConfig declares one mandatory slot an action's config demands.
type SlotConfig struct {
	Name           string   `json:"name"`
	ExpectedEntity string   `json:"expectedEntity"`
	PickedQuestion string   `json:"pickedQuestion"`
	Suggestions    []string `json:"suggestions"`
}

// LoopConfig declares the item an action loop waits for on each turn
// (spec.md §4.6).
type LoopConfig struct {
	ExpectedItem struct {
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"expected_item"`
}

// ActionConfig is one action entry in a skill's per-language config.
type ActionConfig struct {
	Slots []SlotConfig `json:"slots,omitempty"`
	Loop  *LoopConfig  `json:"loop,omitempty"`
}

// ResolverIntent is one leaf intent's resolved value under a resolver.
type ResolverIntent struct {
	Value string `json:"value"`
}

// ResolverConfig is one skill-local resolver definition.
type ResolverConfig struct {
	Intents map[string]ResolverIntent `json:"intents"`
}

// SkillConfig is the parsed shape of
// "skills/{domain}/{skill}/config/{lang}.json" (spec.md §6).
type SkillConfig struct {
	Actions   map[string]ActionConfig   `json:"actions"`
	Resolvers map[string]ResolverConfig `json:"resolvers"`
}

// LoadSkillConfig reads and parses a skill's per-language config file.
func LoadSkillConfig(path string) (*SkillConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read skill config %s: %w", path, err)
	}

	var cfg SkillConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse skill config %s: %w", path, err)
	}
	return &cfg, nil
}

// Action looks up one action's config by name.
func (c *SkillConfig) Action(name string) (ActionConfig, bool) {
	a, ok := c.Actions[name]
	return a, ok
}

// Resolve looks up a skill-local resolver's value for an intent leaf.
func (c *SkillConfig) Resolve(resolverName, intentLeaf string) (string, bool) {
	resolver, ok := c.Resolvers[resolverName]
	if !ok {
		return "", false
	}
	entry, ok := resolver.Intents[intentLeaf]
	if !ok {
		return "", false
	}
	return entry.Value, true
}

// SkillConfigPath builds "{skillsRoot}/{domain}/{skill}/config/{lang}.json"
// per spec.md §4.8's pseudocode.
func SkillConfigPath(skillsRoot, domain, skill, lang string) string {
	return filepath.Join(skillsRoot, domain, skill, "config", lang+".json")
}
