package classifier

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/natefinch/atomic"
)

// SynonymEntry is one registered (entity, value) → surface-forms mapping.
type SynonymEntry struct {
	Entity       string   `json:"entity"`
	Value        string   `json:"value"`
	SurfaceForms []string `json:"surfaceForms"`
}

// SynonymCache persists the NER Gateway's append-only synonym
// registrations to a per-language JSON file so a restarted process can
// replay them into a freshly loaded classifier instead of waiting to
// re-observe the same spaCy entities (spec.md §4.2, §5 "append-only;
// duplicates are benign"). Writes are atomic so a crash mid-write never
// leaves a truncated cache file behind.
type SynonymCache struct {
	mu   sync.Mutex
	dir  string
	seen map[string]map[string]bool // lang -> "entity\x00value" -> true
}

func NewSynonymCache(dir string) *SynonymCache {
	return &SynonymCache{
		dir:  dir,
		seen: make(map[string]map[string]bool),
	}
}

// Register writes the (entity, value) pair into the per-language cache
// file if it hasn't already been recorded for that language. Returns
// false without writing when the pair was already cached, so callers can
// distinguish a genuinely new registration (R1 idempotence).
func (c *SynonymCache) Register(lang, entity, value string, surfaceForms []string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := entity + "\x00" + value
	if c.seen[lang] != nil && c.seen[lang][key] {
		return false, nil
	}

	entries, err := c.load(lang)
	if err != nil {
		return false, err
	}

	if c.seen[lang] == nil {
		c.seen[lang] = make(map[string]bool)
	}
	for _, e := range entries {
		c.seen[lang][e.Entity+"\x00"+e.Value] = true
	}
	if c.seen[lang][key] {
		return false, nil
	}

	entries = append(entries, SynonymEntry{Entity: entity, Value: value, SurfaceForms: surfaceForms})

	if err := c.save(lang, entries); err != nil {
		return false, err
	}
	c.seen[lang][key] = true
	return true, nil
}

// Load returns every synonym entry cached for lang, for replay into a
// freshly loaded classifier.
func (c *SynonymCache) Load(lang string) ([]SynonymEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load(lang)
}

func (c *SynonymCache) load(lang string) ([]SynonymEntry, error) {
	path := c.path(lang)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var entries []SynonymEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *SynonymCache) save(lang string, entries []SynonymEntry) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	return atomic.WriteFile(c.path(lang), bytes.NewReader(data))
}

func (c *SynonymCache) path(lang string) string {
	return filepath.Join(c.dir, lang+".json")
}
