package classifier

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	nimbusErrors "github.com/harunnryd/nimbus/internal/errors"
	"github.com/harunnryd/nimbus/internal/store"

	"golang.org/x/sync/errgroup"
)

// ModelPaths locates the three classifier model files LoadAll loads
// (spec.md §4.1).
type ModelPaths struct {
	GlobalResolvers string
	SkillsResolvers string
	Main            string
}

// RetrainCommands names the training command to surface in a ModelMissing
// error, per model kind.
type RetrainCommands struct {
	GlobalResolvers string
	SkillsResolvers string
	Main            string
}

// BuiltinEntities is the static inventory of builtin entity names the NER
// Gateway exposes to the main classifier (spec.md §4.1's
// "GetBuiltinEntities()").
type BuiltinEntities interface {
	GetBuiltinEntities() []string
}

// ModelLoader owns the three classifier instances and loads them
// concurrently at process start (spec.md §4.1, §5).
type ModelLoader struct {
	New func(kind Kind) Classifier

	GlobalResolvers Classifier
	SkillsResolvers Classifier
	Main            Classifier

	ready int32
	mu    sync.Mutex
}

func NewModelLoader(newClassifier func(kind Kind) Classifier) *ModelLoader {
	return &ModelLoader{New: newClassifier}
}

// LoadAll loads the three models concurrently, guarding the model
// directory with a flock so a retrain running in another process can't
// race the load, and joins before reporting ready (spec.md §4.1, §5).
// If synonyms is non-nil, every entry cached for lang is replayed into
// the freshly loaded main classifier, so a restarted process doesn't
// have to wait to re-observe the same spaCy entities (spec.md §4.2).
func (l *ModelLoader) LoadAll(ctx context.Context, modelsRoot string, paths ModelPaths, retrain RetrainCommands, ner BuiltinEntities, lang string, synonyms *SynonymCache) error {
	lock, err := store.NewFileLock(modelsRoot, modelsRoot, nil)
	if err != nil {
		return nimbusErrors.ModelLoadError("acquire model directory lock: " + err.Error())
	}
	defer lock.Unlock()

	l.mu.Lock()
	global := l.New(KindGlobalResolvers)
	skills := l.New(KindSkillsResolvers)
	main := l.New(KindMain)
	l.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return loadOne(gctx, global, paths.GlobalResolvers, retrain.GlobalResolvers)
	})
	g.Go(func() error {
		return loadOne(gctx, skills, paths.SkillsResolvers, retrain.SkillsResolvers)
	})
	g.Go(func() error {
		if err := loadOne(gctx, main, paths.Main, retrain.Main); err != nil {
			return err
		}
		if ner != nil {
			if err := main.AddEntities(ner.GetBuiltinEntities(), lang); err != nil {
				return nimbusErrors.Wrap(err, "register builtin entities")
			}
		}
		return replaySynonyms(main, synonyms, lang)
	})

	if err := g.Wait(); err != nil {
		slog.Error("Model loading failed", "error", err)
		return err
	}

	l.mu.Lock()
	l.GlobalResolvers = global
	l.SkillsResolvers = skills
	l.Main = main
	l.mu.Unlock()

	atomic.StoreInt32(&l.ready, 1)
	slog.Info("All classifier models loaded", "models_root", modelsRoot)
	return nil
}

func replaySynonyms(c Classifier, synonyms *SynonymCache, lang string) error {
	if synonyms == nil {
		return nil
	}

	entries, err := synonyms.Load(lang)
	if err != nil {
		return nimbusErrors.Wrap(err, "load cached synonyms")
	}

	for _, entry := range entries {
		if err := c.RegisterSynonym(lang, entry.Entity, entry.Value, entry.SurfaceForms); err != nil {
			return nimbusErrors.Wrap(err, "replay cached synonym")
		}
	}

	if len(entries) > 0 {
		slog.Info("Replayed cached synonyms into main classifier", "lang", lang, "count", len(entries))
	}
	return nil
}

func loadOne(ctx context.Context, c Classifier, path, retrainCommand string) error {
	if path == "" {
		return nimbusErrors.ModelMissing(retrainCommand)
	}
	if err := c.Load(ctx, path, true); err != nil {
		if isFileMissing(err) {
			return nimbusErrors.ModelMissing(retrainCommand)
		}
		return nimbusErrors.ModelLoadError(filepath.Base(path) + ": " + err.Error())
	}
	return nil
}

// IsReady reports whether all three classifiers were loaded successfully.
func (l *ModelLoader) IsReady() bool {
	return atomic.LoadInt32(&l.ready) == 1
}

func isFileMissing(err error) bool {
	return err != nil && isNotExist(err)
}
