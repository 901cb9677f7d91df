package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/harunnryd/nimbus/internal/actionloop"
	"github.com/harunnryd/nimbus/internal/classifier"
	"github.com/harunnryd/nimbus/internal/config"
	"github.com/harunnryd/nimbus/internal/conversation"
	"github.com/harunnryd/nimbus/internal/dispatcher"
	"github.com/harunnryd/nimbus/internal/fallback"
	"github.com/harunnryd/nimbus/internal/langswitch"
	"github.com/harunnryd/nimbus/internal/ner"
	"github.com/harunnryd/nimbus/internal/slotfill"
	"github.com/harunnryd/nimbus/internal/telemetry"
	"github.com/harunnryd/nimbus/internal/tokenizer"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Load the classifier models and start the dispatch loop reading from stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

// buildDispatcher wires every SPEC_FULL.md component over cfg. The main
// classifier is a FakeClassifier until a real NLU library is wired in;
// the Brain and the telephony socket stay nil, since both are external
// collaborators this core only ever holds as interfaces.
func buildDispatcher(ctx context.Context, cfg *config.Config) (*dispatcher.Dispatcher, error) {
	cls := classifier.NewFakeClassifier()
	loader := classifier.NewModelLoader(func(classifier.Kind) classifier.Classifier { return cls })
	synonyms := classifier.NewSynonymCache(cfg.Models.SynonymCacheDir)

	if err := loader.LoadAll(ctx, cfg.Models.Root, classifier.ModelPaths{
		GlobalResolvers: cfg.Models.Root + "/" + cfg.Models.GlobalResolversFile,
		SkillsResolvers: cfg.Models.Root + "/" + cfg.Models.SkillsResolversFile,
		Main:            cfg.Models.Root + "/" + cfg.Models.MainFile,
	}, classifier.RetrainCommands{
		GlobalResolvers: "nimbus train global-resolvers",
		SkillsResolvers: "nimbus train skills-resolvers",
		Main:            "nimbus train main",
	}, nil, cfg.Language.Default, synonyms); err != nil {
		slog.Warn("Model loading failed at startup; dispatch will reject turns until retrained", "error", err)
	}
	store := conversation.NewStore()

	process := tokenizer.NewProcessManager()
	client := tokenizer.NewSocketClient()

	switcher := langswitch.NewSwitcher(process, client, nil, nil, store, cfg.Tokenizer.CommandTemplate, func(string) string {
		return cfg.Tokenizer.SocketAddress
	}, nil)
	switcher.SetCurrentLang(cfg.Language.Default)

	gateway := ner.NewGateway(cls, client, synonyms, switcher.CurrentLang)
	filler := slotfill.NewFiller(store, gateway, cls, nil, nil)
	loop := actionloop.NewHandler(store, gateway, cls, cls, cfg.Skills.GlobalResolversRoot, nil, nil)

	telemetryClient := telemetry.NewClient(cfg.Telemetry.Enabled, cfg.Telemetry.Endpoint, cfg.Telemetry.Version, cfg.Telemetry.FlushCron, cfg.Telemetry.QueueMaxSize)
	if err := telemetryClient.Start(); err != nil {
		return nil, fmt.Errorf("start telemetry: %w", err)
	}

	d := dispatcher.NewDispatcher(dispatcher.Dispatcher{
		ModelLoader:          loader,
		Classifier:           cls,
		NER:                  gateway,
		Store:                store,
		Fallbacks:            map[string][]fallback.Rule{},
		SlotFiller:           filler,
		ActionLoop:           loop,
		LangSwitch:           switcher,
		Telemetry:            telemetryClient,
		SkillsRoot:           cfg.Skills.Root,
		SupportedLanguages:   cfg.Language.Supported,
		ContextBiasThreshold: cfg.Dispatcher.ContextBiasThreshold,
	})

	if _, err := process.Spawn(cfg.Tokenizer.CommandTemplate, cfg.Language.Default); err != nil {
		slog.Warn("Tokenization service did not start; spaCy-merged entities are unavailable", "error", err)
	}

	return d, nil
}

func runServe(ctx context.Context) error {
	sig := NewSignalHandler(ctx)
	sig.Start()

	d, err := buildDispatcher(sig.ctx, cfg)
	if err != nil {
		return err
	}

	fmt.Println("Nimbus dispatch loop ready. Type an utterance and press enter; Ctrl+C to stop.")
	lines := make(chan string)
	go readStdinLines(lines)

	for {
		select {
		case <-sig.ctx.Done():
			sig.Wait()
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			processAndPrint(sig.ctx, d, line)
		}
	}
}

func processAndPrint(ctx context.Context, d *dispatcher.Dispatcher, utterance string) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result, err := d.Process(ctx, utterance)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	if result == nil {
		return
	}

	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
}
