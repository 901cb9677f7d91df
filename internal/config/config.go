package config

import (
	"os"
	"path/filepath"
	"strings"

	"log/slog"

	"github.com/harunnryd/nimbus/internal/pathutil"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

// Config is the full process configuration: classifier model paths, skill
// and resolver roots, supported languages, the tokenization service launch
// template, and the optional anonymous telemetry client.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Models     ModelsConfig     `koanf:"models"`
	Skills     SkillsConfig     `koanf:"skills"`
	Tokenizer  TokenizerConfig  `koanf:"tokenizer"`
	Language   LanguageConfig   `koanf:"language"`
	Dispatcher DispatcherConfig `koanf:"dispatcher"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
}

type ServerConfig struct {
	LogLevel string `koanf:"log_level"`
}

// ModelsConfig locates the three classifier model files on disk (spec.md §6).
type ModelsConfig struct {
	Root               string `koanf:"root"`
	GlobalResolversFile string `koanf:"global_resolvers_file"`
	SkillsResolversFile string `koanf:"skills_resolvers_file"`
	MainFile            string `koanf:"main_file"`
	SynonymCacheDir     string `koanf:"synonym_cache_dir"`
}

// SkillsConfig locates per-skill per-language config files and the
// global-resolvers JSON tree (spec.md §6 on-disk layout).
type SkillsConfig struct {
	Root              string `koanf:"root"`
	GlobalResolversRoot string `koanf:"global_resolvers_root"`
}

// TokenizerConfig describes how to launch and reach the external
// tokenization child process (spec.md §6 "Tokenization Service").
type TokenizerConfig struct {
	// CommandTemplate is shlex-split, with "{locale}" substituted, e.g.
	// "./bin/tokenizer-service {locale}".
	CommandTemplate string `koanf:"command_template"`
	SocketAddress   string `koanf:"socket_address"`
	ShutdownTimeout string `koanf:"shutdown_timeout"`
}

type LanguageConfig struct {
	Default   string   `koanf:"default"`
	Supported []string `koanf:"supported"`
}

type DispatcherConfig struct {
	// ContextBiasThreshold is the score threshold used by the context-biased
	// re-pick rule in spec.md §4.8 (P7). Spec fixes this at 0.6.
	ContextBiasThreshold float64 `koanf:"context_bias_threshold"`
}

// TelemetryConfig governs the optional anonymous telemetry HTTP client
// (spec.md §6). It is off by default and gated only by Enabled; there is
// no build-flag gate.
type TelemetryConfig struct {
	Enabled      bool   `koanf:"enabled"`
	Endpoint     string `koanf:"endpoint"`
	Version      string `koanf:"version"`
	FlushCron    string `koanf:"flush_cron"`
	QueueMaxSize int    `koanf:"queue_max_size"`
}

const (
	DefaultServerLogLevel = "info"

	DefaultModelsRoot                = "core/data/models"
	DefaultGlobalResolversModelFile  = "leon-global-resolvers-model.nlp"
	DefaultSkillsResolversModelFile  = "leon-skills-resolvers-model.nlp"
	DefaultMainModelFile             = "leon-main-model.nlp"
	DefaultSynonymCacheDir           = "core/data/synonyms"

	DefaultSkillsRoot          = "skills"
	DefaultGlobalResolversRoot = "core/data"

	DefaultTokenizerCommandTemplate = "./bin/tokenizer-service {locale}"
	DefaultTokenizerSocketAddress   = "127.0.0.1:8081"
	DefaultTokenizerShutdownTimeout = "5s"

	DefaultLanguage = "en-US"

	DefaultContextBiasThreshold = 0.6

	DefaultTelemetryEnabled      = false
	DefaultTelemetryEndpoint     = "https://logger.getleon.ai/v1/expressions"
	DefaultTelemetryVersion      = "dev"
	DefaultTelemetryFlushCron    = "@every 1m"
	DefaultTelemetryQueueMaxSize = 500

	// DefaultModelLockRetry/MaxRetry govern the flock held on the model
	// directory while the Model Loader runs LoadAll (spec.md §6.2).
	DefaultModelLockRetry    = "100ms"
	DefaultModelLockMaxRetry = 100
)

// Load builds a Config from hardcoded defaults, an optional YAML file, the
// NIMBUS_ environment namespace, and CLI flags, in that priority order.
func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.log_level":                DefaultServerLogLevel,
		"models.root":                     DefaultModelsRoot,
		"models.global_resolvers_file":    DefaultGlobalResolversModelFile,
		"models.skills_resolvers_file":    DefaultSkillsResolversModelFile,
		"models.main_file":                DefaultMainModelFile,
		"models.synonym_cache_dir":        DefaultSynonymCacheDir,
		"skills.root":                     DefaultSkillsRoot,
		"skills.global_resolvers_root":    DefaultGlobalResolversRoot,
		"tokenizer.command_template":      DefaultTokenizerCommandTemplate,
		"tokenizer.socket_address":        DefaultTokenizerSocketAddress,
		"tokenizer.shutdown_timeout":      DefaultTokenizerShutdownTimeout,
		"language.default":                DefaultLanguage,
		"language.supported":              []string{"en-US", "fr-FR"},
		"dispatcher.context_bias_threshold": DefaultContextBiasThreshold,
		"telemetry.enabled":               DefaultTelemetryEnabled,
		"telemetry.endpoint":              DefaultTelemetryEndpoint,
		"telemetry.version":               DefaultTelemetryVersion,
		"telemetry.flush_cron":            DefaultTelemetryFlushCron,
		"telemetry.queue_max_size":        DefaultTelemetryQueueMaxSize,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	configPath := ""
	if cmd != nil {
		if flag := cmd.Flags().Lookup("config"); flag != nil {
			configPath = strings.TrimSpace(flag.Value.String())
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, err
		}
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			globalPath := filepath.Join(home, ".nimbus", "config.yaml")
			if err := k.Load(file.Provider(globalPath), yaml.Parser()); err != nil {
				slog.Debug("Global config not found or invalid", "path", globalPath, "error", err)
			}
		}
	}

	if err := k.Load(env.Provider("NIMBUS_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "NIMBUS_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	if cmd != nil {
		if err := k.Load(posflag.Provider(cmd.Flags(), ".", k), nil); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	if err := normalizePathFields(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func normalizePathFields(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	fields := []*string{
		&cfg.Models.Root,
		&cfg.Models.SynonymCacheDir,
		&cfg.Skills.Root,
		&cfg.Skills.GlobalResolversRoot,
	}
	for _, f := range fields {
		expanded, err := expandConfiguredPath(*f)
		if err != nil {
			return err
		}
		if expanded != "" {
			*f = expanded
		}
	}
	return nil
}

func expandConfiguredPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	return pathutil.Expand(trimmed)
}
