// Package commands implements the audiosessions CLI.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sbeier/audiosessions/internal/cache"
	"github.com/sbeier/audiosessions/internal/config"
	"github.com/sbeier/audiosessions/internal/encoder"
	"github.com/sbeier/audiosessions/internal/logger"
	"github.com/sbeier/audiosessions/internal/preprocess"
	"github.com/sbeier/audiosessions/internal/prompts"
	"github.com/sbeier/audiosessions/internal/store"
	"github.com/sbeier/audiosessions/internal/transcribe"
)

var (
	verbose bool

	globalConfig  *config.Config
	configLoadErr error
	globalLog     *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "audiosessions",
	Short: "Record, play back and transcribe audio sessions",
	Long: `audiosessions - record audio sessions, play them back, and turn
them into text with a remote transcription API.

Recordings are stored as WAV files, indexed in a local SQLite database,
and transcripts are cached by content hash so repeated transcriptions
of the same file are free.

Configuration lives in the OS config directory:
  Linux:   ~/.config/audiosessions/config.json
  macOS:   ~/Library/Application Support/audiosessions/config.json

The API key is read from the config file or the OPENAI_API_KEY
environment variable.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	defer func() {
		if globalLog != nil {
			globalLog.Close()
		}
	}()
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func initConfig() {
	cfg, err := config.Load(config.GetConfigPath())
	if err != nil {
		configLoadErr = err
		return
	}
	globalConfig = cfg
}

// getConfig returns the loaded configuration.
func getConfig() (*config.Config, error) {
	if globalConfig == nil {
		if configLoadErr != nil {
			return nil, fmt.Errorf("config not available: %w", configLoadErr)
		}
		cfg, err := config.Load(config.GetConfigPath())
		if err != nil {
			return nil, fmt.Errorf("config not available: %w", err)
		}
		globalConfig = cfg
	}
	return globalConfig, nil
}

// getLogger returns the shared file logger.
func getLogger() (*logger.Logger, error) {
	if globalLog != nil {
		return globalLog, nil
	}
	lc := logger.DefaultConfig()
	if verbose {
		lc.Level = logger.DEBUG
	}
	log, err := logger.New(lc)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	globalLog = log
	return log, nil
}

// openStore opens the session database from the configuration.
func openStore(cfg *config.Config) (*store.Store, error) {
	path := cfg.DatabasePath
	if path == "" {
		path = store.DefaultDBPath()
	}
	return store.Open(path)
}

// newService wires the transcription orchestrator from the configuration.
func newService(cfg *config.Config, log *logger.Logger) (*transcribe.Service, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("no API key configured; set api_key in %s or the OPENAI_API_KEY environment variable", config.GetConfigPath())
	}

	var c *cache.Cache
	if cfg.UseCache {
		var err error
		c, err = cache.New(cfg.CacheDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open cache: %w", err)
		}
	}

	ps, err := prompts.Load(cfg.PromptsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompts: %w", err)
	}

	prep := preprocess.New(encoder.Detect(log), log)
	if cfg.ChunkMinutes > 0 {
		prep.SetSegmentSeconds(float64(cfg.ChunkMinutes) * 60)
	}

	sc := transcribe.Config{
		Language:        cfg.Language,
		UseCache:        cfg.UseCache,
		MaxChunkMB:      cfg.MaxChunkMB,
		TranscribeModel: cfg.TranscribeModel,
		TransformModel:  cfg.TransformModel,
		FallbackModel:   cfg.FallbackModel,
		ReasoningEffort: cfg.ReasoningEffort,
		Verbosity:       cfg.Verbosity,
	}
	client := transcribe.NewOpenAIClient(cfg.APIKey)
	return transcribe.NewService(client, c, prep, ps, sc, log), nil
}
