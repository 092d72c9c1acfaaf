package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Config holds application configuration
type Config struct {
	APIKey          string `json:"api_key"`
	Language        string `json:"language"`          // ISO-639-1 code used as transcription hint
	AudioDeviceID   int    `json:"audio_device_id"`   // -1 means system default
	SampleRate      int    `json:"samplerate"`
	Channels        int    `json:"channels"`
	OutputDir       string `json:"output_dir"`        // where recordings are written
	CacheDir        string `json:"cache_dir"`         // transcript cache directory
	UseCache        bool   `json:"use_cache"`
	MaxChunkMB      int    `json:"max_chunk_mb"`      // encoded size ceiling per chunk
	ChunkMinutes    int    `json:"chunk_minutes"`     // fixed segment duration when splitting
	TranscribeModel string `json:"transcribe_model"`
	TransformModel  string `json:"transform_model"`
	FallbackModel   string `json:"fallback_model"`
	ReasoningEffort string `json:"reasoning_effort"`  // minimal | low | medium | high
	Verbosity       string `json:"verbosity"`         // low | medium | high
	PromptsPath     string `json:"prompts_path"`
	DatabasePath    string `json:"database_path"`

	mu sync.RWMutex
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	dataDir := appDataDir()

	return &Config{
		APIKey:          "",
		Language:        "de",
		AudioDeviceID:   -1,
		SampleRate:      44100,
		Channels:        1,
		OutputDir:       filepath.Join(dataDir, "recordings"),
		CacheDir:        filepath.Join(dataDir, "transcripts_cache"),
		UseCache:        true,
		MaxChunkMB:      20,
		ChunkMinutes:    15,
		TranscribeModel: "gpt-4o-transcribe",
		TransformModel:  "gpt-5",
		FallbackModel:   "gpt-4o",
		ReasoningEffort: "medium",
		Verbosity:       "low",
		PromptsPath:     filepath.Join(dataDir, "prompts.yaml"),
		DatabasePath:    filepath.Join(dataDir, "sessions.db"),
	}
}

func appDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "audiosessions")
}

// Load loads configuration from the specified path
func Load(path string) (*Config, error) {
	// If file doesn't exist, return default config
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// API key from environment wins over the file so the key never has
	// to be written to disk.
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		config.APIKey = key
	}

	return config, nil
}

// Save saves configuration to the specified path
func (c *Config) Save(path string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	return filepath.Join(appDataDir(), "config.json")
}

// Update updates configuration fields from a partial key/value map
func (c *Config) Update(updates map[string]interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, value := range updates {
		switch key {
		case "api_key":
			if v, ok := value.(string); ok {
				c.APIKey = v
			}
		case "language":
			if v, ok := value.(string); ok {
				if v == "" {
					return fmt.Errorf("language cannot be empty")
				}
				c.Language = v
			}
		case "audio_device_id":
			if v, ok := value.(float64); ok {
				c.AudioDeviceID = int(v)
			}
		case "samplerate":
			if v, ok := value.(float64); ok {
				c.SampleRate = int(v)
			}
		case "channels":
			if v, ok := value.(float64); ok {
				c.Channels = int(v)
			}
		case "output_dir":
			if v, ok := value.(string); ok {
				c.OutputDir = v
			}
		case "use_cache":
			if v, ok := value.(bool); ok {
				c.UseCache = v
			}
		case "max_chunk_mb":
			if v, ok := value.(float64); ok {
				c.MaxChunkMB = int(v)
			}
		case "chunk_minutes":
			if v, ok := value.(float64); ok {
				c.ChunkMinutes = int(v)
			}
		case "transcribe_model":
			if v, ok := value.(string); ok {
				c.TranscribeModel = v
			}
		case "transform_model":
			if v, ok := value.(string); ok {
				c.TransformModel = v
			}
		case "fallback_model":
			if v, ok := value.(string); ok {
				c.FallbackModel = v
			}
		case "reasoning_effort":
			if v, ok := value.(string); ok {
				if !validEffort(v) {
					return fmt.Errorf("invalid reasoning_effort: %s", v)
				}
				c.ReasoningEffort = v
			}
		case "verbosity":
			if v, ok := value.(string); ok {
				if v != "low" && v != "medium" && v != "high" {
					return fmt.Errorf("invalid verbosity: %s", v)
				}
				c.Verbosity = v
			}
		}
	}

	return nil
}

func validEffort(v string) bool {
	switch v {
	case "minimal", "low", "medium", "high":
		return true
	}
	return false
}

// Validate validates all configuration fields
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.Language == "" {
		return fmt.Errorf("language cannot be empty")
	}

	if c.SampleRate <= 0 {
		return fmt.Errorf("invalid samplerate: %d", c.SampleRate)
	}

	if c.Channels <= 0 {
		return fmt.Errorf("invalid channels: %d", c.Channels)
	}

	if c.MaxChunkMB <= 0 {
		return fmt.Errorf("invalid max_chunk_mb: %d (must be positive)", c.MaxChunkMB)
	}

	if c.ChunkMinutes <= 0 {
		return fmt.Errorf("invalid chunk_minutes: %d (must be positive)", c.ChunkMinutes)
	}

	if !validEffort(c.ReasoningEffort) {
		return fmt.Errorf("invalid reasoning_effort: %s", c.ReasoningEffort)
	}

	if c.Verbosity != "low" && c.Verbosity != "medium" && c.Verbosity != "high" {
		return fmt.Errorf("invalid verbosity: %s", c.Verbosity)
	}

	return nil
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return &Config{
		APIKey:          c.APIKey,
		Language:        c.Language,
		AudioDeviceID:   c.AudioDeviceID,
		SampleRate:      c.SampleRate,
		Channels:        c.Channels,
		OutputDir:       c.OutputDir,
		CacheDir:        c.CacheDir,
		UseCache:        c.UseCache,
		MaxChunkMB:      c.MaxChunkMB,
		ChunkMinutes:    c.ChunkMinutes,
		TranscribeModel: c.TranscribeModel,
		TransformModel:  c.TransformModel,
		FallbackModel:   c.FallbackModel,
		ReasoningEffort: c.ReasoningEffort,
		Verbosity:       c.Verbosity,
		PromptsPath:     c.PromptsPath,
		DatabasePath:    c.DatabasePath,
	}
}

// ExpandPath expands ~ to home directory in file paths
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(homeDir, path[2:]), nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	return absPath, nil
}
