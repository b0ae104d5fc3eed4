package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Discord contains bot credentials and the channel that sound clips are posted to.
type Discord struct {
	BotToken              string `toml:"bot_token"`
	ChannelID             uint64 `toml:"channel_id"`
	BaseURL               string `toml:"api_base_url"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Paths contains working and output directory configuration.
type Paths struct {
	DataDir     string `toml:"data_dir"`
	DownloadDir string `toml:"download_dir"`
	OutputRoot  string `toml:"output_root"`
	LogDir      string `toml:"log_dir"`
}

// Fetch contains paging limits and attachment filters for the fetch cycle.
type Fetch struct {
	MaxPages         int      `toml:"max_pages"`
	PageSize         int      `toml:"page_size"`
	PageDelayMillis  int      `toml:"page_delay_ms"`
	MaxAttachmentMiB int      `toml:"max_attachment_mib"`
	Extensions       []string `toml:"extensions"`
	// OnDownloadFailure is "discard" (drop everything collected in the cycle)
	// or "persist_completed" (keep items from messages finished before the failure).
	OnDownloadFailure string `toml:"on_download_failure"`
	// CleanupOnFailure removes files downloaded by a failed cycle that were not
	// persisted. Disabled by default; retries overwrite the same names.
	CleanupOnFailure bool `toml:"cleanup_on_failure"`
}

// Audio names the external binaries used for rendering.
type Audio struct {
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
}

// Export contains dictionary and sound output settings.
type Export struct {
	SoundSubdir     string `toml:"sound_subdir"`
	DictionaryName  string `toml:"dictionary_name"`
	CollisionPolicy string `toml:"collision_policy"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for sedeck.
type Config struct {
	Discord Discord `toml:"discord"`
	Paths   Paths   `toml:"paths"`
	Fetch   Fetch   `toml:"fetch"`
	Audio   Audio   `toml:"audio"`
	Export  Export  `toml:"export"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/sedeck/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("sedeck.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the working directories. The output root is only
// created by the commit cycle since it usually lives on the soundboard host.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.DownloadDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CatalogPath returns the SQLite database location.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.Paths.DataDir, defaultCatalogDatabaseName)
}

// LockPath returns the session lock file that serializes fetch and commit cycles.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "sedeck.lock")
}

// SoundDir returns the directory rendered clips are written to.
func (c *Config) SoundDir() string {
	return filepath.Join(c.Paths.OutputRoot, c.Export.SoundSubdir)
}

// DictionaryPath returns the dictionary file rows are appended to.
func (c *Config) DictionaryPath() string {
	return filepath.Join(c.Paths.OutputRoot, c.Export.DictionaryName)
}

// MaxAttachmentBytes returns the attachment size ceiling in bytes.
func (c *Config) MaxAttachmentBytes() int64 {
	return int64(c.Fetch.MaxAttachmentMiB) * 1024 * 1024
}

// PageDelay returns the minimum spacing between history page requests.
func (c *Config) PageDelay() time.Duration {
	return time.Duration(c.Fetch.PageDelayMillis) * time.Millisecond
}

// RequestTimeout returns the HTTP timeout used for Discord and CDN requests.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Discord.RequestTimeoutSeconds) * time.Second
}

// RequireDiscord reports whether the settings needed by the fetch cycle are present.
func (c *Config) RequireDiscord() error {
	if strings.TrimSpace(c.Discord.BotToken) == "" {
		return fmt.Errorf("discord.bot_token is required. Set DISCORD_BOT_TOKEN or edit %s (create with 'sedeck config init')", displayConfigPath())
	}
	if c.Discord.ChannelID == 0 {
		return errors.New("discord.channel_id is required. Set DISCORD_CHANNEL_ID or edit the config file")
	}
	return nil
}

// RequireOutput reports whether the settings needed by the commit cycle are present.
func (c *Config) RequireOutput() error {
	if strings.TrimSpace(c.Paths.OutputRoot) == "" {
		return fmt.Errorf("paths.output_root must be set before committing; edit %s", displayConfigPath())
	}
	return nil
}

func displayConfigPath() string {
	path, err := DefaultConfigPath()
	if err != nil {
		return "~/.config/sedeck/config.toml"
	}
	return path
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Marshal renders the effective configuration as TOML with the bot token masked.
func (c *Config) Marshal() ([]byte, error) {
	clone := *c
	if clone.Discord.BotToken != "" {
		clone.Discord.BotToken = "********"
	}
	clone.Fetch.Extensions = append([]string(nil), c.Fetch.Extensions...)
	return toml.Marshal(clone)
}
