package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is structurally usable. Credentials and
// the output root are checked by RequireDiscord and RequireOutput so offline
// commands keep working without them.
func (c *Config) Validate() error {
	if err := c.validateDiscord(); err != nil {
		return err
	}
	if err := c.validateFetch(); err != nil {
		return err
	}
	if err := c.validateExport(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateDiscord() error {
	parsed, err := url.Parse(c.Discord.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("discord.api_base_url must be an absolute URL, got %q", c.Discord.BaseURL)
	}
	return nil
}

func (c *Config) validateFetch() error {
	if c.Fetch.PageSize > 100 {
		return errors.New("fetch.page_size must be between 1 and 100")
	}
	switch c.Fetch.OnDownloadFailure {
	case DownloadFailureDiscard, DownloadFailurePersistCompleted:
	default:
		return fmt.Errorf("fetch.on_download_failure: unsupported value %q (want %q or %q)",
			c.Fetch.OnDownloadFailure, DownloadFailureDiscard, DownloadFailurePersistCompleted)
	}
	return nil
}

func (c *Config) validateExport() error {
	switch c.Export.CollisionPolicy {
	case CollisionReject, CollisionSuffix, CollisionOverwrite:
	default:
		return fmt.Errorf("export.collision_policy: unsupported value %q", c.Export.CollisionPolicy)
	}
	for key, value := range map[string]string{
		"export.sound_subdir":    c.Export.SoundSubdir,
		"export.dictionary_name": c.Export.DictionaryName,
	} {
		if filepath.IsAbs(value) || strings.Contains(value, "..") {
			return fmt.Errorf("%s must be a plain name relative to paths.output_root", key)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
