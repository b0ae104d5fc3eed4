package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeDiscord(); err != nil {
		return err
	}
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeFetch()
	c.normalizeAudio()
	c.normalizeExport()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeDiscord() error {
	c.Discord.BotToken = strings.TrimSpace(c.Discord.BotToken)
	if c.Discord.BotToken == "" {
		if value, ok := os.LookupEnv("DISCORD_BOT_TOKEN"); ok {
			c.Discord.BotToken = strings.TrimSpace(value)
		}
	}
	if c.Discord.ChannelID == 0 {
		if value, ok := os.LookupEnv("DISCORD_CHANNEL_ID"); ok && strings.TrimSpace(value) != "" {
			id, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
			if err != nil {
				return fmt.Errorf("DISCORD_CHANNEL_ID: invalid channel id %q", value)
			}
			c.Discord.ChannelID = id
		}
	}
	c.Discord.BaseURL = strings.TrimRight(strings.TrimSpace(c.Discord.BaseURL), "/")
	if c.Discord.BaseURL == "" {
		c.Discord.BaseURL = defaultDiscordBaseURL
	}
	if c.Discord.RequestTimeoutSeconds <= 0 {
		c.Discord.RequestTimeoutSeconds = defaultDiscordTimeout
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DownloadDir) == "" {
		c.Paths.DownloadDir = defaultDownloadDir
	}
	if c.Paths.DownloadDir, err = expandPath(c.Paths.DownloadDir); err != nil {
		return fmt.Errorf("paths.download_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.OutputRoot, err = expandPath(strings.TrimSpace(c.Paths.OutputRoot)); err != nil {
		return fmt.Errorf("paths.output_root: %w", err)
	}
	return nil
}

func (c *Config) normalizeFetch() {
	if c.Fetch.MaxPages <= 0 {
		c.Fetch.MaxPages = defaultMaxPages
	}
	if c.Fetch.PageSize <= 0 {
		c.Fetch.PageSize = defaultPageSize
	}
	if c.Fetch.PageDelayMillis < 0 {
		c.Fetch.PageDelayMillis = defaultPageDelayMillis
	}
	if c.Fetch.MaxAttachmentMiB <= 0 {
		c.Fetch.MaxAttachmentMiB = defaultMaxAttachmentMiB
	}

	exts := make([]string, 0, len(c.Fetch.Extensions))
	seen := make(map[string]struct{}, len(c.Fetch.Extensions))
	for _, ext := range c.Fetch.Extensions {
		normalized := strings.ToLower(strings.TrimSpace(ext))
		if normalized == "" {
			continue
		}
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		exts = append(exts, normalized)
	}
	if len(exts) == 0 {
		exts = append(exts, defaultExtensions...)
	}
	c.Fetch.Extensions = exts

	c.Fetch.OnDownloadFailure = strings.ToLower(strings.TrimSpace(c.Fetch.OnDownloadFailure))
	if c.Fetch.OnDownloadFailure == "" {
		c.Fetch.OnDownloadFailure = defaultOnDownloadFailure
	}
}

func (c *Config) normalizeAudio() {
	c.Audio.FFmpegBinary = strings.TrimSpace(c.Audio.FFmpegBinary)
	if c.Audio.FFmpegBinary == "" {
		c.Audio.FFmpegBinary = defaultFFmpegBinary
	}
	c.Audio.FFprobeBinary = strings.TrimSpace(c.Audio.FFprobeBinary)
	if c.Audio.FFprobeBinary == "" {
		c.Audio.FFprobeBinary = defaultFFprobeBinary
	}
}

func (c *Config) normalizeExport() {
	c.Export.SoundSubdir = strings.TrimSpace(c.Export.SoundSubdir)
	if c.Export.SoundSubdir == "" {
		c.Export.SoundSubdir = defaultSoundSubdir
	}
	c.Export.DictionaryName = strings.TrimSpace(c.Export.DictionaryName)
	if c.Export.DictionaryName == "" {
		c.Export.DictionaryName = defaultDictionaryName
	}
	c.Export.CollisionPolicy = strings.ToLower(strings.TrimSpace(c.Export.CollisionPolicy))
	if c.Export.CollisionPolicy == "" {
		c.Export.CollisionPolicy = defaultCollisionPolicy
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
