package config

const (
	defaultDataDir             = "~/.local/share/sedeck"
	defaultDownloadDir         = "~/.local/share/sedeck/downloads"
	defaultLogDir              = "~/.local/share/sedeck/logs"
	defaultDiscordBaseURL      = "https://discord.com/api/v10"
	defaultDiscordTimeout      = 30
	defaultMaxPages            = 50
	defaultPageSize            = 100
	defaultPageDelayMillis     = 350
	defaultMaxAttachmentMiB    = 50
	defaultOnDownloadFailure   = DownloadFailureDiscard
	defaultFFmpegBinary        = "ffmpeg"
	defaultFFprobeBinary       = "ffprobe"
	defaultSoundSubdir         = "Sound"
	defaultDictionaryName      = "ReplaceTag.dic"
	defaultCollisionPolicy     = CollisionReject
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultCatalogDatabaseName = "catalog.db"
)

var defaultExtensions = []string{".mp3", ".wav"}

// Download failure policies for the fetch cycle.
const (
	DownloadFailureDiscard          = "discard"
	DownloadFailurePersistCompleted = "persist_completed"
)

// Output name collision policies for the commit cycle.
const (
	CollisionReject    = "reject"
	CollisionSuffix    = "suffix"
	CollisionOverwrite = "overwrite"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Discord: Discord{
			BaseURL:               defaultDiscordBaseURL,
			RequestTimeoutSeconds: defaultDiscordTimeout,
		},
		Paths: Paths{
			DataDir:     defaultDataDir,
			DownloadDir: defaultDownloadDir,
			LogDir:      defaultLogDir,
		},
		Fetch: Fetch{
			MaxPages:          defaultMaxPages,
			PageSize:          defaultPageSize,
			PageDelayMillis:   defaultPageDelayMillis,
			MaxAttachmentMiB:  defaultMaxAttachmentMiB,
			Extensions:        append([]string(nil), defaultExtensions...),
			OnDownloadFailure: defaultOnDownloadFailure,
		},
		Audio: Audio{
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
		},
		Export: Export{
			SoundSubdir:     defaultSoundSubdir,
			DictionaryName:  defaultDictionaryName,
			CollisionPolicy: defaultCollisionPolicy,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
