package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"sedeck/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Paging delays are zeroed so tests never sleep between pages.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Discord.BotToken = "test-token"
	cfgVal.Discord.ChannelID = 1001
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.DownloadDir = filepath.Join(base, "data", "downloads")
	cfgVal.Paths.LogDir = filepath.Join(base, "data", "logs")
	cfgVal.Paths.OutputRoot = filepath.Join(base, "board")
	cfgVal.Fetch.PageDelayMillis = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithDiscordBaseURL points the Discord client at a test server.
func WithDiscordBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Discord.BaseURL = url
	}
}

// WithCollisionPolicy overrides the export collision policy.
func WithCollisionPolicy(policy string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Export.CollisionPolicy = policy
	}
}

// WithStubbedBinaries writes executables for the provided name/script pairs
// and prepends their directory to PATH for the duration of the test.
func WithStubbedBinaries(scripts map[string]string) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		for name, script := range scripts {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
