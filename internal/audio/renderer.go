package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"sedeck/internal/config"
	"sedeck/internal/logging"
)

var (
	// ErrRender indicates ffmpeg could not produce the output clip.
	ErrRender = errors.New("render failed")
	// ErrNoAudio indicates the source has no decodable audio stream.
	ErrNoAudio = errors.New("source has no audio stream")
)

const (
	minVolume = 1
	maxVolume = 100
	unityAt   = 50.0
)

// Gain maps a volume percent to a linear amplitude factor. 50 is unity, 100
// doubles the amplitude, and values outside 1-100 are clamped first.
func Gain(volumePercent int) float64 {
	return float64(min(max(volumePercent, minVolume), maxVolume)) / unityAt
}

// Renderer converts clips to gain-adjusted 16-bit PCM WAV.
type Renderer struct {
	ffmpeg  string
	ffprobe string
	logger  *slog.Logger
}

// NewRenderer creates a Renderer using the given binaries. Empty names fall
// back to resolving ffmpeg and ffprobe from PATH.
func NewRenderer(ffmpegBinary, ffprobeBinary string, logger *slog.Logger) *Renderer {
	ffmpegBinary = strings.TrimSpace(ffmpegBinary)
	if ffmpegBinary == "" {
		ffmpegBinary = "ffmpeg"
	}
	ffprobeBinary = strings.TrimSpace(ffprobeBinary)
	if ffprobeBinary == "" {
		ffprobeBinary = "ffprobe"
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Renderer{
		ffmpeg:  ffmpegBinary,
		ffprobe: ffprobeBinary,
		logger:  logging.NewComponentLogger(logger, "audio"),
	}
}

// NewRendererFromConfig builds a Renderer from application configuration.
func NewRendererFromConfig(cfg *config.Config, logger *slog.Logger) *Renderer {
	return NewRenderer(cfg.Audio.FFmpegBinary, cfg.Audio.FFprobeBinary, logger)
}

// Render writes src to dstWithoutExt + ".wav" with the gain for volumePercent
// applied and returns the written path. An existing output is replaced.
func (r *Renderer) Render(ctx context.Context, src string, volumePercent int, dstWithoutExt string) (string, error) {
	if _, err := os.Stat(src); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrRender, src, err)
	}

	clip, err := Inspect(ctx, r.ffprobe, src)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrRender, src, err)
	}
	if !clip.HasAudio() {
		return "", fmt.Errorf("%s: %w", src, ErrNoAudio)
	}

	dst := dstWithoutExt + ".wav"
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("%w: create output directory: %v", ErrRender, err)
	}

	gain := Gain(volumePercent)
	args := []string{
		"-hide_banner", "-v", "error", "-y",
		"-i", src,
		"-vn",
		"-af", "volume=" + strconv.FormatFloat(gain, 'f', -1, 64),
		"-c:a", "pcm_s16le",
		"-f", "wav",
		dst,
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, r.ffmpeg, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		_ = os.Remove(dst)
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return "", fmt.Errorf("%w: %s: %s", ErrRender, filepath.Base(src), detail)
	}

	r.logger.Debug("clip rendered",
		logging.String("source", src),
		logging.String("output", dst),
		logging.Float64("gain", gain),
		logging.String("codec", clip.Codec),
		logging.Int("sample_rate", clip.SampleRate),
		logging.Int("channels", clip.Channels),
		logging.Float64("duration_seconds", clip.Duration),
	)
	return dst, nil
}
