package audio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Clip summarizes what ffprobe reports about a downloaded attachment. Codec,
// SampleRate and Channels describe the first audio stream.
type Clip struct {
	AudioStreams int
	Codec        string
	SampleRate   int
	Channels     int
	Duration     float64
}

// HasAudio reports whether the container carries at least one audio stream.
func (c Clip) HasAudio() bool {
	return c.AudioStreams > 0
}

type probeOutput struct {
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Inspect runs ffprobe on path and summarizes its audio streams.
func Inspect(ctx context.Context, binary, path string) (Clip, error) {
	if strings.TrimSpace(binary) == "" {
		binary = "ffprobe"
	}
	if strings.TrimSpace(path) == "" {
		return Clip{}, errors.New("ffprobe: empty path")
	}

	cmd := exec.CommandContext(ctx, binary,
		"-v", "error", "-hide_banner",
		"-show_entries", "stream=codec_type,codec_name,sample_rate,channels:format=duration",
		"-of", "json", "--", path)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return Clip{}, fmt.Errorf("ffprobe: %w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return Clip{}, fmt.Errorf("ffprobe: %w", err)
	}
	return parseProbe(output)
}

func parseProbe(data []byte) (Clip, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return Clip{}, fmt.Errorf("ffprobe: decode output: %w", err)
	}

	var clip Clip
	for _, stream := range out.Streams {
		if !strings.EqualFold(stream.CodecType, "audio") {
			continue
		}
		if clip.AudioStreams == 0 {
			clip.Codec = stream.CodecName
			clip.SampleRate, _ = strconv.Atoi(stream.SampleRate)
			clip.Channels = stream.Channels
		}
		clip.AudioStreams++
	}
	if d, err := strconv.ParseFloat(strings.TrimSpace(out.Format.Duration), 64); err == nil && d > 0 {
		clip.Duration = d
	}
	return clip, nil
}
