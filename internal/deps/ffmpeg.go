package deps

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Version runs "<binary> -version" and returns the first output line, which
// for ffmpeg and ffprobe names the build.
func Version(ctx context.Context, binary string) (string, error) {
	out, err := exec.CommandContext(ctx, binary, "-version").Output()
	if err != nil {
		return "", fmt.Errorf("%s -version: %w", binary, err)
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	return strings.TrimSpace(line), nil
}

// CheckWritableDir reports whether dir exists (or can be created) and
// accepts new files.
func CheckWritableDir(name, dir string) Status {
	status := Status{Name: name, Command: dir, Description: "Directory must be writable"}
	if strings.TrimSpace(dir) == "" {
		status.Detail = "path not configured"
		return status
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		status.Detail = fmt.Sprintf("cannot create: %v", err)
		return status
	}
	tmp, err := os.CreateTemp(dir, ".sedeck-doctor-*")
	if err != nil {
		status.Detail = fmt.Sprintf("not writable: %v", err)
		return status
	}
	name = tmp.Name()
	_ = tmp.Close()
	_ = os.Remove(name)
	status.Command = filepath.Clean(dir)
	status.Available = true
	return status
}
