package speech

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// FFmpeg shells out to the ffmpeg binary.
type FFmpeg struct {
	Path string
}

func NewFFmpeg(path string) *FFmpeg {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpeg{Path: path}
}

func (f *FFmpeg) ToMP3(ctx context.Context, src, dst string) error {
	cmd := exec.CommandContext(ctx, f.Path, "-hide_banner", "-loglevel", "error", "-y", "-i", src, "-f", "mp3", dst)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg %s: %w: %s", src, err, strings.TrimSpace(stderr.String()))
	}
	info, err := os.Stat(dst)
	if err != nil {
		return fmt.Errorf("ffmpeg output: %w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("ffmpeg produced an empty file for %s", src)
	}
	return nil
}
