package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
)

// DurationProber reports the duration of a media file in whole seconds.
type DurationProber interface {
	Duration(ctx context.Context, path string) (int64, error)
}

// FFProbe shells out to ffprobe for container metadata.
type FFProbe struct{}

func (FFProbe) Duration(ctx context.Context, path string) (int64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %q: %w", path, err)
	}
	return ParseDuration(out)
}

type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// ParseDuration extracts the format duration from raw ffprobe JSON, rounded
// up to whole seconds. Exported for testing without a real ffprobe binary.
func ParseDuration(data []byte) (int64, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return 0, fmt.Errorf("parse ffprobe JSON: %w", err)
	}
	if raw.Format.Duration == "" {
		return 0, fmt.Errorf("ffprobe output has no duration")
	}
	seconds, err := strconv.ParseFloat(raw.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", raw.Format.Duration, err)
	}
	if seconds <= 0 {
		return 0, fmt.Errorf("non-positive duration %q", raw.Format.Duration)
	}
	return int64(math.Ceil(seconds)), nil
}
