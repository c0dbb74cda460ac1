package media

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Prober reports how long a media resource plays
type Prober interface {
	Duration(ctx context.Context, src string) (time.Duration, error)
}

// FFprobe shells out to ffprobe for the container duration
type FFprobe struct {
	Binary string // defaults to "ffprobe"
}

func (p *FFprobe) Duration(ctx context.Context, src string) (time.Duration, error) {
	bin := p.Binary
	if bin == "" {
		bin = "ffprobe"
	}

	cmd := exec.CommandContext(ctx, bin, "-v", "error", "-show_entries", "format=duration", "-of", "default=noprint_wrappers=1:nokey=1", src)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, fmt.Errorf("ffprobe %s: %w", src, ctxErr)
		}
		return 0, fmt.Errorf("ffprobe %s: %w, output: %s", src, err, strings.TrimSpace(string(out)))
	}

	return parseSeconds(string(out))
}

func parseSeconds(out string) (time.Duration, error) {
	secs, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", strings.TrimSpace(out), err)
	}
	if secs < 0 || math.IsNaN(secs) || math.IsInf(secs, 0) {
		return 0, fmt.Errorf("invalid duration %v", secs)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// Fixed reports the same duration for every source
type Fixed time.Duration

func (f Fixed) Duration(ctx context.Context, src string) (time.Duration, error) {
	return time.Duration(f), nil
}

// ErrUnavailable is returned by Failing
var ErrUnavailable = errors.New("media unavailable")

// Failing rejects every source
type Failing struct{}

func (Failing) Duration(ctx context.Context, src string) (time.Duration, error) {
	return 0, ErrUnavailable
}

// Resolve makes a script-relative media reference usable by a Prober.
// URLs and absolute paths pass through.
func Resolve(baseDir, ref string) string {
	if ref == "" || baseDir == "" {
		return ref
	}
	if strings.Contains(ref, "://") || filepath.IsAbs(ref) {
		return ref
	}
	return filepath.Join(baseDir, ref)
}
