package workspace

import (
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"

	"github.com/faughnn/factreel/internal/core"
)

const gb = 1024 * 1024 * 1024

// RequireFreeSpace checks that at least gbNeeded gigabytes are free at
// path, invoked by the orchestrator before stage 1 (media extraction) so a
// download doesn't fail halfway through for lack of disk space.
func RequireFreeSpace(path string, gbNeeded int, logger *zerolog.Logger) error {
	usage, err := disk.Usage(path)
	if err != nil {
		return &core.IOError{Op: "disk-usage", Path: path, Err: err}
	}

	availableGB := float64(usage.Free) / float64(gb)
	if usage.Free < uint64(gbNeeded)*gb {
		return &core.InputError{Detail: "insufficient disk space at " + path}
	}

	if logger != nil {
		logger.Debug().
			Str("path", path).
			Float64("available_gb", availableGB).
			Int("required_gb", gbNeeded).
			Msg("disk space check passed")
	}
	return nil
}
