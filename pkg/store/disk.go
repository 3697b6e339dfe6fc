package store

import (
	"fmt"
	"log/slog"
)

// DiskSpaceInfo describes the filesystem holding the vault.
type DiskSpaceInfo struct {
	Total     uint64 `json:"total"`     // Total disk space in bytes
	Free      uint64 `json:"free"`      // Free disk space in bytes
	Available uint64 `json:"available"` // Available to non-root users
	UsedPct   int    `json:"used_pct"`  // Percentage of disk used
}

// checkDiskSpaceForWrite refuses a write when fewer than MinDiskSpaceBytes
// (or twice the payload) are available. Failure to stat the disk is logged
// and does not block the write.
func checkDiskSpaceForWrite(path string, dataSize int, logger *slog.Logger) error {
	info, err := CheckDiskSpace(path)
	if err != nil {
		logger.Warn("failed to check disk space", "error", err)
		return nil
	}

	required := max(uint64(MinDiskSpaceBytes), uint64(dataSize)*2)
	if info.Available < required {
		return fmt.Errorf("%w: only %d MB available, need at least %d MB",
			ErrInsufficientDisk,
			info.Available/(1024*1024),
			required/(1024*1024))
	}

	if info.UsedPct >= DiskWarningPercent {
		logger.Warn("disk almost full, consider freeing space", "used_pct", info.UsedPct)
	}
	return nil
}
