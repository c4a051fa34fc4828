//go:build darwin

package syncwait

import "syscall"

// Flag bits from <sys/stat.h>. UF_COMPRESSED marks files whose content is
// held by the filesystem elsewhere (APFS uses it for evicted cloud items),
// SF_DATALESS marks dataless firmlink targets on newer macOS releases.
const (
	ufCompressed = 0x00000020
	sfDataless   = 0x40000000
)

// statSignals extracts the remote-content flag and allocated block count from
// a raw stat. ok is false when the snapshot carries no usable syscall data.
func statSignals(sys any) (flagged bool, blocks int64, ok bool) {
	stat, isStat := sys.(*syscall.Stat_t)
	if !isStat {
		return false, 0, false
	}
	flagged = stat.Flags&(ufCompressed|sfDataless) != 0
	return flagged, stat.Blocks, true
}
