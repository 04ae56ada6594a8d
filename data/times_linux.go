package data

import (
	"io/fs"
	"syscall"
	"time"
)

// fileTimes reads the access time from the stat buffer. Linux stat(2) has no
// birth time, so created stays unset.
func fileTimes(info fs.FileInfo) (created, accessed *time.Time) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return nil, nil
	}
	return nil, optionalTime(time.Unix(st.Atim.Unix()))
}
