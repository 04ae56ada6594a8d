package data

import (
	"io/fs"
	"syscall"
	"time"
)

func fileTimes(info fs.FileInfo) (created, accessed *time.Time) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return nil, nil
	}
	return optionalTime(time.Unix(st.Birthtimespec.Unix())), optionalTime(time.Unix(st.Atimespec.Unix()))
}
