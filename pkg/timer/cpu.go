package timer

import (
	"golang.org/x/sys/unix"
)

// cpuStamp samples accumulated user and system CPU time for the process,
// in microseconds.
func cpuStamp() (usr, sys int64, err error) {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return 0, 0, err
	}

	usr = int64(ru.Utime.Sec)*1000000 + int64(ru.Utime.Usec)
	sys = int64(ru.Stime.Sec)*1000000 + int64(ru.Stime.Usec)

	return usr, sys, nil
}
