//go:build amd64

package clock

const tscSupported = true

// rdtsc reads the time stamp counter. Implemented in tsc_amd64.s.
func rdtsc() uint64
