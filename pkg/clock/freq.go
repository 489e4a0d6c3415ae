package clock

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	maxFreqPath = "/sys/devices/system/cpu/cpu0/cpufreq/cpuinfo_max_freq"
	cpuinfoPath = "/proc/cpuinfo"
)

// clockFreq returns the CPU clock frequency in MHz and the file it came
// from. cpuinfo_max_freq is preferred: /proc/cpuinfo may report a wrong
// rate on CPUs with idle or turbo modes.
func clockFreq() (float64, string, error) {
	if f, err := os.Open(maxFreqPath); err == nil {
		mhz, perr := parseMaxFreq(f)
		f.Close()
		if perr == nil {
			return mhz, maxFreqPath, nil
		}
	}

	f, err := os.Open(cpuinfoPath)
	if err != nil {
		return 0, "", errors.Wrapf(err, "open %s", cpuinfoPath)
	}
	defer f.Close()

	mhz, err := parseCPUInfo(f)
	if err != nil {
		return 0, "", err
	}

	return mhz, cpuinfoPath, nil
}

// parseMaxFreq reads a cpuinfo_max_freq value (kHz) and converts to MHz.
func parseMaxFreq(r io.Reader) (float64, error) {
	s := bufio.NewScanner(r)
	if !s.Scan() {
		return 0, errors.New("empty cpuinfo_max_freq")
	}
	khz, err := strconv.ParseFloat(strings.TrimSpace(s.Text()), 64)
	if err != nil {
		return 0, errors.Wrap(err, "parse cpuinfo_max_freq")
	}
	if khz <= 0 {
		return 0, errors.Errorf("non-positive frequency %g", khz)
	}

	return khz * 0.001, nil
}

// parseCPUInfo scans /proc/cpuinfo for the first "cpu MHz" line.
func parseCPUInfo(r io.Reader) (float64, error) {
	s := bufio.NewScanner(r)
	for s.Scan() {
		line := s.Text()
		if !strings.HasPrefix(line, "cpu MHz") {
			continue
		}
		_, val, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		mhz, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil || mhz <= 0 {
			continue
		}

		return mhz, nil
	}

	return 0, errors.New("no usable cpu MHz line in cpuinfo")
}
