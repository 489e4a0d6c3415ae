package timer

import (
	"github.com/maxgio92/gptimer/pkg/clock"
)

// Default is the process-global profiler used by instrumentation macros
// and the package-level helpers below. Libraries that need isolation
// instantiate their own Profiler instead.
var Default = New()

func SetOption(option Option, val int) error { return Default.SetOption(option, val) }

func SetTimeSource(src clock.Source) error { return Default.SetTimeSource(src) }

func Initialize() error { return Default.Initialize() }

func Finalize() error { return Default.Finalize() }

func Enable() { Default.Enable() }

func Disable() { Default.Disable() }

func Reset() error { return Default.Reset() }

func IsInitialized() bool { return Default.IsInitialized() }

func Start(name string) error { return Default.Start(name) }

func Stop(name string) error { return Default.Stop(name) }

func StartHandle(name string, h *Handle) error { return Default.StartHandle(name, h) }

func StopHandle(name string, h *Handle) error { return Default.StopHandle(name, h) }

func StartInstr(addr uintptr) error { return Default.StartInstr(addr) }

func StopInstr(addr uintptr) error { return Default.StopInstr(addr) }

func Pr(id int) error { return Default.Pr(id) }

func PrFile(path string) error { return Default.PrFile(path) }

func PrSummary(path string) error { return Default.PrSummary(path) }
