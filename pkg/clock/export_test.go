package clock

var (
	ParseMaxFreq = parseMaxFreq
	ParseCPUInfo = parseCPUInfo
)
