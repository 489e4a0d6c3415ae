package settings

const CmdName = "gptimer"

const (
	DefaultReportID    = 0
	DefaultSummaryFile = "timing.summary"
)
