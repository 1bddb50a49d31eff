package printing

import "fmt"

// Normalized printer status values. Windows maps its numeric spooler
// status through this table; CUPS backends only ever report the
// enabled/disabled pair and otherwise leave status empty.
const (
	StatusReady            = "ready"
	StatusPaused           = "paused"
	StatusError            = "error"
	StatusDeleting         = "deleting"
	StatusPaperJam         = "paper-jam"
	StatusOutOfPaper       = "out-of-paper"
	StatusManualFeed       = "manual-feed"
	StatusPaperProblem     = "paper-problem"
	StatusOffline          = "offline"
	StatusIOActive         = "io-active"
	StatusBusy             = "busy"
	StatusPrinting         = "printing"
	StatusOutputBinFull    = "output-bin-full"
	StatusUnavailable      = "unavailable"
	StatusWaiting          = "waiting"
	StatusProcessing       = "processing"
	StatusInitializing     = "initializing"
	StatusWarmingUp        = "warming-up"
	StatusTonerLow         = "toner-low"
	StatusNoToner          = "no-toner"
	StatusPageError        = "page-error"
	StatusUserIntervention = "user-intervention"
	StatusOutOfMemory      = "out-of-memory"
	StatusDoorOpen         = "door-open"
	StatusUnknown          = "unknown"
)

var statusByCode = [...]string{
	StatusReady,
	StatusPaused,
	StatusError,
	StatusDeleting,
	StatusPaperJam,
	StatusOutOfPaper,
	StatusManualFeed,
	StatusPaperProblem,
	StatusOffline,
	StatusIOActive,
	StatusBusy,
	StatusPrinting,
	StatusOutputBinFull,
	StatusUnavailable,
	StatusWaiting,
	StatusProcessing,
	StatusInitializing,
	StatusWarmingUp,
	StatusTonerLow,
	StatusNoToner,
	StatusPageError,
	StatusUserIntervention,
	StatusOutOfMemory,
	StatusDoorOpen,
}

// StatusFromCode normalizes a Windows spooler status code. Unrecognized
// codes come back as "unknown"; callers keep the raw code for
// diagnostics.
func StatusFromCode(code uint32) string {
	if int(code) < len(statusByCode) {
		return statusByCode[code]
	}
	return StatusUnknown
}

// StatusDescription is StatusFromCode plus the raw code for log lines.
func StatusDescription(code uint32) string {
	s := StatusFromCode(code)
	if s == StatusUnknown {
		return fmt.Sprintf("%s(%d)", s, code)
	}
	return s
}
