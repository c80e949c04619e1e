package reach

import (
	"strconv"

	"github.com/reach-iot/reach-go/reach/wire"
)

// reportError is the single reporting point (C10 report_error): it
// always logs locally, then surfaces to the wire according to the
// configured ErrorProfile, either as the response to the prompt in
// flight (async=false) or as an out-of-band notification (async=true,
// e.g. from the notification scan).
func (e *Engine) reportError(code Code, msg string, async bool) {
	e.errorsReported.Inc(1)
	e.log.Warnf("%s: %s", code, msg)

	switch e.cfg.ErrorReportFormat {
	case ErrorLogOnly:
		return
	case ErrorShort:
		e.emit(wire.MsgErrorReport, &wire.ErrorReport{
			ResultValue: uint32(code),
			Message:     "Error " + strconv.Itoa(int(code)) + ".",
		}, async)
	case ErrorFull:
		m := msg
		if len(m) > BytesInAFilePacket-1 {
			m = m[:BytesInAFilePacket-1]
		}
		e.emit(wire.MsgErrorReport, &wire.ErrorReport{
			ResultValue: uint32(code),
			Message:     m,
		}, async)
	}
	if !async {
		e.reportedForPrompt = true
	}
}

// reportErrorAsync is the entry point used by the notification scan,
// which runs outside of any in-flight prompt. Watchdog expiry in Process
// only logs a warning.
func (e *Engine) reportErrorAsync(code Code, format string, args ...any) {
	e.reportError(code, NewError(code, format, args...).Msg, true)
}
