package elog

import (
	"sync/atomic"

	"github.com/linchenxuan/elogport/port"
)

var _defaultLogger atomic.Pointer[Logger]

func init() {
	// The package default writes to the port default backend and is running
	// from the start so diagnostics are never lost before GlobalInit.
	l, err := NewLogger(getDefaultCfg(), port.Default())
	if err != nil {
		panic(err)
	}
	l.SetFmt(DebugLevel, FmtLvl|FmtTag|FmtTime)
	l.SetFmt(VerboseLevel, FmtLvl|FmtTag|FmtTime)
	l.Start()
	_defaultLogger.Store(l)
}

// Default returns the package-level logger.
func Default() *Logger {
	return _defaultLogger.Load()
}

// SetDefaultLogger replaces the package-level logger.
func SetDefaultLogger(l *Logger) {
	_defaultLogger.Store(l)
}

// GlobalInit builds the package-level logger over hooks and boots it:
// initialise the backend, print every field at assert level and level, tag,
// time and process info at every other level, then start output. Formats in
// cfg override those defaults.
func GlobalInit(cfg *LogCfg, hooks port.Hooks) (*Logger, port.Result, error) {
	l, err := NewLogger(cfg, hooks)
	if err != nil {
		return nil, port.NoErr, err
	}
	res := l.Init()

	l.SetFmt(AssertLevel, FmtAll)
	for _, lv := range []Level{ErrorLevel, WarnLevel, InfoLevel, DebugLevel, VerboseLevel} {
		l.SetFmt(lv, FmtLvl|FmtTag|FmtTime|FmtPInfo)
	}
	if cfg != nil {
		for name, f := range cfg.Formats {
			l.SetFmt(ParseLevel(name), ParseFmt(f))
		}
	}

	l.Start()
	SetDefaultLogger(l)
	return l, res, nil
}

// Assert creates an assert-level event on the default logger.
func Assert() *Event { return Default().log(AssertLevel) }

// Error creates an error-level event on the default logger.
func Error() *Event { return Default().log(ErrorLevel) }

// Warn creates a warn-level event on the default logger.
func Warn() *Event { return Default().log(WarnLevel) }

// Info creates an info-level event on the default logger.
func Info() *Event { return Default().log(InfoLevel) }

// Debug creates a debug-level event on the default logger.
func Debug() *Event { return Default().log(DebugLevel) }

// Verbose creates a verbose-level event on the default logger.
func Verbose() *Event { return Default().log(VerboseLevel) }
