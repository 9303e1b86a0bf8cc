package elog

import "strings"

// Level is a log severity. Lower values are more severe, so a logger
// prints every level less than or equal to its filter level.
type Level int8

const (
	// AssertLevel marks broken invariants.
	AssertLevel Level = iota
	// ErrorLevel marks failed operations.
	ErrorLevel
	// WarnLevel marks recoverable trouble.
	WarnLevel
	// InfoLevel marks normal lifecycle events.
	InfoLevel
	// DebugLevel carries diagnostic detail.
	DebugLevel
	// VerboseLevel carries everything else.
	VerboseLevel

	_levelCount = int(VerboseLevel) + 1
)

var _levelLetters = [_levelCount]string{"A", "E", "W", "I", "D", "V"}

// String returns the upper-case level name.
func (l Level) String() string {
	switch l {
	case AssertLevel:
		return "ASSERT"
	case ErrorLevel:
		return "ERROR"
	case WarnLevel:
		return "WARN"
	case InfoLevel:
		return "INFO"
	case DebugLevel:
		return "DEBUG"
	case VerboseLevel:
		return "VERBOSE"
	default:
		return "UNKNOWN"
	}
}

// Letter returns the one-letter tag printed in front of a line.
func (l Level) Letter() string {
	if !l.valid() {
		return "?"
	}
	return _levelLetters[l]
}

func (l Level) valid() bool {
	return l >= AssertLevel && l <= VerboseLevel
}

// ParseLevel converts a level name, case-insensitively. Unknown names map to
// VerboseLevel so nothing is filtered by accident.
func ParseLevel(s string) Level {
	lv, _ := levelByName(s)
	return lv
}

// LookupLevel is ParseLevel that reports whether s named a level.
func LookupLevel(s string) (Level, bool) {
	return levelByName(s)
}

func levelByName(s string) (Level, bool) {
	switch strings.ToUpper(s) {
	case "ASSERT", "A":
		return AssertLevel, true
	case "ERROR", "E":
		return ErrorLevel, true
	case "WARN", "W":
		return WarnLevel, true
	case "INFO", "I":
		return InfoLevel, true
	case "DEBUG", "D":
		return DebugLevel, true
	case "VERBOSE", "V":
		return VerboseLevel, true
	}
	return VerboseLevel, false
}
