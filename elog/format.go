package elog

import (
	"bytes"
	"strconv"
	"strings"
)

// Fmt selects the fields printed in front of a message.
type Fmt uint16

const (
	// FmtLvl prints the level letter.
	FmtLvl Fmt = 1 << iota
	// FmtTag prints the logger tag.
	FmtTag
	// FmtTime prints the backend time.
	FmtTime
	// FmtPInfo prints the backend process info.
	FmtPInfo
	// FmtTInfo prints the backend thread info.
	FmtTInfo
	// FmtDir prints the caller file.
	FmtDir
	// FmtFunc prints the caller function.
	FmtFunc
	// FmtLine prints the caller line.
	FmtLine

	// FmtAll prints every field.
	FmtAll = FmtLvl | FmtTag | FmtTime | FmtPInfo | FmtTInfo | FmtDir | FmtFunc | FmtLine
)

// Has reports whether every flag of o is set in f.
func (f Fmt) Has(o Fmt) bool {
	return f&o == o
}

func (f Fmt) wantsCaller() bool {
	return f&(FmtDir|FmtFunc|FmtLine) != 0
}

// ParseFmt converts a list such as "lvl|tag|time" into flags. "all" selects
// every field; unknown names are ignored.
func ParseFmt(s string) Fmt {
	var f Fmt
	for _, part := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return r == '|' || r == ',' || r == ' '
	}) {
		switch part {
		case "all":
			f |= FmtAll
		case "lvl":
			f |= FmtLvl
		case "tag":
			f |= FmtTag
		case "time":
			f |= FmtTime
		case "pinfo":
			f |= FmtPInfo
		case "tinfo":
			f |= FmtTInfo
		case "dir":
			f |= FmtDir
		case "func":
			f |= FmtFunc
		case "line":
			f |= FmtLine
		}
	}
	return f
}

// header carries the values a line prefix is built from.
type header struct {
	level  Level
	tag    string
	time   string
	pinfo  string
	tinfo  string
	caller *callerInfo
}

// appendHeader writes the prefix selected by f:
//
//	L/tag [time pinfo tinfo] (file:line func)
func appendHeader(buf *bytes.Buffer, f Fmt, h *header) {
	if f.Has(FmtLvl) {
		buf.WriteString(h.level.Letter())
		buf.WriteByte('/')
	}
	if f.Has(FmtTag) {
		buf.WriteString(h.tag)
		buf.WriteByte(' ')
	} else if f.Has(FmtLvl) {
		buf.WriteByte(' ')
	}

	if f&(FmtTime|FmtPInfo|FmtTInfo) != 0 {
		buf.WriteByte('[')
		sep := false
		for _, field := range []struct {
			on  bool
			val string
		}{
			{f.Has(FmtTime), h.time},
			{f.Has(FmtPInfo), h.pinfo},
			{f.Has(FmtTInfo), h.tinfo},
		} {
			if !field.on {
				continue
			}
			if sep {
				buf.WriteByte(' ')
			}
			buf.WriteString(field.val)
			sep = true
		}
		buf.WriteString("] ")
	}

	if f.wantsCaller() && h.caller != nil {
		buf.WriteByte('(')
		if f.Has(FmtDir) {
			buf.WriteString(h.caller.file)
			if f.Has(FmtLine) {
				buf.WriteByte(':')
			}
		}
		if f.Has(FmtLine) {
			buf.WriteString(strconv.Itoa(h.caller.line))
		}
		if f.Has(FmtFunc) {
			if f&(FmtDir|FmtLine) != 0 {
				buf.WriteByte(' ')
			}
			buf.WriteString(h.caller.function)
		}
		buf.WriteString(") ")
	}
}

// appendField writes " key=value", quoting values that contain spaces.
func appendField(buf *bytes.Buffer, key, val string) {
	buf.WriteByte(' ')
	buf.WriteString(key)
	buf.WriteByte('=')
	if val == "" || strings.ContainsAny(val, " \t\n\"=") {
		buf.WriteString(strconv.Quote(val))
		return
	}
	buf.WriteString(val)
}
