package elog

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
)

// Event is one log line under construction. Every method is nil-safe so a
// filtered-out event costs a pointer check per call.
type Event struct {
	logger *Logger
	level  Level
	ctx    context.Context
	caller *callerInfo
	msg    string
	fields bytes.Buffer
	line   bytes.Buffer
}

func (e *Event) reset(level Level) {
	e.level = level
	e.ctx = nil
	e.caller = nil
	e.msg = ""
	e.fields.Reset()
	e.line.Reset()
}

// Ctx attaches the context whose task the process info is resolved from.
func (e *Event) Ctx(ctx context.Context) *Event {
	if e == nil {
		return nil
	}
	e.ctx = ctx
	return e
}

// Str appends a string field.
func (e *Event) Str(k, v string) *Event {
	if e == nil {
		return nil
	}
	appendField(&e.fields, k, v)
	return e
}

// Int appends an integer field.
func (e *Event) Int(k string, v int) *Event {
	if e == nil {
		return nil
	}
	appendField(&e.fields, k, strconv.Itoa(v))
	return e
}

// Uint32 appends an unsigned field.
func (e *Event) Uint32(k string, v uint32) *Event {
	if e == nil {
		return nil
	}
	appendField(&e.fields, k, strconv.FormatUint(uint64(v), 10))
	return e
}

// Bool appends a boolean field.
func (e *Event) Bool(k string, v bool) *Event {
	if e == nil {
		return nil
	}
	appendField(&e.fields, k, strconv.FormatBool(v))
	return e
}

// Err appends the error under key "error".
func (e *Event) Err(err error) *Event {
	if e == nil {
		return nil
	}
	if err == nil {
		appendField(&e.fields, "error", "nil")
		return e
	}
	appendField(&e.fields, "error", err.Error())
	return e
}

// Msg sets the message and writes the line.
func (e *Event) Msg(msg string) {
	if e == nil {
		return
	}
	e.msg = msg
	e.logger.write(e)
}

// Msgf formats the message and writes the line.
func (e *Event) Msgf(format string, args ...any) {
	if e == nil {
		return
	}
	e.Msg(fmt.Sprintf(format, args...))
}

// Send writes the line without a message.
func (e *Event) Send() {
	e.Msg("")
}
