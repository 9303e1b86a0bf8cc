package elog

import (
	"runtime"
	"strings"
	"sync"
)

var _unknownCaller = &callerInfo{
	file:     "unknown",
	function: "unknown",
}

type callerInfo struct {
	file     string
	function string
	line     int
}

// callerCache resolves program counters once.
type callerCache struct {
	m sync.Map
}

// lookup returns the caller skip frames above its own caller.
func (c *callerCache) lookup(skip int) *callerInfo {
	pc, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return _unknownCaller
	}
	if cached, found := c.m.Load(pc); found {
		return cached.(*callerInfo)
	}

	function := "unknown"
	if fn := runtime.FuncForPC(pc); fn != nil {
		function = fn.Name()
		if i := strings.LastIndexByte(function, '.'); i != -1 {
			function = function[i+1:]
		}
	}

	// keep the last directory and the file name
	if lastSlash := strings.LastIndexByte(file, '/'); lastSlash > 0 {
		if prev := strings.LastIndexByte(file[:lastSlash], '/'); prev >= 0 {
			file = file[prev+1:]
		}
	}

	info := &callerInfo{file: file, function: function, line: line}
	c.m.Store(pc, info)
	return info
}
