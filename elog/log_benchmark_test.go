package elog

import (
	"io"
	"testing"

	"github.com/linchenxuan/elogport/port"
)

func newBenchLogger(b *testing.B, f Fmt) *Logger {
	backend := port.NewBackend(port.DefaultCfg(), port.WithChannel(port.NewWriterChannel("bench", io.Discard)))
	l, err := NewLogger(&LogCfg{Tag: "bench"}, backend)
	if err != nil {
		b.Fatalf("Failed to create logger: %v", err)
	}
	if res := l.Init(); res != port.NoErr {
		b.Fatalf("Backend init failed: %s", res)
	}
	for lv := AssertLevel; lv <= VerboseLevel; lv++ {
		l.SetFmt(lv, f)
	}
	l.Start()
	return l
}

// BenchmarkLoggingContended measures parallel writers sharing one backend mutex.
func BenchmarkLoggingContended(b *testing.B) {
	l := newBenchLogger(b, FmtLvl|FmtTag|FmtTime|FmtPInfo)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			l.Info().Int("n", 42).Msg("benchmark message")
		}
	})
}

// BenchmarkLoggingWithCaller adds caller resolution to every line.
func BenchmarkLoggingWithCaller(b *testing.B) {
	l := newBenchLogger(b, FmtAll)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			l.Info().Msg("benchmark message")
		}
	})
}

// BenchmarkFilteredOut measures a call below the filter level.
func BenchmarkFilteredOut(b *testing.B) {
	l := newBenchLogger(b, FmtAll)
	l.SetFilterLevel(ErrorLevel)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		l.Debug().Int("n", i).Msg("dropped")
	}
}
