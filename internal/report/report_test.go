package report

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	NewLogSink(log).Report(slog.LevelWarn, "section skipped", "section", 3)
	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, `msg="section skipped"`)
	assert.Contains(t, out, "section=3")
}

func TestRecorderConcurrent(t *testing.T) {
	var r Recorder
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			level := slog.LevelInfo
			if i%2 == 0 {
				level = slog.LevelError
			}
			r.Report(level, "x")
		}()
	}
	wg.Wait()
	assert.Len(t, r.Entries(), 50)
	assert.Equal(t, 25, r.Count(slog.LevelError))
	assert.Equal(t, 50, r.Count(slog.LevelInfo))
}

func TestLogProgress(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	p := LogProgress(log, 10)
	for i := int64(1); i <= 25; i++ {
		p(i, 25)
	}
	lines := strings.Count(buf.String(), "msg=progress")
	assert.Equal(t, 3, lines) // 10, 20, 25
	assert.Contains(t, buf.String(), "percent=100.0")
}
