package engine

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// AccessLogEntry carries the fields a Common Log Format line needs.
type AccessLogEntry struct {
	RemoteIP  string
	Method    string
	URI       string
	ProtoVer  string
	Status    int
	UserAgent string
}

// FormatCommonLog renders one Common-Log-Format line (spec §6 "Log
// line") for entry at time when with bytesSent already counted.
func FormatCommonLog(entry AccessLogEntry, when time.Time, bytesSent int64) string {
	ua := entry.UserAgent
	if ua == "" {
		ua = "-"
	}
	return fmt.Sprintf(`%s - - [%s] "%s %s HTTP/%s" %d %d "-" "%s" "-"`,
		entry.RemoteIP,
		when.Format("02/Jan/2006:15:04:05 -0700"),
		entry.Method, entry.URI, entry.ProtoVer,
		entry.Status, bytesSent, ua,
	)
}

// CountingSink wraps an io.Writer, counting bytes written and invoking
// onDone exactly once at stream completion — either when Close is
// called (normal end-of-stream) or when the configured Content-Length
// is reached, whichever happens first. This is the Access Log Sink of
// §4.8: the only point downstream of compression/range transforms
// where the true transmitted byte count is known.
type CountingSink struct {
	w           io.Writer
	expectedLen int64 // -1 when unknown
	onDone      func(bytesSent int64)

	mu   sync.Mutex
	n    int64
	done bool
}

// NewCountingSink builds a sink. expectedLen is the announced
// Content-Length, or -1 if the response is unsized (e.g. compressed).
func NewCountingSink(w io.Writer, expectedLen int64, onDone func(bytesSent int64)) *CountingSink {
	return &CountingSink{w: w, expectedLen: expectedLen, onDone: onDone}
}

func (c *CountingSink) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.mu.Lock()
	c.n += int64(n)
	reached := c.expectedLen >= 0 && c.n >= c.expectedLen
	c.mu.Unlock()
	if reached {
		c.fire()
	}
	return n, err
}

// Close marks end-of-stream and fires onDone if it has not already
// fired (e.g. via Content-Length reached, or a client disconnect that
// still reaches Close in a deferred cleanup).
func (c *CountingSink) Close() error {
	c.fire()
	return nil
}

func (c *CountingSink) fire() {
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		return
	}
	c.done = true
	n := c.n
	c.mu.Unlock()
	if c.onDone != nil {
		c.onDone(n)
	}
}
