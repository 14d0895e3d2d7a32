package loki

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	pushPath      = "/loki/api/v1/push"
	flushAt       = 20
	flushInterval = time.Second
)

var DroppedLines = promauto.NewCounter(prometheus.CounterOpts{
	Name: "loki_dropped_log_lines_total",
	Help: "Log lines that could not be pushed to Loki",
})

// Writer buffers log lines and ships them to Loki's push API in batches.
type Writer struct {
	url     string
	labels  map[string]string
	client  *http.Client
	mu      sync.Mutex
	buf     []entry
	ticker  *time.Ticker
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

type entry struct {
	ts   string
	line string
}

type pushRequest struct {
	Streams []stream `json:"streams"`
}

type stream struct {
	Stream map[string]string `json:"stream"`
	Values [][]string        `json:"values"`
}

// NewWriter returns nil when url or job is empty so callers can skip it.
func NewWriter(url string, job string) *Writer {
	if url == "" || job == "" {
		return nil
	}
	w := &Writer{
		url:     strings.TrimSuffix(url, "/") + pushPath,
		labels:  map[string]string{"job": job},
		client:  &http.Client{Timeout: 5 * time.Second},
		buf:     make([]entry, 0, 64),
		ticker:  time.NewTicker(flushInterval),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go w.flushLoop()
	return w
}

// Write implements io.Writer; each non-empty line becomes one Loki entry.
func (w *Writer) Write(p []byte) (int, error) {
	for _, line := range bytes.Split(p, []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		w.mu.Lock()
		w.buf = append(w.buf, entry{
			ts:   strconv.FormatInt(time.Now().UnixNano(), 10),
			line: string(line),
		})
		needFlush := len(w.buf) >= flushAt
		w.mu.Unlock()
		if needFlush {
			w.flush()
		}
	}
	return len(p), nil
}

func (w *Writer) flushLoop() {
	defer close(w.stopped)
	for {
		select {
		case <-w.done:
			return
		case <-w.ticker.C:
			w.flush()
		}
	}
}

func (w *Writer) flush() {
	w.mu.Lock()
	if len(w.buf) == 0 {
		w.mu.Unlock()
		return
	}
	entries := w.buf
	w.buf = make([]entry, 0, 64)
	w.mu.Unlock()

	values := make([][]string, len(entries))
	for i, e := range entries {
		values[i] = []string{e.ts, e.line}
	}
	raw, err := sonic.Marshal(pushRequest{Streams: []stream{{Stream: w.labels, Values: values}}})
	if err != nil {
		w.drop(len(entries), err)
		return
	}
	req, err := http.NewRequest(http.MethodPost, w.url, bytes.NewReader(raw))
	if err != nil {
		w.drop(len(entries), err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.client.Do(req)
	if err != nil {
		w.drop(len(entries), err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		w.drop(len(entries), fmt.Errorf("loki returned status %d", resp.StatusCode))
	}
}

// drop must not log through logrus: the line would land back in this writer.
func (w *Writer) drop(lines int, err error) {
	DroppedLines.Add(float64(lines))
	fmt.Fprintf(os.Stderr, "loki: dropped %d log lines: %v\n", lines, err)
}

// Close flushes what is left and stops the background flusher.
func (w *Writer) Close() error {
	w.once.Do(func() {
		w.ticker.Stop()
		close(w.done)
		<-w.stopped
		w.flush()
	})
	return nil
}
