// Package runlog appends run reports to date-organized JSONL files.
package runlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgnsrekt/tab_grouper/internal/types"
	"gopkg.in/natefinch/lumberjack.v2"
)

const fileName = "runs.jsonl"

var (
	ErrClosed     = errors.New("runlog: writer is closed")
	ErrBufferFull = errors.New("runlog: buffer full")
)

// Writer queues reports and writes them on a background goroutine. The log
// is never read back by the controller.
type Writer struct {
	baseDir   string
	maxSizeMB int

	writeCh   chan types.RunReport
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	mu          sync.Mutex
	currentDate string
	logger      *lumberjack.Logger
	now         func() time.Time
}

// New starts a writer rooted at baseDir.
func New(baseDir string, bufferSize, maxSizeMB int) *Writer {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	if maxSizeMB <= 0 {
		maxSizeMB = 50
	}
	w := &Writer{
		baseDir:   baseDir,
		maxSizeMB: maxSizeMB,
		writeCh:   make(chan types.RunReport, bufferSize),
		done:      make(chan struct{}),
		now:       time.Now,
	}
	w.wg.Add(1)
	go w.writeLoop()
	return w
}

// Record queues a report without blocking.
func (w *Writer) Record(report types.RunReport) error {
	select {
	case <-w.done:
		return ErrClosed
	default:
	}
	select {
	case w.writeCh <- report:
		return nil
	default:
		slog.Warn("runlog buffer full, dropping report", "run_id", report.RunID)
		return ErrBufferFull
	}
}

// Close flushes queued reports and closes the current file.
func (w *Writer) Close() error {
	w.closeOnce.Do(func() { close(w.done) })
	w.wg.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.logger != nil {
		err := w.logger.Close()
		w.logger = nil
		return err
	}
	return nil
}

func (w *Writer) writeLoop() {
	defer w.wg.Done()
	for {
		select {
		case report := <-w.writeCh:
			w.write(report)
		case <-w.done:
			for {
				select {
				case report := <-w.writeCh:
					w.write(report)
				default:
					return
				}
			}
		}
	}
}

func (w *Writer) write(report types.RunReport) {
	data, err := json.Marshal(report)
	if err != nil {
		slog.Error("runlog marshal failed", "run_id", report.RunID, "error", err)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	date := w.now().UTC().Format("2006-01-02")
	if w.logger == nil || date != w.currentDate {
		if err := w.rotateForDate(date); err != nil {
			slog.Error("runlog open failed", "error", err)
			return
		}
	}
	if _, err := w.logger.Write(append(data, '\n')); err != nil {
		slog.Error("runlog write failed", "run_id", report.RunID, "error", err)
	}
}

func (w *Writer) rotateForDate(date string) error {
	if w.logger != nil {
		_ = w.logger.Close()
		w.logger = nil
	}
	dir := filepath.Join(w.baseDir, date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	w.logger = &lumberjack.Logger{
		Filename:   filepath.Join(dir, fileName),
		MaxSize:    w.maxSizeMB,
		MaxBackups: 30,
		MaxAge:     30,
	}
	w.currentDate = date
	slog.Debug("runlog opened", "file", w.logger.Filename)
	return nil
}

// Path returns the file reports for the given date are written to.
func Path(baseDir string, day time.Time) string {
	return filepath.Join(baseDir, day.UTC().Format("2006-01-02"), fileName)
}
