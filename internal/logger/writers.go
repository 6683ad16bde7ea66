package logger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
)

// JournalOptions tunes when a CSVJournal flushes.
type JournalOptions struct {
	// FlushInterval flushes buffered rows periodically. Zero disables it.
	FlushInterval time.Duration
	// MaxPending flushes once this many rows are buffered. Zero means 1.
	MaxPending int
}

// CSVJournal appends rows to a CSV file from many goroutines. A file whose
// first row does not match the header is moved aside and started fresh.
type CSVJournal struct {
	mu      sync.Mutex
	writer  *csv.Writer
	file    *os.File
	opts    JournalOptions
	path    string
	done    chan struct{}
	stopped sync.WaitGroup
	logger  *zap.Logger

	pending  int
	appended uint64
	flushes  uint64
}

// OpenCSVJournal opens path for append, writing header when the file is new.
func OpenCSVJournal(path string, header []string, opts JournalOptions, logger *zap.Logger) (*CSVJournal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}
	if opts.MaxPending <= 0 {
		opts.MaxPending = 1
	}

	if err := rotateOnHeaderChange(path, header, logger); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat journal: %w", err)
	}

	j := &CSVJournal{
		writer: csv.NewWriter(file),
		file:   file,
		opts:   opts,
		path:   path,
		done:   make(chan struct{}),
		logger: logger,
	}

	if stat.Size() == 0 && len(header) > 0 {
		if err := j.writer.Write(header); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
		j.writer.Flush()
	}

	if opts.FlushInterval > 0 {
		j.stopped.Add(1)
		go j.flushLoop()
	}
	return j, nil
}

// rotateOnHeaderChange renames an existing journal written with another
// header to path.<unix>.old.
func rotateOnHeaderChange(path string, header []string, logger *zap.Logger) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	first, err := csv.NewReader(f).Read()
	f.Close()
	if errors.Is(err, io.EOF) || slices.Equal(first, header) {
		return nil
	}

	old := fmt.Sprintf("%s.%d.old", path, time.Now().Unix())
	if err := os.Rename(path, old); err != nil {
		return fmt.Errorf("failed to move old journal aside: %w", err)
	}
	logger.Warn("Journal header changed, started a new file",
		zap.String("file", path),
		zap.String("old", old))
	return nil
}

// Append writes one row, flushing when MaxPending rows are buffered.
func (j *CSVJournal) Append(row []string) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.writer.Write(row); err != nil {
		return fmt.Errorf("failed to append row: %w", err)
	}
	j.appended++
	j.pending++
	if j.pending >= j.opts.MaxPending {
		return j.flushLocked()
	}
	return nil
}

// Flush writes buffered rows to disk.
func (j *CSVJournal) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.flushLocked()
}

func (j *CSVJournal) flushLocked() error {
	if j.pending == 0 {
		return nil
	}
	j.writer.Flush()
	if err := j.writer.Error(); err != nil {
		return fmt.Errorf("CSV writer error: %w", err)
	}
	j.pending = 0
	j.flushes++
	return nil
}

func (j *CSVJournal) flushLoop() {
	defer j.stopped.Done()
	ticker := time.NewTicker(j.opts.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := j.Flush(); err != nil {
				j.logger.Error("Periodic journal flush failed",
					zap.String("file", j.path),
					zap.Error(err))
			}
		case <-j.done:
			return
		}
	}
}

// Close flushes and closes the file.
func (j *CSVJournal) Close() error {
	close(j.done)
	j.stopped.Wait()

	j.mu.Lock()
	defer j.mu.Unlock()

	flushErr := j.flushLocked()
	if err := j.file.Close(); err != nil {
		return fmt.Errorf("failed to close journal: %w", err)
	}
	j.logger.Debug("Journal closed",
		zap.String("file", j.path),
		zap.Uint64("rows", j.appended),
		zap.Uint64("flushes", j.flushes))
	return flushErr
}

// Stats returns how many rows were appended and how many flushes happened.
func (j *CSVJournal) Stats() (rows, flushes uint64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.appended, j.flushes
}
