package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestLogBufferConcurrentAccess(t *testing.T) {
	spillFile := filepath.Join(t.TempDir(), "test_spill.log")

	buffer, err := NewLogBuffer(100, spillFile)
	if err != nil {
		t.Fatalf("Failed to create log buffer: %v", err)
	}
	defer buffer.Close()

	var wg sync.WaitGroup
	numGoroutines := 10
	logsPerGoroutine := 100

	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < logsPerGoroutine; j++ {
				fields := map[string]interface{}{"goroutine": id, "iteration": j}
				if err := buffer.Add("info", fmt.Sprintf("Log from goroutine %d, iteration %d", id, j), fields); err != nil {
					t.Errorf("Failed to add log: %v", err)
				}
			}
		}(i)
	}

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for i := 0; i < 20; i++ {
			_ = buffer.GetRecentLogs(10)
			_, _ = buffer.GetStats()
			time.Sleep(time.Millisecond)
		}
	}()

	wg.Wait()
	<-readDone

	if err := buffer.Flush(); err != nil {
		t.Errorf("Failed to flush: %v", err)
	}

	total, spilled := buffer.GetStats()
	expectedTotal := uint64(numGoroutines * logsPerGoroutine)
	if total != expectedTotal {
		t.Errorf("Expected %d total entries, got %d", expectedTotal, total)
	}
	if spilled != expectedTotal-100 {
		t.Errorf("Expected %d spilled entries, got %d", expectedTotal-100, spilled)
	}
	if _, err := os.Stat(spillFile); os.IsNotExist(err) {
		t.Error("Spill file should exist")
	}
}

func TestLogBufferRingBufferBehavior(t *testing.T) {
	bufferSize := 5
	buffer, err := NewLogBuffer(bufferSize, "")
	if err != nil {
		t.Fatalf("Failed to create log buffer: %v", err)
	}

	for i := 0; i < 10; i++ {
		if err := buffer.Add("info", fmt.Sprintf("Log %d", i), nil); err != nil {
			t.Errorf("Failed to add log: %v", err)
		}
	}

	logs := buffer.GetRecentLogs(10)
	if len(logs) != bufferSize {
		t.Fatalf("Expected %d logs in buffer, got %d", bufferSize, len(logs))
	}
	if logs[0].Message != "Log 5" {
		t.Errorf("Expected oldest log to be 'Log 5', got '%s'", logs[0].Message)
	}
	if last := logs[len(logs)-1]; last.Message != "Log 9" {
		t.Errorf("Expected last log to be 'Log 9', got '%s'", last.Message)
	}

	recent := buffer.GetRecentLogs(2)
	if len(recent) != 2 || recent[0].Message != "Log 8" || recent[1].Message != "Log 9" {
		t.Errorf("Unexpected tail: %+v", recent)
	}
}

func TestLogBufferPartial(t *testing.T) {
	buffer, err := NewLogBuffer(10, "")
	if err != nil {
		t.Fatalf("Failed to create log buffer: %v", err)
	}

	for i := 0; i < 3; i++ {
		_ = buffer.Add("info", fmt.Sprintf("Log %d", i), nil)
	}

	logs := buffer.GetRecentLogs(0)
	if len(logs) != 3 {
		t.Fatalf("Expected 3 logs, got %d", len(logs))
	}
	if logs[0].Message != "Log 0" {
		t.Errorf("Expected first log 'Log 0', got '%s'", logs[0].Message)
	}
}

func TestLogBufferAsZapSink(t *testing.T) {
	buffer, err := NewLogBuffer(20, "")
	if err != nil {
		t.Fatalf("Failed to create log buffer: %v", err)
	}

	log, err := New(&Config{Console: false}, buffer)
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	log.Named("monitor").Info("Snapshot refreshed", zap.String("symbol", "EOE"), zap.Int64("cost", 3))
	log.Debug("hidden at info level")

	logs := buffer.GetRecentLogs(0)
	if len(logs) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(logs))
	}
	entry := logs[0]
	if entry.Message != "Snapshot refreshed" || entry.Level != "info" || entry.Logger != "monitor" {
		t.Errorf("Unexpected entry: %+v", entry)
	}
	if entry.Fields["symbol"] != "EOE" {
		t.Errorf("Expected symbol field, got %v", entry.Fields)
	}
	if entry.Fields["cost"] != float64(3) {
		t.Errorf("Expected cost field 3, got %v", entry.Fields["cost"])
	}
}

func TestFormatMessage(t *testing.T) {
	got := FormatMessage("Profit opportunity", zap.String("symbol", "BTB"), zap.Float64("margin", 12.5))
	if got != ColorGreen+ColorBold+"▲ BTB minting is profitable (12.50%)"+ColorReset {
		t.Errorf("Unexpected message: %q", got)
	}
	if FormatMessage("something else") != "something else" {
		t.Error("Unknown messages must pass through")
	}
	if ShortenAddress("0xa7b295c715713487877427589a93f93bc608d240") != "0xa7b2...d240" {
		t.Error("Unexpected short address")
	}
}
