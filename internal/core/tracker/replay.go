package tracker

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/bytedance/sonic"
	"github.com/fsnotify/fsnotify"

	"github.com/flowpulse/flowpulse/internal/core/model"
	"github.com/flowpulse/flowpulse/internal/util"
)

// ReplayReader streams line-delimited JSON browser signals from a recorded
// signal log into a Tracker. Invalid lines are skipped, not fatal.
type ReplayReader struct {
	tracker *Tracker
}

// NewReplayReader creates a reader feeding the given tracker.
func NewReplayReader(t *Tracker) *ReplayReader {
	return &ReplayReader{tracker: t}
}

// Replay reads every signal currently in r and applies it. It returns the
// number of signals applied.
func (rr *ReplayReader) Replay(r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	applied := 0
	lineCount := 0
	for scanner.Scan() {
		lineCount++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var signal model.BrowserSignal
		if err := sonic.Unmarshal(line, &signal); err != nil {
			util.LogDebugf("skip invalid signal line %d: %v", lineCount, err)
			continue
		}
		rr.tracker.Apply(signal)
		applied++
	}
	if err := scanner.Err(); err != nil {
		return applied, fmt.Errorf("scan signal stream: %w", err)
	}
	return applied, nil
}

// ReplayFile replays all signals in the file at path.
func (rr *ReplayReader) ReplayFile(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open signal file: %w", err)
	}
	defer file.Close()
	return rr.Replay(file)
}

// replayComplete applies every newline-terminated signal in file starting at
// offset and returns the offset just past the last complete line. A partial
// trailing line is left unread so the finished line is picked up whole on the
// next pass.
func (rr *ReplayReader) replayComplete(file *os.File, offset int64) (int64, error) {
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return offset, fmt.Errorf("seek signal file: %w", err)
	}

	reader := bufio.NewReader(file)
	for {
		line, err := reader.ReadBytes('\n')
		if err == io.EOF {
			return offset, nil
		}
		if err != nil {
			return offset, fmt.Errorf("read signal file: %w", err)
		}
		offset += int64(len(line))

		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			continue
		}
		var signal model.BrowserSignal
		if err := sonic.Unmarshal(trimmed, &signal); err != nil {
			util.LogDebugf("skip invalid signal line: %v", err)
			continue
		}
		rr.tracker.Apply(signal)
	}
}

// Follow replays the file and then tails it, applying new signals as they
// are appended, until ctx is cancelled.
func (rr *ReplayReader) Follow(ctx context.Context, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open signal file: %w", err)
	}
	defer file.Close()

	offset, err := rr.replayComplete(file, 0)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("watch signal file: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			rr.tracker.Close()
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Write == fsnotify.Write {
				if offset, err = rr.replayComplete(file, offset); err != nil {
					util.LogErrorf("replay appended signals: %v", err)
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			util.LogErrorf("signal file watch error: %v", err)
		}
	}
}
