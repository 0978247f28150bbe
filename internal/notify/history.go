package notify

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// historyFile is the on-disk layout of the saved history.
type historyFile struct {
	Version       int            `json:"version"`
	Notifications []Notification `json:"notifications"`
}

const historyVersion = 1

// SaveHistory writes entries to path as zstd-compressed JSON. The file is
// replaced atomically.
func SaveHistory(path string, entries []Notification) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".history-*")
	if err != nil {
		return fmt.Errorf("failed to create history file: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc, err := zstd.NewWriter(tmp, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		tmp.Close()
		return fmt.Errorf("failed to create compressor: %w", err)
	}
	if err := json.NewEncoder(enc).Encode(historyFile{Version: historyVersion, Notifications: entries}); err != nil {
		enc.Close()
		tmp.Close()
		return fmt.Errorf("failed to encode history: %w", err)
	}
	if err := enc.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close history file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace history file: %w", err)
	}
	return nil
}

// LoadHistory reads a file written by SaveHistory. A missing file yields an
// empty history.
func LoadHistory(path string) ([]Notification, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open history file: %w", err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to create decompressor: %w", err)
	}
	defer dec.Close()

	var hf historyFile
	if err := json.NewDecoder(dec).Decode(&hf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	if hf.Version > historyVersion {
		return nil, fmt.Errorf("history file version %d is newer than supported %d", hf.Version, historyVersion)
	}
	return hf.Notifications, nil
}
