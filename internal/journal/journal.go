package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Direction labels which way a recorded payload travelled.
const (
	DirInbound  = "rx"
	DirOutbound = "tx"
)

// Entry is one recorded datagram or forwarded command.
type Entry struct {
	Time    time.Time       `json:"time"`
	Dir     string          `json:"dir"`
	Payload json.RawMessage `json:"payload"`
}

// Writer appends traffic entries to hourly-rotated zstd-compressed JSONL
// files. All methods are safe for concurrent use and safe on a nil receiver.
type Writer struct {
	baseDir string
	prefix  string

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

// NewWriter creates a journal writer rooted at baseDir. Files are created
// lazily on first record.
func NewWriter(baseDir, prefix string) *Writer {
	return &Writer{baseDir: baseDir, prefix: prefix}
}

// RecordInbound journals one datagram received from the simulation.
func (w *Writer) RecordInbound(payload []byte) error {
	return w.record(DirInbound, payload)
}

// RecordOutbound journals one command sent to the simulation.
func (w *Writer) RecordOutbound(payload []byte) error {
	return w.record(DirOutbound, payload)
}

func (w *Writer) record(dir string, payload []byte) error {
	if w == nil {
		return nil
	}
	if !json.Valid(payload) {
		// Malformed traffic is journalled as a JSON string so the file
		// stays one valid object per line.
		quoted, err := json.Marshal(string(payload))
		if err != nil {
			return err
		}
		payload = quoted
	}
	entry := Entry{
		Time:    time.Now().UTC(),
		Dir:     dir,
		Payload: json.RawMessage(payload),
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	hour := entry.Time.Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

// Close flushes and closes the current journal file.
func (w *Writer) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *Writer) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	path := w.pathForHour(hour)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curHour = hour
	return nil
}

func (w *Writer) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	return err1
}

func (w *Writer) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// ReadFile decodes every entry in one journal file, in recorded order.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	defer dec.Close()

	var entries []Entry
	scanner := bufio.NewScanner(dec)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			return nil, fmt.Errorf("decode journal %s: %w", path, err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read journal %s: %w", path, err)
	}
	return entries, nil
}
