package logtail

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

const blockSize = 64 * 1024

// Line is one log line with the level slog wrote into it.
type Line struct {
	Text  string
	Level slog.Level
}

// Read returns at most maxLines from the end of the file at path, oldest
// first. The file is read backwards in blocks, so the cost follows maxLines
// rather than the file size. A missing file yields no lines.
func Read(path string, maxLines int) ([]Line, error) {
	if maxLines <= 0 {
		return nil, nil
	}
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat log: %w", err)
	}

	var tail []byte
	offset := info.Size()
	for offset > 0 && bytes.Count(tail, []byte{'\n'}) <= maxLines {
		n := min(int64(blockSize), offset)
		offset -= n
		block := make([]byte, n, int(n)+len(tail))
		if _, err := file.ReadAt(block, offset); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read log: %w", err)
		}
		tail = append(block, tail...)
	}

	raw := strings.Split(strings.TrimRight(string(tail), "\n"), "\n")
	if offset > 0 && len(raw) > 0 {
		// The first piece may start mid-line.
		raw = raw[1:]
	}
	if len(raw) > maxLines {
		raw = raw[len(raw)-maxLines:]
	}

	lines := make([]Line, 0, len(raw))
	for _, text := range raw {
		if text == "" {
			continue
		}
		lines = append(lines, Line{Text: text, Level: ParseLevel(text)})
	}
	return lines, nil
}

// ParseLevel reads the level=... attribute written by slog's text handler.
// Lines without one are Info.
func ParseLevel(line string) slog.Level {
	_, rest, ok := strings.Cut(line, "level=")
	if !ok {
		return slog.LevelInfo
	}
	token, _, _ := strings.Cut(rest, " ")
	var level slog.Level
	if err := level.UnmarshalText([]byte(token)); err != nil {
		return slog.LevelInfo
	}
	return level
}
