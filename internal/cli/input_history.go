package cli

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

const maxHistoryLines = 500

// inputHistory recalls previously sent chat messages. When path is set,
// entries are loaded from and appended to that file.
type inputHistory struct {
	path  string
	lines []string
	idx   int
}

func newInputHistory(path string) *inputHistory {
	var lines []string
	if path != "" {
		lines = loadHistoryFromPath(path)
	}
	return &inputHistory{path: path, lines: lines, idx: len(lines)}
}

// add records a sent line and resets the recall position.
func (h *inputHistory) add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	h.lines = append(h.lines, line)
	h.idx = len(h.lines)
	if h.path != "" {
		appendHistoryToPath(h.path, line)
	}
}

// prev steps back one entry. ok is false at the oldest entry.
func (h *inputHistory) prev() (line string, ok bool) {
	if h.idx == 0 {
		return "", false
	}
	h.idx--
	return h.lines[h.idx], true
}

// next steps forward one entry, returning "" past the newest.
func (h *inputHistory) next() string {
	if h.idx < len(h.lines)-1 {
		h.idx++
		return h.lines[h.idx]
	}
	h.idx = len(h.lines)
	return ""
}

// loadHistoryFromPath reads history from the given file.
// Returns nil if the file does not exist or cannot be read.
func loadHistoryFromPath(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}

	if len(lines) > maxHistoryLines {
		lines = lines[len(lines)-maxHistoryLines:]
	}
	return lines
}

// appendHistoryToPath appends a single line to the given history file.
// Errors are ignored; history is best-effort.
func appendHistoryToPath(path, line string) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return
	}
	defer f.Close()

	_, _ = f.WriteString(line + "\n")
}
