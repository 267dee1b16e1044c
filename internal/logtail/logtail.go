package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Read returns at most maxLines from the end of the file at path. A missing
// file yields no lines.
func Read(path string, maxLines int) ([]string, error) {
	if maxLines <= 0 {
		return nil, nil
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	ring := make([]string, maxLines)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Entry is one parsed log line.
type Entry struct {
	Time    time.Time
	Level   string
	Message string
	Fields  string
	Raw     string
}

// Parse splits a console-encoded line: time, level, message and an optional
// JSON object of fields, separated by tabs. Lines that do not match keep only
// Raw and Message.
func Parse(line string) Entry {
	entry := Entry{Raw: line, Message: line}
	parts := strings.SplitN(line, "\t", 4)
	if len(parts) < 3 {
		return entry
	}
	ts, err := time.Parse(time.RFC3339, parts[0])
	if err != nil {
		return entry
	}
	entry.Time = ts
	entry.Level = strings.ToUpper(strings.TrimSpace(parts[1]))
	entry.Message = parts[2]
	if len(parts) == 4 {
		entry.Fields = parts[3]
	}
	return entry
}

var levelRank = map[string]int{
	"DEBUG":  0,
	"INFO":   1,
	"WARN":   2,
	"ERROR":  3,
	"DPANIC": 4,
	"PANIC":  4,
	"FATAL":  5,
}

// AtLeast keeps entries at or above minLevel. Unparsed lines are kept so
// multi-line output is not lost.
func AtLeast(entries []Entry, minLevel string) []Entry {
	minRank, ok := levelRank[strings.ToUpper(strings.TrimSpace(minLevel))]
	if !ok {
		return entries
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		rank, known := levelRank[e.Level]
		if !known || rank >= minRank {
			out = append(out, e)
		}
	}
	return out
}

// Tail reads and parses the last maxLines of path.
func Tail(path string, maxLines int) ([]Entry, error) {
	lines, err := Read(path, maxLines)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, len(lines))
	for i, line := range lines {
		entries[i] = Parse(line)
	}
	return entries, nil
}
