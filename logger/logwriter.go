package logger

import (
	"bytes"
	"io"
	"regexp"
	"strings"
	"sync"
)

// LogBufferWriter is an io.Writer that feeds console-encoded zap lines into a
// LogBuffer. Lines look like "15:04:05.000\tINFO\t[127.0.0.1] message"; the
// leading bracketed tag, when present, becomes the entry's NodeID.
type LogBufferWriter struct {
	buffer *LogBuffer
	buf    bytes.Buffer
	mu     sync.Mutex
}

var nodeIDRegex = regexp.MustCompile(`^\[([^\]]+)\]\s*`)

var levels = map[string]bool{
	"DEBUG": true, "INFO": true, "WARN": true, "ERROR": true,
	"DPANIC": true, "PANIC": true, "FATAL": true,
}

// NewLogBufferWriter creates a new writer that writes to the log buffer
func NewLogBufferWriter(buffer *LogBuffer) *LogBufferWriter {
	return &LogBufferWriter{
		buffer: buffer,
	}
}

// Write implements io.Writer
func (lw *LogBufferWriter) Write(p []byte) (n int, err error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	// Buffer until we get a newline
	lw.buf.Write(p)

	for {
		line, err := lw.buf.ReadString('\n')
		if err == io.EOF {
			// Keep the partial line for the next Write
			lw.buf.WriteString(line)
			break
		}
		if err != nil {
			return len(p), err
		}

		line = strings.TrimSuffix(line, "\n")
		if len(line) == 0 {
			continue
		}
		lw.buffer.Add(parseLine(line))
	}

	return len(p), nil
}

// parseLine splits a console-encoded line into level, node and message.
func parseLine(line string) (level, nodeID, message string) {
	level = "INFO"
	nodeID = "system"

	fields := strings.Split(line, "\t")
	// Drop the timestamp, pick up the level if present
	if len(fields) > 1 && !levels[fields[0]] {
		fields = fields[1:]
	}
	if len(fields) > 1 && levels[fields[0]] {
		level = fields[0]
		fields = fields[1:]
	}
	message = strings.Join(fields, " ")

	if m := nodeIDRegex.FindStringSubmatchIndex(message); m != nil {
		nodeID = message[m[2]:m[3]]
		message = message[:m[0]] + message[m[1]:]
	}
	return level, nodeID, message
}
