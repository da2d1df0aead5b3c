package logger

import (
	"fmt"
	"sync"
	"time"
)

// LogEntry represents a single log entry
type LogEntry struct {
	Timestamp time.Time
	Level     string
	NodeID    string
	Message   string
}

// LogBuffer keeps the last maxSize entries in a ring.
type LogBuffer struct {
	mu      sync.RWMutex
	entries []LogEntry
	next    int // slot the next entry goes into
	full    bool
}

func NewLogBuffer(maxSize int) *LogBuffer {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &LogBuffer{entries: make([]LogEntry, maxSize)}
}

// Add appends an entry, overwriting the oldest once the buffer is full.
func (lb *LogBuffer) Add(level, nodeID, message string) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.entries[lb.next] = LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		NodeID:    nodeID,
		Message:   message,
	}
	lb.next = (lb.next + 1) % len(lb.entries)
	if lb.next == 0 {
		lb.full = true
	}
}

// Len returns how many entries are currently held.
func (lb *LogBuffer) Len() int {
	lb.mu.RLock()
	defer lb.mu.RUnlock()
	return lb.lenLocked()
}

func (lb *LogBuffer) lenLocked() int {
	if lb.full {
		return len(lb.entries)
	}
	return lb.next
}

// GetRecent returns up to count of the newest entries, oldest first.
func (lb *LogBuffer) GetRecent(count int) []LogEntry {
	lb.mu.RLock()
	defer lb.mu.RUnlock()

	n := lb.lenLocked()
	if count > n {
		count = n
	}
	if count <= 0 {
		return []LogEntry{}
	}

	result := make([]LogEntry, count)
	start := lb.next - count
	for i := 0; i < count; i++ {
		idx := (start + i + len(lb.entries)) % len(lb.entries)
		result[i] = lb.entries[idx]
	}
	return result
}

// GetAll returns all log entries, oldest first
func (lb *LogBuffer) GetAll() []LogEntry {
	return lb.GetRecent(len(lb.entries))
}

// Clear removes all log entries from the buffer
func (lb *LogBuffer) Clear() {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	lb.entries = make([]LogEntry, len(lb.entries))
	lb.next = 0
	lb.full = false
}

// FormatLogEntry formats a log entry for display
func FormatLogEntry(entry LogEntry) string {
	return fmt.Sprintf("[%s] %-5s %s: %s",
		entry.Timestamp.Format("15:04:05"),
		entry.Level,
		entry.NodeID,
		entry.Message,
	)
}
