package ttsserver

import (
	"sync"
	"time"
)

// ConversationEntry records one completed exchange.
type ConversationEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	UserText    string    `json:"user_text"`
	BotResponse string    `json:"bot_response"`
	Personality string    `json:"personality,omitempty"`
	Model       string    `json:"model,omitempty"`
	Voice       string    `json:"voice,omitempty"`
	Duration    float64   `json:"duration"`
}

// ConversationLog is an in-memory, bounded, append-only exchange log. When
// the cap is reached the oldest entry is evicted. A cap of 0 means
// unlimited.
type ConversationLog struct {
	mu      sync.Mutex
	max     int
	entries []ConversationEntry
}

// NewConversationLog creates a log holding at most max entries.
func NewConversationLog(max int) *ConversationLog {
	return &ConversationLog{max: max}
}

// Append adds an entry, evicting the oldest one if the log is full.
func (l *ConversationLog) Append(e ConversationEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
	if l.max > 0 && len(l.entries) > l.max {
		l.entries = l.entries[1:]
	}
}

// Recent returns a copy of the newest limit entries, oldest first. A limit
// of 0 or less returns everything.
func (l *ConversationLog) Recent(limit int) []ConversationEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]ConversationEntry, n)
	copy(out, l.entries[len(l.entries)-n:])
	return out
}

// Len returns the number of stored entries.
func (l *ConversationLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Clear drops all entries.
func (l *ConversationLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}
