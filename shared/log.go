package shared

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Sender string

const (
	SenderUser   Sender = "user"
	SenderAI     Sender = "ai"
	SenderSystem Sender = "system"
)

// LogEntry is one immutable line of the conversation view.
type LogEntry struct {
	ID        string
	Timestamp time.Time
	Sender    Sender
	Text      string
}

// ConversationLog is the ordered, append-only record of a session. Entries are
// never mutated or removed; any component may append.
type ConversationLog struct {
	mu      sync.Mutex
	entries []LogEntry
	hooks   []func(LogEntry)
}

func NewConversationLog() *ConversationLog {
	return &ConversationLog{}
}

// OnAppend registers a hook invoked for every new entry. Register hooks before
// the session starts appending; registration is not guarded against concurrent
// appends.
func (l *ConversationLog) OnAppend(hook func(LogEntry)) {
	if hook == nil {
		return
	}
	l.hooks = append(l.hooks, hook)
}

func (l *ConversationLog) Append(sender Sender, text string) LogEntry {
	entry := LogEntry{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Sender:    sender,
		Text:      text,
	}
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	hooks := l.hooks
	l.mu.Unlock()
	for _, hook := range hooks {
		hook(entry)
	}
	return entry
}

// Entries returns a copy of the log in append order.
func (l *ConversationLog) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *ConversationLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
