package agent

import (
	"fmt"

	"github.com/reagent-dev/reagent/internal/llm"
)

// Memory holds the conversation turns across iterations and, in chat mode,
// across tasks. When the message count exceeds the cap, the oldest
// non-system turns are dropped; system turns always survive.
type Memory struct {
	maxMessages int
	messages    []*llm.Message
}

// NewMemory creates a conversation memory. maxMessages <= 0 means unbounded.
func NewMemory(maxMessages int) *Memory {
	return &Memory{maxMessages: maxMessages}
}

// Add appends one turn, trimming old non-system turns past the cap.
func (m *Memory) Add(role, content string) {
	m.messages = append(m.messages, &llm.Message{Role: role, Content: content})
	if m.maxMessages <= 0 || len(m.messages) <= m.maxMessages {
		return
	}

	var system, rest []*llm.Message
	for _, msg := range m.messages {
		if msg.Role == "system" {
			system = append(system, msg)
		} else {
			rest = append(rest, msg)
		}
	}
	keep := m.maxMessages - len(system)
	if keep < 0 {
		keep = 0
	}
	if len(rest) > keep {
		rest = rest[len(rest)-keep:]
	}
	m.messages = append(system, rest...)
}

// Messages returns the conversation in request order.
func (m *Memory) Messages() []*llm.Message {
	return m.messages
}

// Len returns the number of stored turns.
func (m *Memory) Len() int {
	return len(m.messages)
}

// HasSystem reports whether a system turn has been recorded.
func (m *Memory) HasSystem() bool {
	for _, msg := range m.messages {
		if msg.Role == "system" {
			return true
		}
	}
	return false
}

// Clear drops every turn except system turns.
func (m *Memory) Clear() {
	var system []*llm.Message
	for _, msg := range m.messages {
		if msg.Role == "system" {
			system = append(system, msg)
		}
	}
	m.messages = system
}

// Summary describes the stored conversation in one line.
func (m *Memory) Summary() string {
	users, assistants := 0, 0
	for _, msg := range m.messages {
		switch msg.Role {
		case "user":
			users++
		case "assistant":
			assistants++
		}
	}
	return fmt.Sprintf("Conversation: %d messages (%d user, %d assistant)", len(m.messages), users, assistants)
}
