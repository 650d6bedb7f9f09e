// Package llmlog records every model exchange as JSON lines, one file per
// session, with size-based rotation.
package llmlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Direction marks which side of the exchange an entry records.
const (
	DirectionRequest  = "request"
	DirectionResponse = "response"
	DirectionError    = "error"
)

// Entry is a single transcript line.
type Entry struct {
	Timestamp      time.Time              `json:"timestamp"`
	SessionID      string                 `json:"session_id"`
	ConversationID string                 `json:"conversation_id"`
	Direction      string                 `json:"direction"`
	Model          string                 `json:"model"`
	Content        interface{}            `json:"content"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// Logger appends transcript entries to a JSONL file. A disabled logger
// swallows every call, so callers never need to branch.
type Logger struct {
	mu          sync.Mutex
	enabled     bool
	sessionID   string
	convCounter int
	dir         string
	file        string
	maxFileSize int64
	maxFiles    int
}

// Options configures a transcript logger.
type Options struct {
	Dir         string // default ~/.reagent/transcripts
	File        string // default llm_<timestamp>.jsonl
	MaxFileSize int64  // default 10MB
	MaxFiles    int    // rotated files kept, default 10
	Enabled     bool
}

// New creates a transcript logger. A disabled logger performs no filesystem
// work at all.
func New(opts Options) (*Logger, error) {
	if !opts.Enabled {
		return &Logger{enabled: false}, nil
	}

	dir := opts.Dir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot resolve home directory: %w", err)
		}
		dir = filepath.Join(home, ".reagent", "transcripts")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create transcript directory: %w", err)
	}

	file := opts.File
	if file == "" {
		file = fmt.Sprintf("llm_%s.jsonl", time.Now().Format("20060102_150405"))
	}

	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = 10 * 1024 * 1024
	}
	maxFiles := opts.MaxFiles
	if maxFiles <= 0 {
		maxFiles = 10
	}

	return &Logger{
		enabled:     true,
		sessionID:   uuid.NewString(),
		dir:         dir,
		file:        filepath.Join(dir, file),
		maxFileSize: maxSize,
		maxFiles:    maxFiles,
	}, nil
}

// Disabled returns a logger that records nothing.
func Disabled() *Logger {
	return &Logger{enabled: false}
}

// SessionID returns the identifier shared by every entry this logger writes.
func (l *Logger) SessionID() string {
	return l.sessionID
}

// LogRequest records an outgoing request and returns the conversation ID to
// pair the response with.
func (l *Logger) LogRequest(model string, content interface{}, metadata map[string]interface{}) string {
	if !l.enabled {
		return ""
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.convCounter++
	convID := fmt.Sprintf("%s_conv_%d", l.sessionID, l.convCounter)
	l.write(&Entry{
		Timestamp:      time.Now(),
		SessionID:      l.sessionID,
		ConversationID: convID,
		Direction:      DirectionRequest,
		Model:          model,
		Content:        content,
		Metadata:       metadata,
	})
	return convID
}

// LogResponse records a model response for a previously logged request.
func (l *Logger) LogResponse(model, conversationID string, content interface{}, metadata map[string]interface{}) {
	l.log(&Entry{
		Direction:      DirectionResponse,
		Model:          model,
		ConversationID: conversationID,
		Content:        content,
		Metadata:       metadata,
	})
}

// LogError records a failed exchange.
func (l *Logger) LogError(model, conversationID, errMsg string) {
	l.log(&Entry{
		Direction:      DirectionError,
		Model:          model,
		ConversationID: conversationID,
		Content:        errMsg,
	})
}

func (l *Logger) log(entry *Entry) {
	if !l.enabled {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.Timestamp = time.Now()
	entry.SessionID = l.sessionID
	l.write(entry)
}

// write appends one JSONL line, rotating first if the file is over budget.
// Errors are deliberately dropped: transcripts must never take the session
// down.
func (l *Logger) write(entry *Entry) {
	l.rotateIfNeeded()

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	f, err := os.OpenFile(l.file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer f.Close()
	f.Write(append(data, '\n'))
}

func (l *Logger) rotateIfNeeded() {
	info, err := os.Stat(l.file)
	if err != nil || info.Size() <= l.maxFileSize {
		return
	}

	base := strings.TrimSuffix(filepath.Base(l.file), ".jsonl")
	rotated := filepath.Join(l.dir, fmt.Sprintf("%s_rotated_%s.jsonl", base, time.Now().Format("20060102_150405")))
	if err := os.Rename(l.file, rotated); err != nil {
		return
	}
	l.cleanupRotated(base)
}

func (l *Logger) cleanupRotated(base string) {
	matches, err := filepath.Glob(filepath.Join(l.dir, base+"_rotated_*.jsonl"))
	if err != nil || len(matches) <= l.maxFiles {
		return
	}

	sort.Slice(matches, func(i, j int) bool {
		fi, err1 := os.Stat(matches[i])
		fj, err2 := os.Stat(matches[j])
		if err1 != nil || err2 != nil {
			return matches[i] < matches[j]
		}
		return fi.ModTime().Before(fj.ModTime())
	})
	for _, old := range matches[:len(matches)-l.maxFiles] {
		os.Remove(old)
	}
}
