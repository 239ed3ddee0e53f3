// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/termchat/internal/util"
)

// =============================================================================
// DATA MODEL
// =============================================================================

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is one role-tagged entry in a conversation. Messages are
// immutable once appended; ordering is append-only and defines the
// conversational context sent on the next request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates a new assistant message.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// Session is the persisted conversation for one terminal context.
type Session struct {
	ID        string    `json:"id"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// =============================================================================
// STORE
// =============================================================================

// Store persists sessions as one JSON document per terminal context.
type Store struct {
	// BaseDir is the directory for session files
	// (default: ~/.termchat/sessions).
	BaseDir string
}

// NewStore creates a session store rooted at baseDir.
func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}
	return &Store{BaseDir: baseDir}, nil
}

// Open loads the session owned by the given terminal context, creating a
// fresh one if none exists yet.
func (s *Store) Open(contextID string) (*Handle, error) {
	path := s.filePath(contextID)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			now := time.Now()
			return &Handle{
				store:     s,
				contextID: contextID,
				session: &Session{
					ID:        uuid.NewString(),
					CreatedAt: now,
					UpdatedAt: now,
				},
			}, nil
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to parse session %s: %w", contextID, err)
	}

	return &Handle{store: s, contextID: contextID, session: &sess}, nil
}

// Delete removes the session file for a context. Missing files are fine.
func (s *Store) Delete(contextID string) error {
	err := os.Remove(s.filePath(contextID))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// List returns metadata for all stored sessions, most recent first.
func (s *Store) List() ([]Meta, error) {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Meta{}, nil
		}
		return nil, err
	}

	var metas []Meta
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		contextID := strings.TrimSuffix(entry.Name(), ".json")

		handle, err := s.Open(contextID)
		if err != nil {
			continue // Skip corrupted files
		}
		sess := handle.session

		metas = append(metas, Meta{
			ContextID:    contextID,
			SessionID:    sess.ID,
			CreatedAt:    sess.CreatedAt,
			UpdatedAt:    sess.UpdatedAt,
			MessageCount: len(sess.Messages),
			Preview:      sess.preview(),
		})
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas, nil
}

// filePath returns the session file path for a terminal context.
func (s *Store) filePath(contextID string) string {
	return filepath.Join(s.BaseDir, sanitizeContextID(contextID)+".json")
}

// sanitizeContextID keeps context-derived file names path-safe.
func sanitizeContextID(id string) string {
	if id == "" {
		return "default"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, id)
}

// Meta describes one stored session for listing.
type Meta struct {
	ContextID    string    `json:"context_id"`
	SessionID    string    `json:"session_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
	Preview      string    `json:"preview"`
}

// =============================================================================
// HANDLE
// =============================================================================

// Handle is the live view of one context's session. It is owned by a
// single terminal context; concurrent requests from different contexts
// use separate handles over separate files and need no locking.
type Handle struct {
	store     *Store
	contextID string
	session   *Session
}

// ID returns the current session's identity.
func (h *Handle) ID() string {
	return h.session.ID
}

// Messages returns the ordered conversation history. The returned slice
// is a copy; appending to it does not mutate the session.
func (h *Handle) Messages() []Message {
	out := make([]Message, len(h.session.Messages))
	copy(out, h.session.Messages)
	return out
}

// AddUserMessage appends a user message and persists synchronously.
func (h *Handle) AddUserMessage(content string) error {
	return h.append(NewUserMessage(content))
}

// AddAssistantMessage appends an assistant message and persists synchronously.
func (h *Handle) AddAssistantMessage(content string) error {
	return h.append(NewAssistantMessage(content))
}

// append adds a message, touches the timestamp, and persists.
func (h *Handle) append(msg Message) error {
	h.session.Messages = append(h.session.Messages, msg)
	h.session.UpdatedAt = time.Now()
	return h.persist()
}

// Clear empties the message history but keeps the session identity.
func (h *Handle) Clear() error {
	h.session.Messages = nil
	h.session.UpdatedAt = time.Now()
	return h.persist()
}

// New replaces the session wholesale with a fresh identity.
func (h *Handle) New() error {
	now := time.Now()
	h.session = &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	return h.persist()
}

// persist writes the session document atomically.
func (h *Handle) persist() error {
	data, err := json.MarshalIndent(h.session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	path := h.store.filePath(h.contextID)
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	return nil
}

// preview returns the first user message, truncated for listings.
func (s *Session) preview() string {
	for _, msg := range s.Messages {
		if msg.Role == RoleUser && msg.Content != "" {
			p := strings.ReplaceAll(msg.Content, "\n", " ")
			return util.TruncateRunes(p, 80)
		}
	}
	return ""
}

// =============================================================================
// EXPORT
// =============================================================================

// ExportMarkdown renders the session as a Markdown document with role
// labels and timestamps.
func (h *Handle) ExportMarkdown() string {
	sess := h.session

	var sb strings.Builder
	sb.WriteString("# Session " + sess.ID + "\n\n")
	sb.WriteString("Created: " + sess.CreatedAt.Format(time.RFC3339) + "\n\n")
	sb.WriteString("---\n\n")

	for _, msg := range sess.Messages {
		role := "**User**"
		switch msg.Role {
		case RoleAssistant:
			role = "**Assistant**"
		case RoleSystem:
			role = "**System**"
		}
		sb.WriteString(role + ":\n\n")
		sb.WriteString(msg.Content)
		sb.WriteString("\n\n---\n\n")
	}
	return sb.String()
}

// FormatSessionList formats session metadata as a table for display.
func FormatSessionList(metas []Meta) string {
	if len(metas) == 0 {
		return "No sessions found."
	}

	var sb strings.Builder
	sb.WriteString("Sessions:\n")
	sb.WriteString("-----------------------------------------------------\n")
	sb.WriteString(pad("Context", 14) + " " + pad("Updated", 17) + " " + pad("Messages", 8) + " Preview\n")
	sb.WriteString("-----------------------------------------------------\n")

	for _, m := range metas {
		sb.WriteString(pad(util.TruncateRunes(m.ContextID, 14), 14) + " " +
			pad(m.UpdatedAt.Format("2006-01-02 15:04"), 17) + " " +
			pad(util.IntToString(m.MessageCount), 8) + " " +
			util.TruncateRunes(m.Preview, 30) + "\n")
	}
	return sb.String()
}

// pad right-pads a string to the given width with spaces.
func pad(s string, width int) string {
	for len([]rune(s)) < width {
		s += " "
	}
	return s
}
