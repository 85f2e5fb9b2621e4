/*
Package storage implements the flat-file persistence collaborators.

This file defines the MessageStore, which keeps one append-only
`unixMillis|author|content` log file per room.
*/
package storage

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Message is one persisted chat or bot message.
type Message struct {
	Timestamp time.Time
	Author    string
	Content   string
}

// MessageStore persists per-room message history under a single directory.
type MessageStore struct {
	dir string
	mu  sync.Mutex
}

// NewMessageStore returns a MessageStore rooted at dir, creating the
// directory if needed.
func NewMessageStore(dir string) (*MessageStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create message directory: %w", err)
	}
	return &MessageStore{dir: dir}, nil
}

// file maps a room name to its log file, refusing names that would escape
// the store directory.
func (s *MessageStore) file(room string) (string, error) {
	path := filepath.Join(s.dir, room+".msg")
	if filepath.Dir(path) != filepath.Clean(s.dir) {
		return "", fmt.Errorf("invalid room name %q", room)
	}
	return path, nil
}

// Append durably adds one message to the room's log.
func (s *MessageStore) Append(room, author, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.file(room)
	if err != nil {
		return err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open message log: %w", err)
	}
	defer file.Close()

	if _, err := fmt.Fprintf(file, "%d|%s|%s\n", time.Now().UnixMilli(), author, content); err != nil {
		return fmt.Errorf("append message: %w", err)
	}

	return nil
}

// Load reads the room's full message history in arrival order. A missing
// log yields an empty slice; malformed lines are skipped.
func (s *MessageStore) Load(room string) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.file(room)
	if err != nil {
		return nil, err
	}

	var messages []Message

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return messages, nil
		}
		return nil, fmt.Errorf("open message log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		parts := strings.SplitN(scanner.Text(), "|", 3)
		if len(parts) != 3 {
			continue
		}
		millis, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			continue
		}
		messages = append(messages, Message{
			Timestamp: time.UnixMilli(millis),
			Author:    parts[1],
			Content:   parts[2],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read message log: %w", err)
	}

	return messages, nil
}
