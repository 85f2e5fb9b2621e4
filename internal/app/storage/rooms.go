/*
Package storage implements the flat-file persistence collaborators.

This file defines the RoomStore, which persists room definitions as
`name|isAi|prompt` lines.
*/
package storage

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// RoomRecord is one durable room definition.
type RoomRecord struct {
	Name   string
	IsAI   bool
	Prompt string
}

// RoomStore persists room definitions, one record per line.
type RoomStore struct {
	path string
	mu   sync.Mutex
}

// NewRoomStore returns a RoomStore backed by the given file path.
func NewRoomStore(path string) *RoomStore {
	return &RoomStore{path: path}
}

// Load reads every stored room definition. A missing file yields an empty
// slice; malformed lines are skipped.
func (s *RoomStore) Load() ([]RoomRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rooms []RoomRecord

	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return rooms, nil
		}
		return nil, fmt.Errorf("open room store: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		parts := strings.SplitN(scanner.Text(), "|", 3)
		if len(parts) != 3 {
			continue
		}
		isAI, err := strconv.ParseBool(parts[1])
		if err != nil {
			continue
		}
		rooms = append(rooms, RoomRecord{Name: parts[0], IsAI: isAI, Prompt: parts[2]})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read room store: %w", err)
	}

	return rooms, nil
}

// Append durably adds one room definition.
func (s *RoomStore) Append(rec RoomRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open room store: %w", err)
	}
	defer file.Close()

	if _, err := fmt.Fprintf(file, "%s|%t|%s\n", rec.Name, rec.IsAI, rec.Prompt); err != nil {
		return fmt.Errorf("append room record: %w", err)
	}

	return nil
}
