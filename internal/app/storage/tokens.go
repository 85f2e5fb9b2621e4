/*
Package storage implements the flat-file persistence collaborators.

This file defines the TokenStore, which persists encrypted reconnection
token records as `sealedToken,expiresAt,username,room` lines. Token
mutations rewrite the whole file; the record set is small by construction
(at most one live token per user).
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
)

// TokenRecord is one durable reconnection token record. Sealed holds the
// encrypted token value; the plaintext never reaches disk.
type TokenRecord struct {
	Sealed    string
	ExpiresAt int64
	Username  string
	Room      string
}

// TokenStore persists token records, one record per line.
type TokenStore struct {
	path string
	mu   sync.Mutex
}

// NewTokenStore returns a TokenStore backed by the given file path.
func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// Load reads every stored token record. A missing file yields an empty
// slice; malformed lines are skipped.
func (s *TokenStore) Load() ([]TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []TokenRecord

	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return records, nil
		}
		return nil, fmt.Errorf("open token store: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		parts := strings.SplitN(scanner.Text(), ",", 4)
		if len(parts) != 4 {
			continue
		}
		expiresAt, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			continue
		}
		records = append(records, TokenRecord{
			Sealed:    parts[0],
			ExpiresAt: expiresAt,
			Username:  parts[2],
			Room:      parts[3],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read token store: %w", err)
	}

	return records, nil
}

// ReplaceAll atomically rewrites the store with the given record set, via a
// temp file renamed into place.
func (s *TokenStore) ReplaceAll(records []TokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".tokens-*")
	if err != nil {
		return fmt.Errorf("create token store temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	for _, rec := range records {
		if _, err := fmt.Fprintf(tmp, "%s,%d,%s,%s\n", rec.Sealed, rec.ExpiresAt, rec.Username, rec.Room); err != nil {
			tmp.Close()
			return fmt.Errorf("write token record: %w", err)
		}
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close token store temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace token store: %w", err)
	}

	return nil
}
