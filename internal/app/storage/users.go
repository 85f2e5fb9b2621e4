/*
Package storage implements the flat-file persistence collaborators: durable
user credentials, room definitions, per-room message logs, and encrypted
token records.

Every store treats a missing file as "no records yet" and guards its file
with its own mutex. Formats are newline-delimited text, append-friendly
where the data is append-only.
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

// UserStore persists username to password-hash records, one `name:hash` line
// per user.
type UserStore struct {
	path string
	mu   sync.Mutex
}

// NewUserStore returns a UserStore backed by the given file path.
func NewUserStore(path string) *UserStore {
	return &UserStore{path: path}
}

// Load reads every stored credential record. A missing file yields an empty
// map; malformed lines are skipped.
func (s *UserStore) Load() (map[string]uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := make(map[string]uint32)

	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return users, nil
		}
		return nil, fmt.Errorf("open user store: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		name, hashText, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		hash, err := strconv.ParseUint(hashText, 10, 32)
		if err != nil {
			continue
		}
		users[name] = uint32(hash)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read user store: %w", err)
	}

	return users, nil
}

// Append durably adds one credential record.
func (s *UserStore) Append(username string, passwordHash uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("open user store: %w", err)
	}
	defer file.Close()

	if _, err := fmt.Fprintf(file, "%s:%d\n", username, passwordHash); err != nil {
		return fmt.Errorf("append user record: %w", err)
	}

	return nil
}
