package memory

import (
	"context"
	"database/sql"
	"eleven/app/client/sqlite"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/do"
)

// Service persists the conversation transcript and remembered facts.
type Service struct {
	db  *sql.DB
	now func() time.Time

	mu      sync.Mutex
	session string
}

func New(di *do.Injector) (*Service, error) {
	return NewService(do.MustInvoke[*sqlite.DB](di).DB)
}

func NewService(db *sql.DB) (*Service, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create memory tables: %w", err)
	}

	return &Service{
		db:      db,
		session: uuid.NewString(),
		now:     time.Now,
	}, nil
}

func (s *Service) Append(ctx context.Context, role Role, content string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (session, timestamp, role, content) VALUES (?, ?, ?, ?)`,
		s.currentSession(), s.now().UnixMilli(), string(role), content)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}

	return nil
}

// Recent returns up to limit messages in chronological order.
func (s *Service) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, timestamp FROM conversations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	result := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			entry Entry
			role  string
			ts    int64
		)

		if err = rows.Scan(&role, &entry.Content, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}

		entry.Role = Role(role)
		entry.Timestamp = time.UnixMilli(ts)
		result = append(result, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	slices.Reverse(result)

	return result, nil
}

// Clear forgets the stored conversation. Facts are kept.
func (s *Service) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM conversations`); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}

	s.mu.Lock()
	s.session = uuid.NewString()
	s.mu.Unlock()

	slog.Info("Conversation memory cleared")

	return nil
}

func (s *Service) currentSession() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.session
}

func (s *Service) RememberFact(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal fact: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO facts (key, value, timestamp) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, timestamp = excluded.timestamp`,
		key, string(data), s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to store fact: %w", err)
	}

	slog.Debug("Remembered fact", "key", key)

	return nil
}

// RecallFact decodes the stored value into out and reports whether the fact exists.
func (s *Service) RecallFact(ctx context.Context, key string, out any) (bool, error) {
	var data string

	err := s.db.QueryRowContext(ctx, `SELECT value FROM facts WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load fact: %w", err)
	}

	if err = json.Unmarshal([]byte(data), out); err != nil {
		return false, fmt.Errorf("failed to unmarshal fact: %w", err)
	}

	return true, nil
}
