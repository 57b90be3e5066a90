package folderindex

import (
	"context"
	"database/sql"
	"eleven/app/client/sqlite"
	"eleven/app/config"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/samber/do"
	"github.com/samber/oops"
	"golang.org/x/sync/singleflight"
)

// Service maintains the folder name -> path lookup table.
// Each rescan replaces the whole table inside one transaction, so readers always see a complete snapshot.
type Service struct {
	cfg *config.Store
	db  *sql.DB

	group      singleflight.Group
	lastRescan atomic.Int64

	// called inside the rescan transaction after the old entries are deleted
	afterDelete func()
}

func New(di *do.Injector) (*Service, error) {
	return NewService(do.MustInvoke[*config.Store](di), do.MustInvoke[*sqlite.DB](di).DB)
}

func NewService(cfg *config.Store, db *sql.DB) (*Service, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, oops.In("folderindex").Errorf("failed to create folder_map: %w", err)
	}

	return &Service{
		cfg: cfg,
		db:  db,
	}, nil
}

// Rescan rebuilds the index from the configured roots and returns the number of folders stored.
func (s *Service) Rescan(ctx context.Context) (int, error) {
	cfg := s.cfg.Get().FolderIndex
	return s.RescanPaths(ctx, s.roots(cfg), cfg.Excluded, cfg.MaxDepth)
}

// RescanPaths walks roots and atomically replaces the stored entries.
// Concurrent calls share a single walk.
func (s *Service) RescanPaths(ctx context.Context, roots, excluded []string, maxDepth int) (int, error) {
	key := strings.Join(roots, "\x00")

	v, err, shared := s.group.Do(key, func() (any, error) {
		return s.rescan(ctx, roots, excluded, maxDepth)
	})
	if err != nil {
		return 0, err
	}

	if shared {
		slog.Debug("Joined running rescan", "roots", roots)
	}

	return v.(int), nil
}

func (s *Service) rescan(ctx context.Context, roots, excluded []string, maxDepth int) (int, error) {
	start := time.Now()

	entries, err := walkRoots(ctx, roots, excluded, maxDepth)
	if err != nil {
		return 0, oops.In("folderindex").Wrapf(err, "walk roots")
	}

	if err = s.replace(ctx, entries); err != nil {
		return 0, err
	}

	s.lastRescan.Store(time.Now().UnixMilli())

	slog.Info("Folder index rebuilt",
		"roots", roots,
		"folders", len(entries),
		"duration", time.Since(start))

	return len(entries), nil
}

func (s *Service) replace(ctx context.Context, entries []Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return oops.In("folderindex").Errorf("failed to begin rescan: %w", err)
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, `DELETE FROM folder_map`); err != nil {
		return oops.In("folderindex").Errorf("failed to clear folder_map: %w", err)
	}

	if s.afterDelete != nil {
		s.afterDelete()
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO folder_map (folder_name, full_path, parent_path, last_updated) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return oops.In("folderindex").Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err = stmt.ExecContext(ctx, e.Name, e.FullPath, e.ParentPath, e.LastUpdated.UnixMilli()); err != nil {
			return oops.In("folderindex").With("path", e.FullPath).Errorf("failed to insert folder: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return oops.In("folderindex").Errorf("failed to commit rescan: %w", err)
	}

	return nil
}

// Query returns up to limit paths whose folder name contains name, shortest paths first.
func (s *Service) Query(ctx context.Context, name string, limit int) ([]string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, nil
	}

	if limit <= 0 {
		limit = s.cfg.Get().FolderIndex.QueryLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT full_path FROM folder_map WHERE folder_name LIKE ? ESCAPE '\'
		 ORDER BY length(full_path), full_path LIMIT ?`,
		"%"+escapeLike(name)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query folders: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var path string
		if err = rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("failed to scan folder: %w", err)
		}
		result = append(result, path)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read folders: %w", err)
	}

	return result, nil
}

func (s *Service) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM folder_map`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count folders: %w", err)
	}

	return count, nil
}

// FindFile walks the configured roots for a file whose name contains name.
// It returns an empty string when nothing matches.
func (s *Service) FindFile(ctx context.Context, name string) (string, error) {
	cfg := s.cfg.Get().FolderIndex

	path, err := findFile(ctx, s.roots(cfg), cfg.Excluded, min(cfg.MaxDepth, 4), strings.TrimSpace(name))
	if err != nil {
		return "", fmt.Errorf("failed to search file: %w", err)
	}

	return path, nil
}

func (s *Service) LastRescan() time.Time {
	ms := s.lastRescan.Load()
	if ms == 0 {
		return time.Time{}
	}

	return time.UnixMilli(ms)
}

// RunRefreshLoop rescans on every interval until ctx is cancelled.
func (s *Service) RunRefreshLoop(ctx context.Context) {
	cfg := s.cfg.Get().FolderIndex

	if cfg.ScanOnStart {
		if count, err := s.Count(ctx); err != nil {
			slog.Error("Failed to count folders", "error", err)
		} else if count == 0 {
			s.refresh(ctx)
		}
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

func (s *Service) refresh(ctx context.Context) {
	if _, err := s.Rescan(ctx); err != nil && ctx.Err() == nil {
		slog.Error("Periodic folder rescan failed", "error", err)
	}
}

func (s *Service) roots(cfg config.FolderIndex) []string {
	if len(cfg.Roots) > 0 {
		return cfg.Roots
	}

	home, err := os.UserHomeDir()
	if err != nil {
		slog.Warn("No folder roots configured and home dir is unknown", "error", err)
		return nil
	}

	return []string{home}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
