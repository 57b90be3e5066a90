package sqlite

import (
	"database/sql"
	"eleven/app/config"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/samber/do"
	_ "modernc.org/sqlite"
)

var _ do.Shutdownable = (*DB)(nil)

// DB is the database shared by the folder index and conversation memory.
// WAL mode lets readers keep a consistent snapshot while a writer transaction is open.
type DB struct {
	*sql.DB
}

func New(di *do.Injector) (*DB, error) {
	cfg := do.MustInvoke[*config.Store](di).Get()
	return Open(cfg.Storage.Path)
}

func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database dir: %w", err)
		}
	}

	params := url.Values{}
	params.Add("_pragma", "journal_mode(WAL)")
	params.Add("_pragma", "busy_timeout(5000)")
	params.Add("_pragma", "foreign_keys(ON)")
	params.Add("_txlock", "immediate")

	db, err := sql.Open("sqlite", "file:"+path+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err = db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

func (d *DB) Shutdown() error {
	return d.DB.Close()
}
