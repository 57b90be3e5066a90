package folderindex

import "time"

type Entry struct {
	Name        string
	FullPath    string
	ParentPath  string
	LastUpdated time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS folder_map (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	folder_name TEXT NOT NULL,
	full_path TEXT NOT NULL UNIQUE,
	parent_path TEXT NOT NULL,
	last_updated INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_folder_name ON folder_map(folder_name);
`
