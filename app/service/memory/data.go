package memory

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

type Entry struct {
	Role      Role
	Content   string
	Timestamp time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session TEXT NOT NULL,
	timestamp INTEGER NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS facts (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	timestamp INTEGER NOT NULL
);
`
