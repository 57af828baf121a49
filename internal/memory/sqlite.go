package memory

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists sessions, messages, facts, the user dictionary and
// custom voice commands in one local database.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize tables: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			action_taken TEXT,
			action_success INTEGER,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (session_id) REFERENCES sessions(id)
		)`,
		`CREATE TABLE IF NOT EXISTS facts (
			session_id TEXT NOT NULL,
			key TEXT NOT NULL,
			category TEXT,
			value TEXT NOT NULL,
			source_message_id TEXT,
			use_count INTEGER DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			last_used_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (session_id, key)
		)`,
		`CREATE TABLE IF NOT EXISTS dictionary (
			original TEXT PRIMARY KEY,
			corrected TEXT NOT NULL,
			count INTEGER DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS custom_commands (
			name TEXT PRIMARY KEY,
			command TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session_id ON messages(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages(created_at)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("exec %q: %w", query, err)
		}
	}
	return nil
}

func (s *SQLiteStore) CreateSession() (string, error) {
	id := uuid.New().String()
	now := time.Now()
	_, err := s.db.Exec(
		"INSERT INTO sessions (id, created_at, updated_at) VALUES (?, ?, ?)",
		id, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) TouchSession(id string) error {
	_, err := s.db.Exec("UPDATE sessions SET updated_at = ? WHERE id = ?", time.Now(), id)
	return err
}

func (s *SQLiteStore) SaveMessage(sessionID string, msg Message) error {
	var success sql.NullInt64
	if msg.ActionSuccess != nil {
		success.Valid = true
		if *msg.ActionSuccess {
			success.Int64 = 1
		}
	}
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO messages (id, session_id, role, content, action_taken, action_success, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, sessionID, msg.Role, msg.Content, msg.ActionTaken, success, msg.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("save message: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListMessages(sessionID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(
		`SELECT id, role, content, action_taken, action_success, created_at
		 FROM messages WHERE session_id = ?
		 ORDER BY created_at DESC LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		var action sql.NullString
		var success sql.NullInt64
		if err := rows.Scan(&m.ID, &m.Role, &m.Content, &action, &success, &m.Timestamp); err != nil {
			return nil, err
		}
		m.ActionTaken = action.String
		if success.Valid {
			v := success.Int64 == 1
			m.ActionSuccess = &v
		}
		out = append(out, m)
	}

	// rows come newest-first; flip to chronological
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveFact(sessionID string, fact Fact) error {
	_, err := s.db.Exec(
		`INSERT INTO facts (session_id, key, category, value, source_message_id, use_count, created_at, last_used_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id, key) DO UPDATE SET
			value = excluded.value,
			category = excluded.category,
			use_count = excluded.use_count,
			last_used_at = excluded.last_used_at`,
		sessionID, fact.Key, fact.Category, fact.Value, fact.SourceMessageID,
		fact.UseCount, fact.CreatedAt, fact.LastUsedAt,
	)
	if err != nil {
		return fmt.Errorf("save fact: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListFacts(sessionID string) ([]Fact, error) {
	rows, err := s.db.Query(
		`SELECT key, category, value, source_message_id, use_count, created_at, last_used_at
		 FROM facts WHERE session_id = ? ORDER BY key`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list facts: %w", err)
	}
	defer rows.Close()

	var out []Fact
	for rows.Next() {
		var f Fact
		var category, source sql.NullString
		if err := rows.Scan(&f.Key, &category, &f.Value, &source, &f.UseCount, &f.CreatedAt, &f.LastUsedAt); err != nil {
			return nil, err
		}
		f.Category = category.String
		f.SourceMessageID = source.String
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveDictionaryEntry(original, corrected string) error {
	_, err := s.db.Exec(
		`INSERT INTO dictionary (original, corrected, count) VALUES (?, ?, 1)
		 ON CONFLICT(original) DO UPDATE SET
			corrected = excluded.corrected,
			count = count + 1`,
		original, corrected,
	)
	if err != nil {
		return fmt.Errorf("save dictionary entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListDictionary(limit int) ([]DictionaryEntry, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.db.Query(
		"SELECT original, corrected, count, created_at FROM dictionary ORDER BY count DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list dictionary: %w", err)
	}
	defer rows.Close()

	var out []DictionaryEntry
	for rows.Next() {
		var e DictionaryEntry
		if err := rows.Scan(&e.Original, &e.Corrected, &e.Count, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SaveCustomCommand(name, command string) error {
	_, err := s.db.Exec(
		`INSERT INTO custom_commands (name, command) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET command = excluded.command`,
		name, command,
	)
	if err != nil {
		return fmt.Errorf("save custom command: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetCustomCommand(name string) (string, error) {
	var command string
	err := s.db.QueryRow("SELECT command FROM custom_commands WHERE name = ?", name).Scan(&command)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("custom command not found: %s", name)
	}
	if err != nil {
		return "", err
	}
	return command, nil
}

func (s *SQLiteStore) ListCustomCommands() ([]string, error) {
	rows, err := s.db.Query("SELECT name FROM custom_commands ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list custom commands: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
