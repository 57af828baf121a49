package memory

import "time"

// Store is the durable side of conversation state. The pipeline treats
// save failures as non-fatal: in-memory state stays authoritative for the
// process lifetime.
type Store interface {
	// Sessions
	CreateSession() (string, error)
	TouchSession(id string) error

	// Messages
	SaveMessage(sessionID string, msg Message) error
	ListMessages(sessionID string, limit int) ([]Message, error)

	// Facts (upsert by session+key)
	SaveFact(sessionID string, fact Fact) error
	ListFacts(sessionID string) ([]Fact, error)

	// User dictionary, fed by the correction learner
	SaveDictionaryEntry(original, corrected string) error
	ListDictionary(limit int) ([]DictionaryEntry, error)

	// Custom voice commands (name -> shell command)
	SaveCustomCommand(name, command string) error
	GetCustomCommand(name string) (string, error)
	ListCustomCommands() ([]string, error)

	Close() error
}

// DictionaryEntry is one learned transcription correction.
type DictionaryEntry struct {
	Original  string
	Corrected string
	Count     int
	CreatedAt time.Time
}
