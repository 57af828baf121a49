package memory

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultShortTermCap = 10
	DefaultFactCap      = 50
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// NoConversationSentinel is returned by FormatForLLM when the window is empty.
const NoConversationSentinel = "No previous conversation."

// Message is one conversational turn. Append-only after creation.
type Message struct {
	ID            string
	Role          string
	Content       string
	Timestamp     time.Time
	ActionTaken   string
	ActionSuccess *bool
}

// Fact is a durable key-value preference extracted from conversation.
// Facts survive conversation clears; popularity decides eviction.
type Fact struct {
	Category        string
	Key             string
	Value           string
	SourceMessageID string
	CreatedAt       time.Time
	LastUsedAt      time.Time
	UseCount        int
}

// Conversation holds the bounded short-term message window and the fact set
// for one session. Not safe for concurrent use; the pipeline guards it.
type Conversation struct {
	sessionID    string
	messages     []Message
	facts        map[string]*Fact
	shortTermCap int
	factCap      int

	lastAction        string
	lastActionPayload map[string]any
	startedAt         time.Time
}

func NewConversation(sessionID string, shortTermCap, factCap int) *Conversation {
	if shortTermCap <= 0 {
		shortTermCap = DefaultShortTermCap
	}
	if factCap <= 0 {
		factCap = DefaultFactCap
	}
	return &Conversation{
		sessionID:    sessionID,
		facts:        make(map[string]*Fact),
		shortTermCap: shortTermCap,
		factCap:      factCap,
		startedAt:    time.Now(),
	}
}

func (c *Conversation) SessionID() string    { return c.sessionID }
func (c *Conversation) StartedAt() time.Time { return c.startedAt }

// AddUserMessage appends a user turn and returns it.
func (c *Conversation) AddUserMessage(text string) Message {
	msg := Message{
		ID:        uuid.New().String(),
		Role:      RoleUser,
		Content:   text,
		Timestamp: time.Now(),
	}
	c.messages = append(c.messages, msg)
	c.trimMessages()
	return msg
}

// AddAssistantMessage appends an assistant turn. When an action name is
// given it becomes the new last action, overwriting the previous one.
func (c *Conversation) AddAssistantMessage(text, action string, success *bool, payload map[string]any) Message {
	msg := Message{
		ID:            uuid.New().String(),
		Role:          RoleAssistant,
		Content:       text,
		Timestamp:     time.Now(),
		ActionTaken:   action,
		ActionSuccess: success,
	}
	c.messages = append(c.messages, msg)
	if action != "" {
		c.lastAction = action
		c.lastActionPayload = payload
	}
	c.trimMessages()
	return msg
}

// ContextMessages returns the short-term window, oldest first.
func (c *Conversation) ContextMessages() []Message {
	start := 0
	if len(c.messages) > c.shortTermCap {
		start = len(c.messages) - c.shortTermCap
	}
	out := make([]Message, len(c.messages)-start)
	copy(out, c.messages[start:])
	return out
}

// Messages returns the full physical log for persistence.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// FormatForLLM renders the context window one line per message.
func (c *Conversation) FormatForLLM() string {
	window := c.ContextMessages()
	if len(window) == 0 {
		return NoConversationSentinel
	}

	var b strings.Builder
	for _, m := range window {
		fmt.Fprintf(&b, "[%s] %s: %s", m.Timestamp.Format("15:04:05"), m.Role, m.Content)
		if m.ActionTaken != "" {
			switch {
			case m.ActionSuccess == nil:
				fmt.Fprintf(&b, " [Action: %s]", m.ActionTaken)
			case *m.ActionSuccess:
				fmt.Fprintf(&b, " [Executed: %s]", m.ActionTaken)
			default:
				fmt.Fprintf(&b, " [Failed: %s]", m.ActionTaken)
			}
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// AddFact upserts by key. A repeat observation updates the value and bumps
// the use count instead of duplicating. Inserting past the cap evicts the
// least-used facts until back at the cap.
func (c *Conversation) AddFact(category, key, value, sourceMessageID string) {
	now := time.Now()
	if f, ok := c.facts[key]; ok {
		f.Value = value
		f.Category = category
		f.UseCount++
		f.LastUsedAt = now
		return
	}

	c.facts[key] = &Fact{
		Category:        category,
		Key:             key,
		Value:           value,
		SourceMessageID: sourceMessageID,
		CreatedAt:       now,
		LastUsedAt:      now,
		UseCount:        1,
	}
	c.evictFacts()
}

func (c *Conversation) evictFacts() {
	if len(c.facts) <= c.factCap {
		return
	}
	all := make([]*Fact, 0, len(c.facts))
	for _, f := range c.facts {
		all = append(all, f)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].UseCount != all[j].UseCount {
			return all[i].UseCount < all[j].UseCount
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	for _, f := range all {
		if len(c.facts) <= c.factCap {
			break
		}
		delete(c.facts, f.Key)
	}
}

// Facts returns the fact set sorted by key for stable output.
func (c *Conversation) Facts() []Fact {
	out := make([]Fact, 0, len(c.facts))
	for _, f := range c.facts {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// FactStrings renders facts as "key: value" lines for the LLM context.
func (c *Conversation) FactStrings() []string {
	facts := c.Facts()
	out := make([]string, len(facts))
	for i, f := range facts {
		out[i] = f.Key + ": " + f.Value
	}
	return out
}

func (c *Conversation) LastAction() (string, map[string]any) {
	return c.lastAction, c.lastActionPayload
}

// Clear wipes messages and last-action state. Facts are durable
// preferences and survive a conversation reset.
func (c *Conversation) Clear() {
	c.messages = nil
	c.lastAction = ""
	c.lastActionPayload = nil
}

// trimMessages drains the oldest messages once the physical log exceeds
// twice the window, down to exactly the window. Amortizes trim cost.
func (c *Conversation) trimMessages() {
	if len(c.messages) <= 2*c.shortTermCap {
		return
	}
	keep := c.messages[len(c.messages)-c.shortTermCap:]
	c.messages = append(make([]Message, 0, len(keep)), keep...)
}
