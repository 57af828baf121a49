package clipboard

import (
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultSize   = 64
	DefaultExpiry = 30 * time.Minute
	previewLimit  = 200
)

// History keeps a bounded, time-expiring record of clipboard contents
// seen by the pipeline. Duplicate contents refresh their slot instead of
// occupying a new one.
type History struct {
	cache *expirable.LRU[string, time.Time]
}

func NewHistory(size int, ttl time.Duration) *History {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultExpiry
	}
	return &History{cache: expirable.NewLRU[string, time.Time](size, nil, ttl)}
}

func (h *History) Record(content string) {
	if strings.TrimSpace(content) == "" {
		return
	}
	h.cache.Add(content, time.Now())
}

// Recent lists remembered contents, oldest first.
func (h *History) Recent() []string {
	return h.cache.Keys()
}

func (h *History) Len() int {
	return h.cache.Len()
}

// Preview truncates clipboard content for LLM context.
func Preview(content string) string {
	content = strings.TrimSpace(content)
	if len(content) > previewLimit {
		return content[:previewLimit] + "…"
	}
	return content
}
