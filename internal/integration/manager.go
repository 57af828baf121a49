package integration

import (
	"fmt"
	"sort"
	"sync"
)

// Manager is the name-keyed capability registry. Execution is gated by two
// independent flags: the user's enabled toggle and the integration's own
// availability check.
type Manager struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

type entry struct {
	integration AppIntegration
	enabled     bool
}

func NewManager() *Manager {
	return &Manager{entries: make(map[string]*entry)}
}

// Register adds an integration, enabled by default.
func (m *Manager) Register(i AppIntegration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := i.Name()
	if _, exists := m.entries[name]; exists {
		return fmt.Errorf("integration %s already registered", name)
	}
	m.entries[name] = &entry{integration: i, enabled: true}
	return nil
}

func (m *Manager) SetEnabled(name string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[name]
	if !ok {
		return fmt.Errorf("integration not found: %s", name)
	}
	e.enabled = enabled
	return nil
}

// Execute runs actionID on the named integration. The error message
// distinguishes "not found" from "disabled" from "not available".
func (m *Manager) Execute(name, actionID string, params map[string]any) (Result, error) {
	m.mu.RLock()
	e, ok := m.entries[name]
	m.mu.RUnlock()

	if !ok {
		return Result{}, fmt.Errorf("integration not found: %s", name)
	}
	if !e.enabled {
		return Result{}, fmt.Errorf("integration disabled: %s", name)
	}
	if !e.integration.Available() {
		return Result{}, fmt.Errorf("integration not available: %s", name)
	}
	return e.integration.Execute(actionID, params)
}

// Names lists registered integrations, sorted.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.entries))
	for name := range m.entries {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ActiveNames lists integrations that are both enabled and available.
func (m *Manager) ActiveNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.entries))
	for name, e := range m.entries {
		if e.enabled && e.integration.Available() {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// FindIntegrationForAction scans enabled+available integrations for one
// declaring the given action id. Used for reverse lookup and help.
func (m *Manager) FindIntegrationForAction(actionID string) (AppIntegration, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, e := range m.entries {
		if !e.enabled || !e.integration.Available() {
			continue
		}
		for _, d := range e.integration.Actions() {
			if d.ID == actionID {
				return e.integration, true
			}
		}
	}
	return nil, false
}

// Catalog returns every registered integration's descriptors keyed by name.
func (m *Manager) Catalog() map[string][]ActionDescriptor {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string][]ActionDescriptor, len(m.entries))
	for name, e := range m.entries {
		out[name] = e.integration.Actions()
	}
	return out
}
