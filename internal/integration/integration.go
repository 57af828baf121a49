package integration

import (
	"os/exec"
	"strings"
)

// ParameterDef describes one parameter of an integration action,
// used for discovery and help surfaces.
type ParameterDef struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // "string" | "number" | "boolean"
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// ActionDescriptor is the static metadata an integration exposes per action.
type ActionDescriptor struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  []ParameterDef `json:"parameters,omitempty"`
	Examples    []string       `json:"examples,omitempty"`
}

// Result is the outcome of one integration action.
type Result struct {
	Success bool
	Message string
	Output  string
}

// AppIntegration is a named capability provider. Availability is an
// environment check (is the backing tool installed, is the app running);
// the enabled flag is a user toggle and lives in the manager.
type AppIntegration interface {
	Name() string
	Available() bool
	Actions() []ActionDescriptor
	Execute(actionID string, params map[string]any) (Result, error)
}

// Runner abstracts command execution so integrations stay testable.
type Runner interface {
	Run(name string, args ...string) (string, error)
}

// ExecRunner runs commands through os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(name string, args ...string) (string, error) {
	out, err := exec.Command(name, args...).CombinedOutput()
	return strings.TrimSpace(string(out)), err
}

func commandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
