package osact

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/atotto/clipboard"
)

// Surface is the thin OS action boundary: keystroke injection, shell
// dispatch, URI opening and clipboard access.
type Surface interface {
	TypeText(text string) error
	RunShellCommand(command string) (string, error)
	OpenURI(uri string) error
	ReadClipboard() (string, error)
	WriteClipboard(text string) error
}

// Linux implements Surface with xdotool, sh and xdg-open.
type Linux struct{}

func NewLinux() *Linux { return &Linux{} }

func (Linux) TypeText(text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	out, err := exec.Command("xdotool", "type", "--delay", "12", "--", text).CombinedOutput()
	if err != nil {
		return fmt.Errorf("xdotool type: %w (%s)", err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (Linux) RunShellCommand(command string) (string, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return "", errors.New("empty command")
	}
	out, err := exec.Command("sh", "-c", command).CombinedOutput()
	if err != nil {
		return strings.TrimSpace(string(out)), fmt.Errorf("sh -c %q: %w", command, err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (Linux) OpenURI(uri string) error {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return errors.New("empty uri")
	}
	if err := exec.Command("xdg-open", uri).Start(); err != nil {
		return fmt.Errorf("xdg-open %s: %w", uri, err)
	}
	return nil
}

func (Linux) ReadClipboard() (string, error) {
	return clipboard.ReadAll()
}

func (Linux) WriteClipboard(text string) error {
	return clipboard.WriteAll(text)
}
