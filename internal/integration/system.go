package integration

import (
	"fmt"
	"strconv"
	"strings"
)

// System covers host-level controls: PulseAudio volume, session lock,
// suspend. Volume handling follows the pactl sink-input pattern.
type System struct {
	runner Runner
}

func NewSystem(runner Runner) *System {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &System{runner: runner}
}

func (s *System) Name() string { return "system" }

func (s *System) Available() bool {
	return commandExists("pactl")
}

func (s *System) Actions() []ActionDescriptor {
	amount := ParameterDef{Name: "amount", Type: "number", Description: "Volume step in percent", Required: false}
	return []ActionDescriptor{
		{ID: "system_volume_up", Name: "Volume up", Description: "Raise master volume", Parameters: []ParameterDef{amount}, Examples: []string{"turn it up", "louder"}},
		{ID: "system_volume_down", Name: "Volume down", Description: "Lower master volume", Parameters: []ParameterDef{amount}, Examples: []string{"turn it down", "quieter"}},
		{ID: "system_volume_mute", Name: "Mute", Description: "Toggle master mute", Examples: []string{"mute the sound"}},
		{ID: "system_lock", Name: "Lock screen", Description: "Lock the current session", Examples: []string{"lock my screen"}},
		{ID: "system_suspend", Name: "Suspend", Description: "Suspend the machine", Examples: []string{"go to sleep"}},
	}
}

func (s *System) Execute(actionID string, params map[string]any) (Result, error) {
	sub := strings.TrimPrefix(actionID, "system_")
	switch sub {
	case "volume_up", "volume_down":
		step := volumeStep(params)
		sign := "+"
		if sub == "volume_down" {
			sign = "-"
		}
		arg := fmt.Sprintf("%s%d%%", sign, step)
		if _, err := s.runner.Run("pactl", "set-sink-volume", "@DEFAULT_SINK@", arg); err != nil {
			return Result{}, fmt.Errorf("pactl set-sink-volume: %w", err)
		}
		return Result{Success: true, Message: "Volume " + arg}, nil
	case "volume_mute":
		if _, err := s.runner.Run("pactl", "set-sink-mute", "@DEFAULT_SINK@", "toggle"); err != nil {
			return Result{}, fmt.Errorf("pactl set-sink-mute: %w", err)
		}
		return Result{Success: true, Message: "Mute toggled"}, nil
	case "lock":
		if _, err := s.runner.Run("loginctl", "lock-session"); err != nil {
			return Result{}, fmt.Errorf("loginctl lock-session: %w", err)
		}
		return Result{Success: true, Message: "Session locked"}, nil
	case "suspend":
		if _, err := s.runner.Run("systemctl", "suspend"); err != nil {
			return Result{}, fmt.Errorf("systemctl suspend: %w", err)
		}
		return Result{Success: true, Message: "Suspending"}, nil
	default:
		return Result{}, fmt.Errorf("unknown system action: %s", actionID)
	}
}

func volumeStep(params map[string]any) int {
	const def = 5
	if params == nil {
		return def
	}
	switch v := params["amount"].(type) {
	case float64:
		if v > 0 && v <= 100 {
			return int(v)
		}
	case int:
		if v > 0 && v <= 100 {
			return v
		}
	case string:
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			return n
		}
	}
	return def
}
