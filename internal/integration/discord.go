package integration

import (
	"fmt"
	"strings"
)

// Discord drives the Discord client's global shortcuts via xdotool key
// injection. Requires the stock mute/deafen keybindings.
type Discord struct {
	runner Runner
}

func NewDiscord(runner Runner) *Discord {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Discord{runner: runner}
}

func (d *Discord) Name() string { return "discord" }

func (d *Discord) Available() bool {
	return commandExists("xdotool")
}

func (d *Discord) Actions() []ActionDescriptor {
	return []ActionDescriptor{
		{ID: "discord_toggle_mute", Name: "Toggle mute", Description: "Mute or unmute the microphone", Examples: []string{"mute discord", "unmute me"}},
		{ID: "discord_toggle_deafen", Name: "Toggle deafen", Description: "Deafen or undeafen", Examples: []string{"deafen discord"}},
	}
}

func (d *Discord) Execute(actionID string, _ map[string]any) (Result, error) {
	var keys string
	switch strings.TrimPrefix(actionID, "discord_") {
	case "toggle_mute":
		keys = "ctrl+shift+m"
	case "toggle_deafen":
		keys = "ctrl+shift+d"
	default:
		return Result{}, fmt.Errorf("unknown discord action: %s", actionID)
	}

	if _, err := d.runner.Run("xdotool", "key", keys); err != nil {
		return Result{}, fmt.Errorf("xdotool key %s: %w", keys, err)
	}
	return Result{Success: true, Message: "Discord: " + strings.TrimPrefix(actionID, "discord_")}, nil
}
