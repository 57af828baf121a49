package integration

import (
	"fmt"
	"strings"
)

// Spotify controls the Spotify desktop client through playerctl's MPRIS
// interface.
type Spotify struct {
	runner Runner
}

func NewSpotify(runner Runner) *Spotify {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Spotify{runner: runner}
}

func (s *Spotify) Name() string { return "spotify" }

func (s *Spotify) Available() bool {
	return commandExists("playerctl")
}

func (s *Spotify) Actions() []ActionDescriptor {
	return []ActionDescriptor{
		{ID: "spotify_play_pause", Name: "Play/Pause", Description: "Toggle playback", Examples: []string{"pause the music", "resume spotify"}},
		{ID: "spotify_next", Name: "Next track", Description: "Skip to the next track", Examples: []string{"next song", "skip this"}},
		{ID: "spotify_previous", Name: "Previous track", Description: "Go back one track", Examples: []string{"previous song", "play that again"}},
		{ID: "spotify_stop", Name: "Stop", Description: "Stop playback", Examples: []string{"stop the music"}},
	}
}

func (s *Spotify) Execute(actionID string, _ map[string]any) (Result, error) {
	var verb string
	switch strings.TrimPrefix(actionID, "spotify_") {
	case "play_pause":
		verb = "play-pause"
	case "next":
		verb = "next"
	case "previous":
		verb = "previous"
	case "stop":
		verb = "stop"
	default:
		return Result{}, fmt.Errorf("unknown spotify action: %s", actionID)
	}

	out, err := s.runner.Run("playerctl", "-p", "spotify", verb)
	if err != nil {
		return Result{}, fmt.Errorf("playerctl %s: %w", verb, err)
	}
	return Result{Success: true, Message: "Spotify: " + verb, Output: out}, nil
}
