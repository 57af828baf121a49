package intent

import "strings"

// Kind is one of the closed set of action kinds the pipeline can execute.
type Kind string

const (
	KindRespond            Kind = "respond"
	KindClarify            Kind = "clarify"
	KindClipboardFormat    Kind = "clipboard_format"
	KindClipboardTranslate Kind = "clipboard_translate"
	KindClipboardSummarize Kind = "clipboard_summarize"
	KindClipboardClean     Kind = "clipboard_clean"
	KindSpotifyControl     Kind = "spotify_control"
	KindDiscordControl     Kind = "discord_control"
	KindSystemControl      Kind = "system_control"
	KindCustomCommand      Kind = "custom_command"
	KindTypeText           Kind = "type_text"
	KindOpenApp            Kind = "open_app"
	KindOpenURL            Kind = "open_url"
	KindWebSearch          Kind = "web_search"
	KindVolumeControl      Kind = "volume_control"
	KindSendEmail          Kind = "send_email"
	KindRunCommand         Kind = "run_command"
	KindMultiStep          Kind = "multi_step"
	KindNoAction           Kind = "no_action"
)

var knownKinds = map[Kind]bool{
	KindRespond:            true,
	KindClarify:            true,
	KindClipboardFormat:    true,
	KindClipboardTranslate: true,
	KindClipboardSummarize: true,
	KindClipboardClean:     true,
	KindSpotifyControl:     true,
	KindDiscordControl:     true,
	KindSystemControl:      true,
	KindCustomCommand:      true,
	KindTypeText:           true,
	KindOpenApp:            true,
	KindOpenURL:            true,
	KindWebSearch:          true,
	KindVolumeControl:      true,
	KindSendEmail:          true,
	KindRunCommand:         true,
	KindMultiStep:          true,
	KindNoAction:           true,
}

// ParseKind normalizes an action string from the provider.
func ParseKind(s string) (Kind, bool) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	return k, knownKinds[k]
}

// Step is one child of a multi-step action. The action name stays raw:
// unknown names are skipped at dispatch, not rejected at parse.
type Step struct {
	Action     string         `json:"action"`
	Parameters map[string]any `json:"parameters"`
}

// FactCandidate is a durable preference the resolver extracted from the
// utterance. The memory layer decides retention.
type FactCandidate struct {
	Category string `json:"category"`
	Key      string `json:"key"`
	Value    string `json:"value"`
}

// Action is the typed result of intent resolution, consumed exactly once
// by the dispatcher.
type Action struct {
	Kind                 Kind
	Payload              map[string]any
	RefinedText          string
	Response             string
	RequiresConfirmation bool
	Steps                []Step
	Facts                []FactCandidate
}

// FallbackTypeText degrades any unresolvable utterance to plain dictation.
// This is the pipeline's resilience guarantee: speech is never lost.
func FallbackTypeText(transcript string) Action {
	return Action{
		Kind:        KindTypeText,
		RefinedText: transcript,
	}
}

// StringParam fetches a string payload field, trimmed.
func (a Action) StringParam(key string) string {
	if a.Payload == nil {
		return ""
	}
	if v, ok := a.Payload[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}
