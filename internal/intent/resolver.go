package intent

import (
	"context"
	"encoding/json"
	"fmt"
	log "log/slog"
	"strings"
)

const systemPrompt = `
You are MURMUR-INTENT, the intent classifier for a voice-driven desktop assistant.
Your ONLY job is to convert the user's utterance into a minimal structured JSON.

GENERAL RULES:
1. Do NOT converse unless the action is "respond" or "clarify".
2. Do NOT add explanations.
3. Output ONLY JSON. No markdown.
4. Never invent parameters the utterance does not contain.

OUTPUT FORMAT:
{
  "action": "<one of the actions below>",
  "parameters": { ... },
  "refined_text": "<cleaned-up dictation text, only for type_text>",
  "response": "<natural language reply, only for respond/clarify>",
  "requires_confirmation": <bool, true for destructive operations>,
  "steps": [ {"action": "...", "parameters": {...}}, ... ]  (only for multi_step),
  "facts": [ {"category": "...", "key": "...", "value": "..."}, ... ]  (durable user preferences stated in the utterance, usually empty)
}

ACTIONS (canonical, snake_case):
respond, clarify, clipboard_format, clipboard_translate, clipboard_summarize,
clipboard_clean, spotify_control, discord_control, system_control,
custom_command, type_text, open_app, open_url, web_search, volume_control,
send_email, run_command, multi_step, no_action

PARAMETER SCHEMA:
- spotify_control/discord_control/system_control: {"action": "<sub-action>"}
- custom_command: {"name": "<command name>"}
- open_app: {"app": "<application>"}
- open_url: {"url": "<url>"}
- web_search: {"query": "<search terms>"}
- volume_control: {"direction": "up"|"down"|"mute", "amount": <int percent>}
- send_email: {"to": "...", "subject": "...", "body": "..."}
- run_command: {"command": "<shell command>"}
- type_text: {"text": "<text>"} (prefer refined_text)

If the utterance is plain dictation, use type_text with refined_text.
If the meaning is unclear, use clarify with a short question in response.
Be strict and minimal.
`

// CompletionClient is the raw LLM boundary the resolver talks to.
type CompletionClient interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// VoiceContext is the static side of the prompt: what this machine can do.
type VoiceContext struct {
	Platform       string
	Integrations   []string
	CustomCommands []string
}

// ConversationContext bundles everything the memory layer contributes.
type ConversationContext struct {
	HistoryText       string
	LastAction        string
	LastActionPayload map[string]any
	ClipboardPreview  string
	FactStrings       []string
}

// Resolver maps a transcript plus context to a typed Action. It never
// fails: provider errors and unrecognized output both degrade to a
// type_text fallback carrying the raw transcript.
type Resolver struct {
	client CompletionClient
}

func NewResolver(client CompletionClient) *Resolver {
	return &Resolver{client: client}
}

func (r *Resolver) Resolve(ctx context.Context, transcript string, vc VoiceContext, cc ConversationContext) Action {
	user := buildUserPrompt(transcript, vc, cc)

	raw, err := r.client.Complete(ctx, systemPrompt, user)
	if err != nil {
		log.Warn("intent resolution failed, falling back to dictation", "err", err)
		return FallbackTypeText(transcript)
	}
	return Interpret(transcript, raw)
}

func buildUserPrompt(transcript string, vc VoiceContext, cc ConversationContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Utterance: %s\n\n", transcript)
	fmt.Fprintf(&b, "Platform: %s\n", vc.Platform)
	if len(vc.Integrations) > 0 {
		fmt.Fprintf(&b, "Available integrations: %s\n", strings.Join(vc.Integrations, ", "))
	}
	if len(vc.CustomCommands) > 0 {
		fmt.Fprintf(&b, "Custom commands: %s\n", strings.Join(vc.CustomCommands, ", "))
	}

	fmt.Fprintf(&b, "\nConversation so far:\n%s\n", cc.HistoryText)
	if cc.LastAction != "" {
		fmt.Fprintf(&b, "\nLast action: %s", cc.LastAction)
		if len(cc.LastActionPayload) > 0 {
			if data, err := json.Marshal(cc.LastActionPayload); err == nil {
				fmt.Fprintf(&b, " %s", data)
			}
		}
		b.WriteByte('\n')
	}
	if cc.ClipboardPreview != "" {
		fmt.Fprintf(&b, "\nClipboard preview: %s\n", cc.ClipboardPreview)
	}
	if len(cc.FactStrings) > 0 {
		fmt.Fprintf(&b, "\nKnown facts:\n")
		for _, f := range cc.FactStrings {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}
	return b.String()
}

type rawResult struct {
	Action               string          `json:"action"`
	Parameters           map[string]any  `json:"parameters"`
	RefinedText          string          `json:"refined_text"`
	Response             string          `json:"response"`
	RequiresConfirmation bool            `json:"requires_confirmation"`
	Steps                []Step          `json:"steps"`
	Facts                []FactCandidate `json:"facts"`
}

// Interpret maps the provider's raw output onto the closed action set.
// Anything unparseable or unrecognized becomes dictation of the original
// transcript.
func Interpret(transcript, raw string) Action {
	var out rawResult
	if err := json.Unmarshal([]byte(stripFences(raw)), &out); err != nil {
		log.Warn("unparseable intent output, falling back to dictation", "err", err, "raw", raw)
		return FallbackTypeText(transcript)
	}

	kind, ok := ParseKind(out.Action)
	if !ok {
		log.Warn("unrecognized action kind, falling back to dictation", "action", out.Action)
		return FallbackTypeText(transcript)
	}

	return Action{
		Kind:                 kind,
		Payload:              out.Parameters,
		RefinedText:          out.RefinedText,
		Response:             out.Response,
		RequiresConfirmation: out.RequiresConfirmation,
		Steps:                out.Steps,
		Facts:                out.Facts,
	}
}

// stripFences tolerates providers that wrap JSON in markdown fences.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}
