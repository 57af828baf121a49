package intent

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeClient struct {
	reply string
	err   error
	user  string
}

func (f *fakeClient) Complete(_ context.Context, _, user string) (string, error) {
	f.user = user
	return f.reply, f.err
}

func TestResolveKnownAction(t *testing.T) {
	client := &fakeClient{reply: `{"action": "open_app", "parameters": {"app": "firefox"}}`}
	r := NewResolver(client)

	a := r.Resolve(context.Background(), "open firefox", VoiceContext{}, ConversationContext{})
	if a.Kind != KindOpenApp {
		t.Fatalf("expected open_app, got %s", a.Kind)
	}
	if a.StringParam("app") != "firefox" {
		t.Errorf("expected app=firefox, got %q", a.StringParam("app"))
	}
}

func TestResolveUnrecognizedActionFallsBack(t *testing.T) {
	client := &fakeClient{reply: `{"action": "launch_rocket", "parameters": {}}`}
	r := NewResolver(client)

	a := r.Resolve(context.Background(), "hello world", VoiceContext{}, ConversationContext{})
	if a.Kind != KindTypeText {
		t.Fatalf("expected type_text fallback, got %s", a.Kind)
	}
	if a.RefinedText != "hello world" {
		t.Errorf("fallback must carry the original transcript, got %q", a.RefinedText)
	}
}

func TestResolveClientErrorFallsBack(t *testing.T) {
	client := &fakeClient{err: errors.New("network down")}
	r := NewResolver(client)

	a := r.Resolve(context.Background(), "take a note", VoiceContext{}, ConversationContext{})
	if a.Kind != KindTypeText || a.RefinedText != "take a note" {
		t.Fatalf("expected type_text fallback with transcript, got %+v", a)
	}
}

func TestInterpretMalformedJSONFallsBack(t *testing.T) {
	a := Interpret("some words", "not json at all")
	if a.Kind != KindTypeText || a.RefinedText != "some words" {
		t.Fatalf("expected fallback, got %+v", a)
	}
}

func TestInterpretStripsMarkdownFences(t *testing.T) {
	raw := "```json\n{\"action\": \"no_action\"}\n```"
	a := Interpret("x", raw)
	if a.Kind != KindNoAction {
		t.Fatalf("expected no_action, got %s", a.Kind)
	}
}

func TestInterpretMultiStepKeepsRawStepNames(t *testing.T) {
	raw := `{
		"action": "multi_step",
		"steps": [
			{"action": "open_app", "parameters": {"app": "spotify"}},
			{"action": "bogus_step", "parameters": {}}
		]
	}`
	a := Interpret("x", raw)
	if a.Kind != KindMultiStep {
		t.Fatalf("expected multi_step, got %s", a.Kind)
	}
	if len(a.Steps) != 2 {
		t.Fatalf("steps must be preserved verbatim, got %d", len(a.Steps))
	}
	if a.Steps[1].Action != "bogus_step" {
		t.Errorf("unknown step names are kept for the dispatcher to skip, got %q", a.Steps[1].Action)
	}
}

func TestParseKindNormalizes(t *testing.T) {
	if k, ok := ParseKind("  Type_Text "); !ok || k != KindTypeText {
		t.Errorf("expected normalized type_text, got %q ok=%v", k, ok)
	}
	if _, ok := ParseKind("definitely_not_real"); ok {
		t.Error("unknown kind must not parse")
	}
}

func TestBuildUserPromptIncludesContext(t *testing.T) {
	client := &fakeClient{reply: `{"action": "no_action"}`}
	r := NewResolver(client)

	r.Resolve(context.Background(), "what did I say", VoiceContext{
		Platform:     "linux",
		Integrations: []string{"spotify", "system"},
	}, ConversationContext{
		HistoryText:      "[10:00:00] user: hello",
		LastAction:       "open_app",
		ClipboardPreview: "some copied text",
		FactStrings:      []string{"editor: vim"},
	})

	for _, want := range []string{"what did I say", "spotify", "[10:00:00] user: hello", "open_app", "some copied text", "editor: vim"} {
		if !strings.Contains(client.user, want) {
			t.Errorf("prompt missing %q:\n%s", want, client.user)
		}
	}
}
