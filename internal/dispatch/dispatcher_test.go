package dispatch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"murmur/internal/clipboard"
	"murmur/internal/integration"
	"murmur/internal/intent"
)

type fakeSurface struct {
	typed      []string
	shellCmds  []string
	openedURIs []string
	clipIn     string
	clipOut    string

	typeErr  error
	shellErr error
	readErr  error
	writeErr error
}

func (f *fakeSurface) TypeText(text string) error {
	if f.typeErr != nil {
		return f.typeErr
	}
	f.typed = append(f.typed, text)
	return nil
}

func (f *fakeSurface) RunShellCommand(command string) (string, error) {
	if f.shellErr != nil {
		return "", f.shellErr
	}
	f.shellCmds = append(f.shellCmds, command)
	return "ok", nil
}

func (f *fakeSurface) OpenURI(uri string) error {
	f.openedURIs = append(f.openedURIs, uri)
	return nil
}

func (f *fakeSurface) ReadClipboard() (string, error) {
	if f.readErr != nil {
		return "", f.readErr
	}
	return f.clipIn, nil
}

func (f *fakeSurface) WriteClipboard(text string) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.clipOut = text
	return nil
}

type fakeTransformer struct {
	out  string
	err  error
	ops  []string
	seen []string
}

func (f *fakeTransformer) ProcessClipboard(_ context.Context, content, operation string, _ map[string]any) (string, error) {
	f.ops = append(f.ops, operation)
	f.seen = append(f.seen, content)
	if f.err != nil {
		return "", f.err
	}
	return f.out, nil
}

type fakeCommandStore struct {
	commands map[string]string
}

func (f *fakeCommandStore) GetCustomCommand(name string) (string, error) {
	cmd, ok := f.commands[name]
	if !ok {
		return "", errors.New("custom command not found: " + name)
	}
	return cmd, nil
}

type scriptedIntegration struct {
	name     string
	calls    []string
	failNext bool
}

func (s *scriptedIntegration) Name() string    { return s.name }
func (s *scriptedIntegration) Available() bool { return true }
func (s *scriptedIntegration) Actions() []integration.ActionDescriptor {
	return nil
}
func (s *scriptedIntegration) Execute(actionID string, _ map[string]any) (integration.Result, error) {
	s.calls = append(s.calls, actionID)
	if s.failNext {
		s.failNext = false
		return integration.Result{Success: false, Message: "failed"}, nil
	}
	return integration.Result{Success: true, Message: "done: " + actionID}, nil
}

func newTestDispatcher(t *testing.T, surface *fakeSurface) (*Dispatcher, *scriptedIntegration, *fakeTransformer) {
	t.Helper()

	mgr := integration.NewManager()
	spotify := &scriptedIntegration{name: "spotify"}
	system := &scriptedIntegration{name: "system"}
	if err := mgr.Register(spotify); err != nil {
		t.Fatal(err)
	}
	if err := mgr.Register(system); err != nil {
		t.Fatal(err)
	}

	transformer := &fakeTransformer{out: "transformed"}
	store := &fakeCommandStore{commands: map[string]string{"deploy": "make deploy"}}
	hist := clipboard.NewHistory(8, time.Minute)

	d := New(surface, mgr, transformer, store, hist)
	d.settleDelay = 0
	return d, spotify, transformer
}

func TestRespondSurfacesResponseOnly(t *testing.T) {
	surface := &fakeSurface{}
	d, _, _ := newTestDispatcher(t, surface)

	res, err := d.Dispatch(context.Background(), intent.Action{
		Kind:     intent.KindRespond,
		Response: "It is 3pm.",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success || res.Message != "It is 3pm." {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(surface.typed) != 0 || len(surface.shellCmds) != 0 {
		t.Fatal("respond must not touch the OS surface")
	}
}

func TestConfirmationBlocksExecution(t *testing.T) {
	surface := &fakeSurface{}
	d, _, _ := newTestDispatcher(t, surface)

	res, err := d.Dispatch(context.Background(), intent.Action{
		Kind:                 intent.KindRunCommand,
		Payload:              map[string]any{"command": "rm -rf /tmp/x"},
		RequiresConfirmation: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success || !strings.Contains(res.Message, "Confirmation required") {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(surface.shellCmds) != 0 {
		t.Fatal("confirmation-gated command must not run")
	}
}

func TestClipboardTransformRoundTrip(t *testing.T) {
	surface := &fakeSurface{clipIn: "raw text"}
	d, _, transformer := newTestDispatcher(t, surface)

	res, err := d.Dispatch(context.Background(), intent.Action{Kind: intent.KindClipboardSummarize})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success {
		t.Fatalf("unexpected result: %+v", res)
	}
	if surface.clipOut != "transformed" {
		t.Fatalf("clipboard not written: %q", surface.clipOut)
	}
	if len(transformer.ops) != 1 || transformer.ops[0] != "summarize" {
		t.Fatalf("wrong operations: %v", transformer.ops)
	}
	if transformer.seen[0] != "raw text" {
		t.Fatalf("transformer saw %q", transformer.seen[0])
	}
}

func TestClipboardEmptyIsDistinctError(t *testing.T) {
	surface := &fakeSurface{clipIn: "   "}
	d, _, _ := newTestDispatcher(t, surface)

	_, err := d.Dispatch(context.Background(), intent.Action{Kind: intent.KindClipboardFormat})
	if !errors.Is(err, ErrClipboardEmpty) {
		t.Fatalf("expected ErrClipboardEmpty, got %v", err)
	}
}

func TestClipboardWriteFailureHasNoRollback(t *testing.T) {
	surface := &fakeSurface{clipIn: "original", writeErr: errors.New("xclip gone")}
	d, _, _ := newTestDispatcher(t, surface)

	_, err := d.Dispatch(context.Background(), intent.Action{Kind: intent.KindClipboardClean})
	if err == nil {
		t.Fatal("expected write error")
	}
	if surface.clipOut != "" {
		t.Fatal("no write should have landed")
	}
}

func TestIntegrationActionComposition(t *testing.T) {
	surface := &fakeSurface{}
	d, spotify, _ := newTestDispatcher(t, surface)

	cases := []struct {
		payload map[string]any
		want    string
	}{
		{nil, "spotify_play_pause"},
		{map[string]any{"action": "next"}, "spotify_next"},
	}
	for _, tc := range cases {
		if _, err := d.Dispatch(context.Background(), intent.Action{
			Kind:    intent.KindSpotifyControl,
			Payload: tc.payload,
		}); err != nil {
			t.Fatal(err)
		}
	}
	if len(spotify.calls) != 2 || spotify.calls[0] != cases[0].want || spotify.calls[1] != cases[1].want {
		t.Fatalf("calls: %v", spotify.calls)
	}
}

func TestVolumeControlDirections(t *testing.T) {
	surface := &fakeSurface{}
	d, _, _ := newTestDispatcher(t, surface)

	for _, tc := range []struct {
		direction string
		want      string
	}{
		{"", "system_volume_up"},
		{"up", "system_volume_up"},
		{"down", "system_volume_down"},
		{"mute", "system_volume_mute"},
	} {
		res, err := d.Dispatch(context.Background(), intent.Action{
			Kind:    intent.KindVolumeControl,
			Payload: map[string]any{"direction": tc.direction},
		})
		if err != nil {
			t.Fatalf("%s: %v", tc.direction, err)
		}
		if !strings.Contains(res.Message, tc.want) {
			t.Fatalf("%s: got %q, want %q", tc.direction, res.Message, tc.want)
		}
	}
}

func TestTypeTextFallbackChain(t *testing.T) {
	surface := &fakeSurface{}
	d, _, _ := newTestDispatcher(t, surface)

	// refined text wins over payload
	res, err := d.Dispatch(context.Background(), intent.Action{
		Kind:        intent.KindTypeText,
		RefinedText: "Hello, world.",
		Payload:     map[string]any{"text": "ignored"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Output != "Hello, world." {
		t.Fatalf("output: %q", res.Output)
	}

	// payload used when no refined text
	if _, err := d.Dispatch(context.Background(), intent.Action{
		Kind:    intent.KindTypeText,
		Payload: map[string]any{"text": "from payload"},
	}); err != nil {
		t.Fatal(err)
	}

	// nothing at all is a soft success
	res, err = d.Dispatch(context.Background(), intent.Action{Kind: intent.KindTypeText})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success || res.Message != "Nothing to type." {
		t.Fatalf("unexpected result: %+v", res)
	}

	if len(surface.typed) != 2 || surface.typed[0] != "Hello, world." || surface.typed[1] != "from payload" {
		t.Fatalf("typed: %v", surface.typed)
	}
}

func TestCustomCommandLookupAndRun(t *testing.T) {
	surface := &fakeSurface{}
	d, _, _ := newTestDispatcher(t, surface)

	res, err := d.Dispatch(context.Background(), intent.Action{
		Kind:    intent.KindCustomCommand,
		Payload: map[string]any{"name": "deploy"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success || len(surface.shellCmds) != 1 || surface.shellCmds[0] != "make deploy" {
		t.Fatalf("result %+v, commands %v", res, surface.shellCmds)
	}

	if _, err := d.Dispatch(context.Background(), intent.Action{
		Kind:    intent.KindCustomCommand,
		Payload: map[string]any{"name": "nope"},
	}); err == nil {
		t.Fatal("unknown custom command should error")
	}
}

func TestWebSearchEscapesQuery(t *testing.T) {
	surface := &fakeSurface{}
	d, _, _ := newTestDispatcher(t, surface)

	if _, err := d.Dispatch(context.Background(), intent.Action{
		Kind:    intent.KindWebSearch,
		Payload: map[string]any{"query": "go 1.25 release notes"},
	}); err != nil {
		t.Fatal(err)
	}
	if len(surface.openedURIs) != 1 {
		t.Fatal("no URI opened")
	}
	if got := surface.openedURIs[0]; !strings.Contains(got, "go+1.25+release+notes") {
		t.Fatalf("query not escaped: %q", got)
	}
}

func TestOpenURLAddsScheme(t *testing.T) {
	surface := &fakeSurface{}
	d, _, _ := newTestDispatcher(t, surface)

	if _, err := d.Dispatch(context.Background(), intent.Action{
		Kind:    intent.KindOpenURL,
		Payload: map[string]any{"url": "example.com"},
	}); err != nil {
		t.Fatal(err)
	}
	if surface.openedURIs[0] != "https://example.com" {
		t.Fatalf("uri: %q", surface.openedURIs[0])
	}
}

func TestSendEmailBuildsMailto(t *testing.T) {
	surface := &fakeSurface{}
	d, _, _ := newTestDispatcher(t, surface)

	if _, err := d.Dispatch(context.Background(), intent.Action{
		Kind: intent.KindSendEmail,
		Payload: map[string]any{
			"to":      "alex@example.com",
			"subject": "standup notes",
		},
	}); err != nil {
		t.Fatal(err)
	}
	uri := surface.openedURIs[0]
	if !strings.HasPrefix(uri, "mailto:alex@example.com?") || !strings.Contains(uri, "subject=standup+notes") {
		t.Fatalf("uri: %q", uri)
	}
}

func TestMultiStepContinuesPastFailure(t *testing.T) {
	surface := &fakeSurface{}
	d, spotify, _ := newTestDispatcher(t, surface)
	spotify.failNext = true

	res, err := d.Dispatch(context.Background(), intent.Action{
		Kind: intent.KindMultiStep,
		Steps: []intent.Step{
			{Action: "spotify_control", Parameters: map[string]any{"action": "next"}},
			{Action: "type_text", Parameters: map[string]any{"text": "still here"}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Message != "Completed 1 of 2 steps." {
		t.Fatalf("message: %q", res.Message)
	}
	if !res.Success {
		t.Fatal("partial success should still report success")
	}
	if len(surface.typed) != 1 || surface.typed[0] != "still here" {
		t.Fatalf("second step did not run: %v", surface.typed)
	}
}

func TestMultiStepSkipsUnknownActionsSilently(t *testing.T) {
	surface := &fakeSurface{}
	d, _, _ := newTestDispatcher(t, surface)

	res, err := d.Dispatch(context.Background(), intent.Action{
		Kind: intent.KindMultiStep,
		Steps: []intent.Step{
			{Action: "launch_rocket"},
			{Action: "type_text", Parameters: map[string]any{"text": "ok"}},
			{Action: "teleport"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Message != "Completed 1 of 1 steps." {
		t.Fatalf("message: %q", res.Message)
	}
}

func TestMultiStepAllUnknown(t *testing.T) {
	surface := &fakeSurface{}
	d, _, _ := newTestDispatcher(t, surface)

	res, err := d.Dispatch(context.Background(), intent.Action{
		Kind:  intent.KindMultiStep,
		Steps: []intent.Step{{Action: "launch_rocket"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success || res.Message != "No runnable steps." {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestMultiStepDepthCap(t *testing.T) {
	surface := &fakeSurface{}
	d, _, _ := newTestDispatcher(t, surface)

	// drive dispatch directly past the cap
	if _, err := d.dispatch(context.Background(), intent.Action{Kind: intent.KindTypeText}, maxStepDepth+1); !errors.Is(err, ErrMaxDepth) {
		t.Fatalf("expected ErrMaxDepth, got %v", err)
	}
	if len(surface.typed) != 0 {
		t.Fatal("over-depth action must not execute")
	}
}

func TestNoActionIsTrivialSuccess(t *testing.T) {
	surface := &fakeSurface{}
	d, _, _ := newTestDispatcher(t, surface)

	res, err := d.Dispatch(context.Background(), intent.Action{Kind: intent.KindNoAction})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success {
		t.Fatalf("unexpected result: %+v", res)
	}
}
