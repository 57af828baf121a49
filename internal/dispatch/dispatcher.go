package dispatch

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"net/url"
	"strings"
	"time"

	"murmur/internal/clipboard"
	"murmur/internal/integration"
	"murmur/internal/intent"
	"murmur/internal/osact"
)

var (
	ErrClipboardEmpty = errors.New("clipboard is empty")
	ErrMaxDepth       = errors.New("multi-step nesting too deep")
)

const (
	stepSettleDelay = 500 * time.Millisecond
	maxStepDepth    = 4
	searchURL       = "https://duckduckgo.com/?q="
)

// CommandResult is what every dispatched action settles into.
type CommandResult struct {
	Success bool
	Message string
	Output  string
}

// ClipboardTransformer rewrites clipboard text (format/translate/
// summarize/clean).
type ClipboardTransformer interface {
	ProcessClipboard(ctx context.Context, content, operation string, params map[string]any) (string, error)
}

// CommandStore resolves stored custom voice commands.
type CommandStore interface {
	GetCustomCommand(name string) (string, error)
}

// Dispatcher routes a typed action to an OS effect, a clipboard
// transform, an integration call, or a recursive multi-step sequence.
// One invocation per action; multi-step recurses into Dispatch itself.
type Dispatcher struct {
	os           osact.Surface
	integrations *integration.Manager
	transformer  ClipboardTransformer
	commands     CommandStore
	history      *clipboard.History

	settleDelay time.Duration
}

func New(surface osact.Surface, integrations *integration.Manager, transformer ClipboardTransformer, commands CommandStore, history *clipboard.History) *Dispatcher {
	return &Dispatcher{
		os:           surface,
		integrations: integrations,
		transformer:  transformer,
		commands:     commands,
		history:      history,
		settleDelay:  stepSettleDelay,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, action intent.Action) (CommandResult, error) {
	return d.dispatch(ctx, action, 0)
}

func (d *Dispatcher) dispatch(ctx context.Context, action intent.Action, depth int) (CommandResult, error) {
	if depth > maxStepDepth {
		return CommandResult{}, ErrMaxDepth
	}

	if action.RequiresConfirmation && depth == 0 {
		return CommandResult{
			Success: true,
			Message: fmt.Sprintf("Confirmation required before running %s. Say it again to confirm.", action.Kind),
		}, nil
	}

	switch action.Kind {
	case intent.KindRespond, intent.KindClarify:
		return CommandResult{Success: true, Message: action.Response}, nil

	case intent.KindClipboardFormat:
		return d.clipboardTransform(ctx, action, "format")
	case intent.KindClipboardTranslate:
		return d.clipboardTransform(ctx, action, "translate")
	case intent.KindClipboardSummarize:
		return d.clipboardTransform(ctx, action, "summarize")
	case intent.KindClipboardClean:
		return d.clipboardTransform(ctx, action, "clean")

	case intent.KindSpotifyControl:
		return d.integrationCall("spotify", "play_pause", action)
	case intent.KindDiscordControl:
		return d.integrationCall("discord", "toggle_mute", action)
	case intent.KindSystemControl:
		return d.integrationCall("system", "lock", action)

	case intent.KindVolumeControl:
		return d.volumeControl(action)

	case intent.KindCustomCommand:
		return d.customCommand(action)

	case intent.KindTypeText:
		return d.typeText(action)

	case intent.KindOpenApp:
		return d.openApp(action)
	case intent.KindOpenURL:
		return d.openURL(action)
	case intent.KindWebSearch:
		return d.webSearch(action)
	case intent.KindSendEmail:
		return d.sendEmail(action)
	case intent.KindRunCommand:
		return d.runCommand(action)

	case intent.KindMultiStep:
		return d.multiStep(ctx, action, depth)

	case intent.KindNoAction:
		return CommandResult{Success: true, Message: "Nothing to do."}, nil

	default:
		return CommandResult{}, fmt.Errorf("unsupported action kind: %s", action.Kind)
	}
}

// clipboardTransform is a read-transform-write cycle. There is no
// rollback: if the write-back fails the transform output is lost, not
// re-queued.
func (d *Dispatcher) clipboardTransform(ctx context.Context, action intent.Action, operation string) (CommandResult, error) {
	content, err := d.os.ReadClipboard()
	if err != nil {
		return CommandResult{}, fmt.Errorf("read clipboard: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		return CommandResult{}, ErrClipboardEmpty
	}
	d.recordClipboard(content)

	out, err := d.transformer.ProcessClipboard(ctx, content, operation, action.Payload)
	if err != nil {
		return CommandResult{}, err
	}

	if err := d.os.WriteClipboard(out); err != nil {
		return CommandResult{}, fmt.Errorf("write clipboard: %w", err)
	}
	d.recordClipboard(out)

	return CommandResult{
		Success: true,
		Message: fmt.Sprintf("Clipboard %sed.", operation),
		Output:  clipboard.Preview(out),
	}, nil
}

func (d *Dispatcher) integrationCall(name, defaultSub string, action intent.Action) (CommandResult, error) {
	sub := action.StringParam("action")
	if sub == "" {
		sub = defaultSub
	}
	actionID := name + "_" + sub

	res, err := d.integrations.Execute(name, actionID, action.Payload)
	if err != nil {
		return CommandResult{}, err
	}
	return CommandResult{Success: res.Success, Message: res.Message, Output: res.Output}, nil
}

func (d *Dispatcher) volumeControl(action intent.Action) (CommandResult, error) {
	sub := "volume_up"
	switch action.StringParam("direction") {
	case "down":
		sub = "volume_down"
	case "mute":
		sub = "volume_mute"
	}

	res, err := d.integrations.Execute("system", "system_"+sub, action.Payload)
	if err != nil {
		return CommandResult{}, err
	}
	return CommandResult{Success: res.Success, Message: res.Message, Output: res.Output}, nil
}

func (d *Dispatcher) customCommand(action intent.Action) (CommandResult, error) {
	name := action.StringParam("name")
	if name == "" {
		return CommandResult{Success: false, Message: "No command name given."}, nil
	}
	command, err := d.commands.GetCustomCommand(name)
	if err != nil {
		return CommandResult{}, err
	}
	out, err := d.os.RunShellCommand(command)
	if err != nil {
		return CommandResult{}, fmt.Errorf("custom command %s: %w", name, err)
	}
	return CommandResult{Success: true, Message: "Ran " + name, Output: out}, nil
}

// typeText resolves text from refined text first, then the payload, then
// empty; empty text is "nothing to do", not an error.
func (d *Dispatcher) typeText(action intent.Action) (CommandResult, error) {
	text := strings.TrimSpace(action.RefinedText)
	if text == "" {
		text = action.StringParam("text")
	}
	if text == "" {
		return CommandResult{Success: true, Message: "Nothing to type."}, nil
	}
	if err := d.os.TypeText(text); err != nil {
		return CommandResult{}, fmt.Errorf("type text: %w", err)
	}
	return CommandResult{Success: true, Message: "Typed.", Output: text}, nil
}

func (d *Dispatcher) openApp(action intent.Action) (CommandResult, error) {
	app := action.StringParam("app")
	if app == "" {
		return CommandResult{Success: false, Message: "No application given."}, nil
	}
	if _, err := d.os.RunShellCommand(fmt.Sprintf("nohup %s >/dev/null 2>&1 &", app)); err != nil {
		return CommandResult{}, fmt.Errorf("open app %s: %w", app, err)
	}
	return CommandResult{Success: true, Message: "Opened " + app}, nil
}

func (d *Dispatcher) openURL(action intent.Action) (CommandResult, error) {
	u := action.StringParam("url")
	if u == "" {
		return CommandResult{Success: false, Message: "No URL given."}, nil
	}
	if !strings.Contains(u, "://") {
		u = "https://" + u
	}
	if err := d.os.OpenURI(u); err != nil {
		return CommandResult{}, fmt.Errorf("open url: %w", err)
	}
	return CommandResult{Success: true, Message: "Opened " + u}, nil
}

func (d *Dispatcher) webSearch(action intent.Action) (CommandResult, error) {
	query := action.StringParam("query")
	if query == "" {
		return CommandResult{Success: false, Message: "No search query given."}, nil
	}
	if err := d.os.OpenURI(searchURL + url.QueryEscape(query)); err != nil {
		return CommandResult{}, fmt.Errorf("web search: %w", err)
	}
	return CommandResult{Success: true, Message: "Searching for " + query}, nil
}

func (d *Dispatcher) sendEmail(action intent.Action) (CommandResult, error) {
	to := action.StringParam("to")
	if to == "" {
		return CommandResult{Success: false, Message: "No recipient given."}, nil
	}
	q := url.Values{}
	if s := action.StringParam("subject"); s != "" {
		q.Set("subject", s)
	}
	if b := action.StringParam("body"); b != "" {
		q.Set("body", b)
	}
	uri := "mailto:" + to
	if enc := q.Encode(); enc != "" {
		uri += "?" + enc
	}
	if err := d.os.OpenURI(uri); err != nil {
		return CommandResult{}, fmt.Errorf("send email: %w", err)
	}
	return CommandResult{Success: true, Message: "Drafting email to " + to}, nil
}

func (d *Dispatcher) runCommand(action intent.Action) (CommandResult, error) {
	command := action.StringParam("command")
	if command == "" {
		return CommandResult{Success: false, Message: "No command given."}, nil
	}
	out, err := d.os.RunShellCommand(command)
	if err != nil {
		return CommandResult{}, fmt.Errorf("run command: %w", err)
	}
	return CommandResult{Success: true, Message: "Command finished.", Output: out}, nil
}

// multiStep dispatches each child independently. Unknown step names are
// skipped, a failing step never aborts the rest of the sequence, and a
// fixed delay lets OS/app state settle between steps.
func (d *Dispatcher) multiStep(ctx context.Context, action intent.Action, depth int) (CommandResult, error) {
	var executed, succeeded int

	for i, step := range action.Steps {
		kind, ok := intent.ParseKind(step.Action)
		if !ok {
			log.Debug("skipping unknown step action", "action", step.Action)
			continue
		}
		if executed > 0 && d.settleDelay > 0 {
			time.Sleep(d.settleDelay)
		}
		executed++

		child := intent.Action{Kind: kind, Payload: step.Parameters}
		res, err := d.dispatch(ctx, child, depth+1)
		if err != nil {
			log.Warn("multi-step child failed", "step", i, "action", step.Action, "err", err)
			continue
		}
		if res.Success {
			succeeded++
		}
	}

	if executed == 0 {
		return CommandResult{Success: true, Message: "No runnable steps."}, nil
	}
	return CommandResult{
		Success: succeeded > 0,
		Message: fmt.Sprintf("Completed %d of %d steps.", succeeded, executed),
	}, nil
}

func (d *Dispatcher) recordClipboard(content string) {
	if d.history != nil {
		d.history.Record(content)
	}
}
