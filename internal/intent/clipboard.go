package intent

import (
	"context"
	"fmt"
	"strings"
)

const clipboardSystemPrompt = `
You rewrite text for a desktop assistant. Output ONLY the rewritten text.
No preamble, no explanations, no markdown fences.
`

var clipboardInstructions = map[string]string{
	"format":    "Reformat the following text with proper punctuation, capitalization and paragraph breaks. Keep the wording.",
	"translate": "Translate the following text to %s. Output only the translation.",
	"summarize": "Summarize the following text in a few short sentences.",
	"clean":     "Remove artifacts, broken line breaks, tracking garbage and duplicated whitespace from the following text. Keep the content.",
}

// ClipboardProcessor performs the four clipboard text transforms through
// the completion client.
type ClipboardProcessor struct {
	client CompletionClient
}

func NewClipboardProcessor(client CompletionClient) *ClipboardProcessor {
	return &ClipboardProcessor{client: client}
}

func (p *ClipboardProcessor) ProcessClipboard(ctx context.Context, content, operation string, params map[string]any) (string, error) {
	instr, ok := clipboardInstructions[operation]
	if !ok {
		return "", fmt.Errorf("unknown clipboard operation: %s", operation)
	}
	if operation == "translate" {
		lang := "English"
		if v, ok := params["language"].(string); ok && strings.TrimSpace(v) != "" {
			lang = strings.TrimSpace(v)
		}
		instr = fmt.Sprintf(instr, lang)
	}

	out, err := p.client.Complete(ctx, clipboardSystemPrompt, instr+"\n\n"+content)
	if err != nil {
		return "", fmt.Errorf("clipboard %s: %w", operation, err)
	}
	return strings.TrimSpace(out), nil
}
