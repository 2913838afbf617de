package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"gatewaychat/model"

	"github.com/yuin/goldmark"
)

const (
	ExportMarkdown = "markdown"
	ExportHTML     = "html"
)

var markdownRenderer = goldmark.New()

// Export renders an owned chat as a Markdown transcript, or as HTML converted
// from that Markdown. It returns the body and its content type.
func (s *ChatService) Export(ctx context.Context, userID uint, chatID, format string) ([]byte, string, error) {
	if format == "" {
		format = ExportMarkdown
	}
	if format != ExportMarkdown && format != ExportHTML {
		return nil, "", validationError("format must be markdown or html")
	}
	transcript, err := s.Load(ctx, userID, chatID)
	if err != nil {
		return nil, "", err
	}

	md := TranscriptMarkdown(transcript)
	if format == ExportMarkdown {
		return []byte(md), "text/markdown; charset=utf-8", nil
	}

	var buf bytes.Buffer
	if err := markdownRenderer.Convert([]byte(md), &buf); err != nil {
		return nil, "", fmt.Errorf("render transcript: %w", err)
	}
	return buf.Bytes(), "text/html; charset=utf-8", nil
}

func TranscriptMarkdown(t *ChatTranscript) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", t.Chat.Title)
	for _, m := range t.Messages {
		speaker := "User"
		if m.Role == model.RoleAssistant {
			speaker = "Assistant"
		}
		fmt.Fprintf(&b, "### %s\n\n%s\n\n", speaker, strings.TrimSpace(m.Content))
	}
	return b.String()
}
