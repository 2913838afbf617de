package service

import (
	"context"
	"errors"
	"strings"

	"gatewaychat/model"
	"gatewaychat/platform"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const systemPrompt = "You are a helpful assistant."

type CompletionInput struct {
	Model   string
	Prompt  string
	ChatID  string
	Stream  bool
	Persist bool
}

type CompletionResult struct {
	Reply  string `json:"reply"`
	ChatID string `json:"chatId,omitempty"`
	Saved  bool   `json:"saved"`
}

// CompletionService relays a chat turn to the upstream gateway with the
// caller's key, replaying the stored history of the chat, and persists the
// turn through ChatService.
type CompletionService struct {
	client      *openai.Client
	chats       *ChatService
	credentials *CredentialService
}

func NewCompletionService(client *openai.Client, chats *ChatService, credentials *CredentialService) *CompletionService {
	return &CompletionService{client: client, chats: chats, credentials: credentials}
}

// Complete runs one turn. When in.Stream is set, onDelta receives every
// content fragment as it arrives; an error from onDelta aborts the relay.
func (s *CompletionService) Complete(ctx context.Context, apiKey string, in CompletionInput, onDelta func(string) error) (*CompletionResult, error) {
	if apiKey == "" {
		return nil, ErrMissingCredential
	}
	if strings.TrimSpace(in.Model) == "" {
		return nil, validationError("Model is required")
	}
	if strings.TrimSpace(in.Prompt) == "" {
		return nil, validationError("Prompt is required")
	}

	messages := []openai.ChatCompletionMessageParamUnion{openai.SystemMessage(systemPrompt)}
	if in.ChatID != "" {
		history, err := s.history(ctx, apiKey, in.ChatID)
		if err != nil {
			return nil, err
		}
		messages = append(messages, history...)
	}
	messages = append(messages, openai.UserMessage(in.Prompt))

	params := openai.ChatCompletionNewParams{
		Messages: openai.F(messages),
		Model:    openai.F(in.Model),
	}
	key := option.WithAPIKey(upstreamKey(apiKey))

	var reply string
	var err error
	if in.Stream && onDelta != nil {
		reply, err = s.stream(ctx, params, key, onDelta)
	} else {
		reply, err = s.once(ctx, params, key)
	}
	if err != nil {
		return nil, err
	}

	result := &CompletionResult{Reply: reply, ChatID: in.ChatID}
	if !in.Persist {
		return result, nil
	}
	save := SaveInput{
		ChatID:           in.ChatID,
		UserMessage:      in.Prompt,
		AssistantMessage: reply,
		Persist:          true,
	}
	if in.ChatID == "" {
		save.Title = DeriveTitle(in.Prompt)
	}
	saved, err := s.chats.SaveWithKey(ctx, apiKey, save)
	if err != nil {
		// The reply is still returned; only persistence failed.
		platform.Logger.Warnf("failed to persist completion turn: %s", err)
		return result, nil
	}
	result.ChatID = saved.ChatID
	result.Saved = saved.Saved
	return result, nil
}

func (s *CompletionService) history(ctx context.Context, apiKey, chatID string) ([]openai.ChatCompletionMessageParamUnion, error) {
	userID, err := s.credentials.Resolve(ctx, apiKey)
	if errors.Is(err, ErrInvalidCredential) {
		// A key without a user cannot own chatID.
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	transcript, err := s.chats.Load(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(transcript.Messages))
	for _, m := range transcript.Messages {
		if m.Role == model.RoleAssistant {
			out = append(out, openai.AssistantMessage(m.Content))
		} else {
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out, nil
}

func (s *CompletionService) once(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (string, error) {
	completion, err := s.client.Chat.Completions.New(ctx, params, opts...)
	if err != nil {
		return "", upstreamError(err)
	}
	if len(completion.Choices) == 0 {
		return "", ErrUpstream
	}
	return completion.Choices[0].Message.Content, nil
}

func (s *CompletionService) stream(ctx context.Context, params openai.ChatCompletionNewParams, key option.RequestOption, onDelta func(string) error) (string, error) {
	stream := s.client.Chat.Completions.NewStreaming(ctx, params, key)
	defer stream.Close()

	var reply strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		content := chunk.Choices[0].Delta.Content
		if content == "" {
			continue
		}
		reply.WriteString(content)
		if err := onDelta(content); err != nil {
			return "", err
		}
	}
	if err := stream.Err(); err != nil {
		return "", upstreamError(err)
	}
	return reply.String(), nil
}
