package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const unknownModelType = "UNKNOWN"

// Model is one entry of the upstream /models listing. ModelType is a gateway
// extension and may be missing.
type Model struct {
	ID        string `json:"id"`
	Object    string `json:"object,omitempty"`
	Created   int64  `json:"created,omitempty"`
	OwnedBy   string `json:"owned_by,omitempty"`
	ModelType string `json:"ModelType,omitempty"`
}

func (m Model) typeOrUnknown() string {
	if t := strings.ToUpper(strings.TrimSpace(m.ModelType)); t != "" {
		return t
	}
	return unknownModelType
}

type ModelList struct {
	Data  []Model  `json:"data"`
	Types []string `json:"types"`
}

type ModelService struct {
	client  *openai.Client
	allowed []string
}

func NewModelService(client *openai.Client, allowed []string) *ModelService {
	return &ModelService{client: client, allowed: allowed}
}

// List fetches the upstream models with the caller's key and keeps the ones
// whose type is allowed and, unless filter is "all" or empty, equal to filter.
func (s *ModelService) List(ctx context.Context, apiKey, filter string) (*ModelList, error) {
	if apiKey == "" {
		return nil, ErrMissingCredential
	}
	var page struct {
		Data []Model `json:"data"`
	}
	if err := s.client.Get(ctx, "models", nil, &page, option.WithAPIKey(upstreamKey(apiKey))); err != nil {
		return nil, upstreamError(err)
	}
	return &ModelList{
		Data:  FilterModelsByType(page.Data, filter, s.allowed),
		Types: AvailableModelTypes(page.Data, s.allowed),
	}, nil
}

// FilterModelsByType keeps models whose type (UNKNOWN when missing) is in
// allowed, then narrows to filter unless it is "all" or empty.
func FilterModelsByType(models []Model, filter string, allowed []string) []Model {
	filter = strings.ToUpper(strings.TrimSpace(filter))
	out := make([]Model, 0, len(models))
	for _, m := range models {
		t := m.typeOrUnknown()
		if !contains(allowed, t) {
			continue
		}
		if filter != "" && filter != "ALL" && t != filter {
			continue
		}
		out = append(out, m)
	}
	return out
}

// AvailableModelTypes lists the distinct allowed types present in models,
// sorted. Models without a type do not contribute.
func AvailableModelTypes(models []Model, allowed []string) []string {
	seen := map[string]bool{}
	for _, m := range models {
		t := strings.ToUpper(strings.TrimSpace(m.ModelType))
		if t != "" && contains(allowed, t) {
			seen[t] = true
		}
	}
	types := make([]string, 0, len(seen))
	for t := range seen {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

func contains(slice []string, s string) bool {
	for _, item := range slice {
		if item == s {
			return true
		}
	}
	return false
}

// upstreamKey strips a Bearer prefix; the client adds its own.
func upstreamKey(apiKey string) string {
	if len(apiKey) > 7 && strings.EqualFold(apiKey[:7], "bearer ") {
		return strings.TrimSpace(apiKey[7:])
	}
	return apiKey
}

// upstreamError maps an upstream rejection of the key to ErrInvalidCredential
// and everything else to ErrUpstream.
func upstreamError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden {
			return ErrInvalidCredential
		}
		return fmt.Errorf("%w: status %d", ErrUpstream, apiErr.StatusCode)
	}
	return fmt.Errorf("%w: %v", ErrUpstream, err)
}
