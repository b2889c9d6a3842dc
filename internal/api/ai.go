package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"dymgr/internal/dispatch"
)

// DefaultImageModel is used when no image model is requested.
const DefaultImageModel = "stable-diffusion"

// AIService wraps the /ai endpoints.
type AIService struct {
	d Dispatcher
}

// Text generates free-form text from a prompt.
func (s *AIService) Text(ctx context.Context, prompt string) (*Generation, error) {
	return s.generate(ctx, "/ai/text", url.Values{"prompt": {prompt}})
}

// Title proposes a video title for the given content.
func (s *AIService) Title(ctx context.Context, content string) (*Generation, error) {
	return s.generate(ctx, "/ai/title", url.Values{"content": {content}})
}

// Description proposes a video description.
func (s *AIService) Description(ctx context.Context, title, content string) (*Generation, error) {
	return s.generate(ctx, "/ai/description", url.Values{"title": {title}, "content": {content}})
}

// Image generates an image; an empty model selects DefaultImageModel.
func (s *AIService) Image(ctx context.Context, prompt, model string) (*Generation, error) {
	if model = strings.TrimSpace(model); model == "" {
		model = DefaultImageModel
	}
	return s.generate(ctx, "/ai/image", url.Values{"prompt": {prompt}, "model": {model}})
}

func (s *AIService) generate(ctx context.Context, path string, params url.Values) (*Generation, error) {
	var out Generation
	if err := s.d.Do(ctx, dispatch.Request{Method: http.MethodPost, Path: path, Query: params}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
