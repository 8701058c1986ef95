package content

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/manishahirrao/postpilot/internal/errors"
	"github.com/manishahirrao/postpilot/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultTone     = "professional"
	DefaultAudience = "LinkedIn professionals"
)

// PostRequest is what the post composer collects.
type PostRequest struct {
	AccountType users.AccountType `json:"account_type"`
	Name        string            `json:"name"`
	Industry    string            `json:"industry"`
	Topic       string            `json:"topic"`
	Tone        string            `json:"tone"`
	Audience    string            `json:"audience"`
	ImagePath   string            `json:"image_path,omitempty"`
}

// Post is a generated post ready for review.
type Post struct {
	Text         string `json:"text"`
	ImageCaption string `json:"image_caption"`
	ImageURL     string `json:"image_url,omitempty"`
}

// ChatCompleter sends one system+user prompt pair to a language model.
type ChatCompleter interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// ImageUploader hosts a local image and returns its public URL.
type ImageUploader interface {
	Upload(ctx context.Context, path string) (string, error)
}

// Generator turns a PostRequest into a Post.
type Generator struct {
	chat   ChatCompleter
	images ImageUploader
	logger zerolog.Logger
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithImageUploader enables image hosting; without it requests that carry an
// image fail.
func WithImageUploader(images ImageUploader) GeneratorOption {
	return func(g *Generator) {
		g.images = images
	}
}

func WithLogger(logger zerolog.Logger) GeneratorOption {
	return func(g *Generator) {
		g.logger = logger
	}
}

func NewGenerator(chat ChatCompleter, opts ...GeneratorOption) *Generator {
	g := &Generator{chat: chat, logger: log.Logger}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate uploads the image (if any), then writes the post text, then the
// caption. The calls run in that order and the first failure stops the rest.
func (g *Generator) Generate(ctx context.Context, req PostRequest) (*Post, error) {
	req, err := normalize(req)
	if err != nil {
		return nil, err
	}

	post := &Post{}
	if req.ImagePath != "" {
		if g.images == nil {
			return nil, fmt.Errorf("[Generator Generate] %w: no image uploader configured", apperrors.ErrConfigMissing)
		}
		url, err := g.images.Upload(ctx, req.ImagePath)
		if err != nil {
			return nil, fmt.Errorf("[Generator Generate] upload image: %w", err)
		}
		post.ImageURL = url
		g.logger.Debug().Str("image_url", url).Msg("image uploaded")
	}

	text, err := g.complete(ctx, postSystemPrompt, postPrompt(req))
	if err != nil {
		return nil, fmt.Errorf("[Generator Generate] post text: %w", err)
	}
	post.Text = text

	caption, err := g.complete(ctx, captionSystemPrompt, captionPrompt(req, text))
	if err != nil {
		return nil, fmt.Errorf("[Generator Generate] caption: %w", err)
	}
	post.ImageCaption = caption

	g.logger.Info().Str("topic", req.Topic).Int("chars", len(post.Text)).Msg("post generated")
	return post, nil
}

func (g *Generator) complete(ctx context.Context, system, prompt string) (string, error) {
	out, err := g.chat.Complete(ctx, system, prompt)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("%w: empty completion", apperrors.ErrMalformedPayload)
	}
	return out, nil
}

func normalize(req PostRequest) (PostRequest, error) {
	req.Topic = strings.TrimSpace(req.Topic)
	if req.Topic == "" {
		return req, fmt.Errorf("[Generator Generate] %w: topic is required", apperrors.ErrInvalidInput)
	}
	if !req.AccountType.Valid() {
		req.AccountType = users.AccountPersonal
	}
	if strings.TrimSpace(req.Tone) == "" {
		req.Tone = DefaultTone
	}
	if strings.TrimSpace(req.Audience) == "" {
		req.Audience = DefaultAudience
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Industry = strings.TrimSpace(req.Industry)
	req.ImagePath = strings.TrimSpace(req.ImagePath)
	return req, nil
}
