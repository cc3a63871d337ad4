// Package profiler generates reach reports with Gemini.
package profiler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/BerylCAtieno/getreach/internal/models"
	"github.com/BerylCAtieno/getreach/internal/research"
)

const (
	DefaultModel       = "gemini-2.5-flash"
	DefaultTemperature = 0.7

	researchBudget = 15 * time.Second
)

// Researcher supplies web context for the prompt.
type Researcher interface {
	Brief(ctx context.Context, in models.AnalysisInput) (research.Brief, error)
}

type Config struct {
	APIKey      string
	Model       string
	Temperature float32
}

// GeminiClient implements relay.Generator.
type GeminiClient struct {
	client     *genai.Client
	model      *genai.GenerativeModel
	researcher Researcher
	logger     *zap.Logger
}

// NewGeminiClient creates a client whose model answers in JSON shaped by
// ReportSchema. researcher may be nil.
func NewGeminiClient(ctx context.Context, cfg Config, researcher Researcher, logger *zap.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is empty")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SetTemperature(cfg.Temperature)
	model.SetTopP(0.95)
	model.SetMaxOutputTokens(8192)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = ReportSchema()
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemInstruction)}}

	return &GeminiClient{
		client:     client,
		model:      model,
		researcher: researcher,
		logger:     logger,
	}, nil
}

func (g *GeminiClient) Close() error {
	return g.client.Close()
}

// Generate returns the full report text from one call.
func (g *GeminiClient) Generate(ctx context.Context, in models.AnalysisInput) (string, error) {
	prompt := BuildPrompt(in, g.brief(ctx, in))

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	return extractText(resp), nil
}

// GenerateStream forwards each text fragment to onChunk as it arrives.
func (g *GeminiClient) GenerateStream(ctx context.Context, in models.AnalysisInput, onChunk func(string) error) error {
	prompt := BuildPrompt(in, g.brief(ctx, in))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	iter := g.model.GenerateContentStream(ctx, genai.Text(prompt))
	for {
		resp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return err
		}
		if text := extractText(resp); text != "" {
			if err := onChunk(text); err != nil {
				return err
			}
		}
	}
}

func (g *GeminiClient) brief(ctx context.Context, in models.AnalysisInput) research.Brief {
	if g.researcher == nil {
		return research.Brief{}
	}
	ctx, cancel := context.WithTimeout(ctx, researchBudget)
	defer cancel()

	start := time.Now()
	b, err := g.researcher.Brief(ctx, in)
	if err != nil {
		g.logger.Warn("research incomplete", zap.String("url", in.URL), zap.Error(err))
	}
	g.logger.Debug("research done",
		zap.String("url", in.URL),
		zap.Int("findings", len(b.Findings)),
		zap.Duration("took", time.Since(start)),
	)
	return b
}

// extractText concatenates the text parts of the first candidate.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	c := resp.Candidates[0]
	if c == nil || c.Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range c.Content.Parts {
		if t, ok := p.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String()
}
