// Package gemini generates story text and illustrations through the Gemini
// HTTP API. All calls share a weighted semaphore so the service never holds
// more than the configured number of generations in flight, plus a rate
// limiter mirroring the provider's per-minute quota.
package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/saiyamvora13/vesabooks/internal/config"
	"github.com/saiyamvora13/vesabooks/internal/domain"
	"github.com/saiyamvora13/vesabooks/internal/pkg/httpretry"
)

// Client talks to the Gemini generateContent API.
type Client struct {
	baseURL    string
	apiKey     string
	textModel  string
	imageModel string
	httpClient httpretry.HTTPDoer
	sem        *semaphore.Weighted
	limiter    *rate.Limiter
}

// NewClient creates a Gemini client from config.
func NewClient(cfg config.GeminiConfig) *Client {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 20
	}
	rpm := cfg.RequestsPerMin
	if rpm <= 0 {
		rpm = 60
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		textModel:  cfg.TextModel,
		imageModel: cfg.ImageModel,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: cfg.Timeout(),
		}, 3),
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		limiter: rate.NewLimiter(rate.Limit(rpm/60.0), maxConcurrent),
	}
}

// Request/response shapes for generateContent.
type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	ResponseMIMEType string `json:"responseMimeType,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// generate performs one guarded call to a model.
func (c *Client) generate(ctx context.Context, model string, req generateRequest) (*generateResponse, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire generation slot: %w", err)
	}
	defer c.sem.Release(1)

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini error (status %d): %s", resp.StatusCode, string(data))
	}

	var gr generateResponse
	if err := json.Unmarshal(data, &gr); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	if len(gr.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates in response")
	}
	return &gr, nil
}

// storyJSON is the structured output we ask the text model for.
type storyJSON struct {
	Title string `json:"title"`
	Pages []struct {
		Text string `json:"text"`
	} `json:"pages"`
}

const storyPromptTemplate = `Write a children's storybook based on this idea: %s

Respond with JSON only, in this exact shape:
{"title": "...", "pages": [{"text": "..."}]}

Write exactly %d pages. Each page is 2-4 short sentences suitable for reading
aloud to a young child. The title is at most 8 words.`

// GenerateStory returns a title and numbered pages for the given prompt.
func (c *Client) GenerateStory(ctx context.Context, prompt string, pageCount int) (string, []domain.StoryPage, error) {
	req := generateRequest{
		Contents: []content{{Parts: []part{{
			Text: fmt.Sprintf(storyPromptTemplate, prompt, pageCount),
		}}}},
		GenerationConfig: &generationConfig{ResponseMIMEType: "application/json"},
	}
	gr, err := c.generate(ctx, c.textModel, req)
	if err != nil {
		return "", nil, err
	}

	var text string
	for _, p := range gr.Candidates[0].Content.Parts {
		text += p.Text
	}
	// Some models wrap JSON in a fenced block despite the MIME hint.
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var story storyJSON
	if err := json.Unmarshal([]byte(text), &story); err != nil {
		return "", nil, fmt.Errorf("parsing story JSON: %w", err)
	}
	if story.Title == "" || len(story.Pages) == 0 {
		return "", nil, fmt.Errorf("story response missing title or pages")
	}

	pages := make([]domain.StoryPage, len(story.Pages))
	for i, p := range story.Pages {
		pages[i] = domain.StoryPage{PageNumber: i + 1, Text: p.Text}
	}
	return story.Title, pages, nil
}

const illustrationPromptTemplate = `A warm, colorful children's book illustration, painted style, no text or words in the image: %s`

// GenerateIllustration renders one illustration and returns its image bytes.
func (c *Client) GenerateIllustration(ctx context.Context, prompt string) ([]byte, error) {
	req := generateRequest{
		Contents: []content{{Parts: []part{{
			Text: fmt.Sprintf(illustrationPromptTemplate, prompt),
		}}}},
	}
	gr, err := c.generate(ctx, c.imageModel, req)
	if err != nil {
		return nil, err
	}

	for _, p := range gr.Candidates[0].Content.Parts {
		if p.InlineData == nil {
			continue
		}
		img, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
		if err != nil {
			return nil, fmt.Errorf("decoding image data: %w", err)
		}
		return img, nil
	}
	return nil, fmt.Errorf("no image in response")
}
