package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/dhelbig/korrespondenz/internal/config"
)

// Client drafts German correspondence text against a local Ollama instance.
// It is never involved in document creation; drafts are suggestions only.
type Client struct {
	baseURL string
	model   string
	enabled bool
	http    *retryablehttp.Client
}

func NewClient(cfg config.OllamaConfig) *Client {
	client := retryablehttp.NewClient()
	client.RetryMax = 1
	client.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	client.Logger = nil

	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		model:   cfg.Model,
		enabled: cfg.Enabled,
		http:    client,
	}
}

func (c *Client) Model() string {
	return c.model
}

func (c *Client) IsAvailable(ctx context.Context) bool {
	if !c.enabled {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

func (c *Client) Generate(ctx context.Context, prompt, system string, temperature float64) (string, error) {
	payload, err := json.Marshal(generateRequest{
		Model:   c.model,
		Prompt:  prompt,
		System:  system,
		Stream:  false,
		Options: map[string]any{"temperature": temperature},
	})
	if err != nil {
		return "", err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama generate: status %d", resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.Response, nil
}

const letterSystem = `Du bist ein Assistent für deutsche Geschäftskorrespondenz.
Du schreibst professionelle, klare und höfliche Brieftexte.
Antworte NUR mit dem Brieftext selbst - OHNE Anrede und OHNE Grußformel.
Diese werden automatisch vom System ergänzt.
Halte dich kurz und präzise. Verwende keine Floskeln.`

const offerSystem = `Du bist ein Assistent für deutsche Geschäftskorrespondenz.
Du schreibst professionelle Angebotstexte.
Der Text soll das Angebot einleiten und den Kunden überzeugen.
Antworte NUR mit dem Einleitungstext - kurz und überzeugend.`

const improveSystem = `Du bist ein Lektor für deutsche Geschäftskorrespondenz.
Du korrigierst Rechtschreibung, Grammatik und Stil.
Antworte NUR mit dem verbesserten Text.`

// GenerateLetterDraft drafts a letter body for the given concern.
func (c *Client) GenerateLetterDraft(ctx context.Context, concern, tone, contactName string) (string, error) {
	prompt := fmt.Sprintf("Schreibe einen %sen Brieftext für folgendes Anliegen:\n\n%s\n", tone, concern)
	if contactName != "" {
		prompt += "\nEmpfänger: " + contactName + "\n"
	}
	prompt += "\nBrieftext (ohne Anrede/Gruß):"
	return c.Generate(ctx, prompt, letterSystem, 0.5)
}

// GenerateOfferIntro drafts the introduction paragraph of an offer.
func (c *Client) GenerateOfferIntro(ctx context.Context, concern, contactName string) (string, error) {
	prompt := fmt.Sprintf("Schreibe einen Einleitungstext für ein Angebot zu:\n\n%s\n", concern)
	if contactName != "" {
		prompt += "\nKunde: " + contactName + "\n"
	}
	prompt += "\nEinleitungstext:"
	return c.Generate(ctx, prompt, offerSystem, 0.6)
}

// ImproveText rewrites a text with corrected spelling and style.
func (c *Client) ImproveText(ctx context.Context, text string) (string, error) {
	return c.Generate(ctx, "Verbessere folgenden Text:\n\n"+text, improveSystem, 0.3)
}
