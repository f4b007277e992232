package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sannux/pixelguard/internal/models"
)

const (
	defaultEndpoint = "https://api.anthropic.com/v1/messages"
	apiVersion      = "2023-06-01"
	defaultModel    = "claude-3-5-sonnet-20241022"
	maxTokens       = 1024
)

const threatPrompt = `
Analyze this image and provide a security assessment. Return a JSON object with this exact structure: if the description is of sexually explicit content, or showing blood or any sort of violence or human injury, set nsfw_content to true.
If the image is of a crime scene or shows a deceased individual, set the value of nsfw_content to true and do the same for any other images that you feel are NSFW.
{
    "threat_level": "HIGH/MODERATE/LOW",
    "reasons": [Provide a markdown-formatted paragraph explaining the reasons for the threat level. Use **bold** to emphasize important points. Also tell threats of expose of location and phone model in metadata],
    "detected_elements": {
        "location_indicators": false,
        "weapons": {
            "guns": false,
            "knives": false
        },
        "sensitive_documents": {
            "credit_cards": false,
            "id_cards": false,
            "car_plates": false,
            "house_numbers": false
        },
        "substances": {
            "alcohol": false,
            "drugs": false,
            "cigarettes": false
        },
        "personal_identifiers": {
            "faces": false,
            "names": false
        },
        "nsfw_content": false
    }
}
`

// Client calls the Anthropic messages API for vision-based threat
// assessment and plain text analysis.
type Client struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewClient creates an LLM client. The model defaults when empty; timeout
// bounds each API call so a slow dependency cannot stall a request.
func NewClient(apiKey, model string, timeout time.Duration) *Client {
	if model == "" {
		model = defaultModel
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		apiKey:   apiKey,
		model:    model,
		endpoint: defaultEndpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// SetEndpoint overrides the API endpoint. Used by tests.
func (c *Client) SetEndpoint(endpoint string) {
	c.endpoint = endpoint
}

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	Messages    []message `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// AnalyzeImage sends the image with the threat prompt and parses the reply
// into a ThreatReport. The LLM payload is untrusted: the threat score is
// recomputed locally from the detected elements and the threat level is
// recomputed from that score.
func (c *Client) AnalyzeImage(ctx context.Context, imageBytes []byte) (*models.ThreatReport, error) {
	reply, err := c.send(ctx, []contentBlock{
		{
			Type: "image",
			Source: &imageSource{
				Type:      "base64",
				MediaType: detectMediaType(imageBytes),
				Data:      base64.StdEncoding.EncodeToString(imageBytes),
			},
		},
		{
			Type: "text",
			Text: threatPrompt,
		},
	})
	if err != nil {
		return nil, err
	}

	jsonText, err := extractJSON(reply)
	if err != nil {
		return nil, err
	}

	var raw struct {
		ThreatLevel      string                  `json:"threat_level"`
		Reasons          json.RawMessage         `json:"reasons"`
		DetectedElements models.DetectedElements `json:"detected_elements"`
	}
	if err := json.Unmarshal([]byte(jsonText), &raw); err != nil {
		return nil, fmt.Errorf("parse threat report: %w", err)
	}

	report := &models.ThreatReport{
		Reasons:          decodeReasons(raw.Reasons),
		DetectedElements: raw.DetectedElements,
	}
	report.ThreatScore = ScoreFromElements(raw.DetectedElements)
	report.ThreatLevel = LevelFromScore(report.ThreatScore)

	return report, nil
}

// AnalyzeText sends a plain text prompt and returns the raw reply.
func (c *Client) AnalyzeText(ctx context.Context, prompt string) (string, error) {
	return c.send(ctx, []contentBlock{
		{
			Type: "text",
			Text: prompt,
		},
	})
}

func (c *Client) send(ctx context.Context, blocks []contentBlock) (string, error) {
	reqBody := messagesRequest{
		Model:       c.model,
		MaxTokens:   maxTokens,
		Temperature: 0.1,
		Messages: []message{
			{
				Role:    "user",
				Content: blocks,
			},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var parsed messagesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(parsed.Content) == 0 {
		return "", fmt.Errorf("empty response content")
	}

	return parsed.Content[0].Text, nil
}

// extractJSON pulls the outermost JSON object out of a free-text reply;
// models often wrap their JSON in prose or markdown fences.
func extractJSON(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("no JSON object found in reply")
	}
	return strings.TrimSpace(strings.ReplaceAll(text[start:end+1], "\n", " ")), nil
}

func decodeReasons(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil && single != "" {
		return []string{single}
	}
	return nil
}

// ScoreFromElements derives a 0-100 threat score from the fixed element
// schema; each category contributes a floor and the maximum wins.
func ScoreFromElements(el models.DetectedElements) int {
	score := 0
	max := func(v int) {
		if v > score {
			score = v
		}
	}

	if el.NSFWContent {
		max(95)
	}
	if el.Weapons.Guns {
		max(95)
	}
	if el.SensitiveDocuments.CreditCards || el.SensitiveDocuments.IDCards ||
		el.SensitiveDocuments.CarPlates || el.SensitiveDocuments.HouseNumbers {
		max(90)
	}
	if el.Substances.Alcohol || el.Substances.Drugs || el.Substances.Cigarettes {
		max(85)
	}
	if el.PersonalIdentifiers.Faces {
		max(75)
	}
	if el.LocationIndicators {
		max(70)
	}
	if el.Weapons.Knives {
		max(70)
	}

	return score
}

// LevelFromScore maps a threat score to a level: >=90 HIGH, >=70 MODERATE,
// else LOW.
func LevelFromScore(score int) string {
	switch {
	case score >= 90:
		return "HIGH"
	case score >= 70:
		return "MODERATE"
	default:
		return "LOW"
	}
}

func detectMediaType(imageBytes []byte) string {
	contentType := http.DetectContentType(imageBytes)
	if contentType == "image/jpg" {
		contentType = "image/jpeg"
	}
	return contentType
}
