package classifier

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/calens/senselog/internal/inference"
)

const anthropicAPI = "https://api.anthropic.com/v1/messages"

// labelResult holds the labeling output parsed from the model response.
type labelResult struct {
	Labels []struct {
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	} `json:"labels"`
}

// Labeler classifies images via the Anthropic API. It satisfies
// inference.ImageClassifier: Classify runs the request on its own goroutine
// and invokes the completion exactly once.
type Labeler struct {
	apiKey string
	model  string
}

// New creates a new Labeler.
func New() (*Labeler, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
	}

	return &Labeler{
		apiKey: apiKey,
		model:  "claude-sonnet-4-20250514",
	}, nil
}

// Classify labels the image asynchronously, best candidate first.
func (l *Labeler) Classify(img inference.Image, done func([]inference.Candidate, error)) {
	go func() {
		resp, err := l.callAPI(img)
		if err != nil {
			done(nil, fmt.Errorf("api call: %w", err))
			return
		}

		result, err := parseResponse(resp)
		if err != nil {
			done(nil, err)
			return
		}

		candidates := make([]inference.Candidate, len(result.Labels))
		for i, lbl := range result.Labels {
			candidates[i] = inference.Candidate{Label: lbl.Label, Confidence: lbl.Confidence}
		}
		done(candidates, nil)
	}()
}

const labelPrompt = `Identify the main subject of this image. Return JSON only.

Return a JSON object with this structure:
{
  "labels": [
    {"label": "subject-name", "confidence": 0.9}
  ]
}

Rules:
- Use lowercase, hyphenated labels (e.g., "golden-retriever" not "Golden Retriever")
- List 1-5 candidates, most likely first
- Confidence is 0.0-1.0 based on how certain the identification is

Return ONLY the JSON, no other text.`

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	Messages  []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string     `json:"role"`
	Content []apiBlock `json:"content"`
}

type apiBlock struct {
	Type   string          `json:"type"`
	Text   string          `json:"text,omitempty"`
	Source *apiImageSource `json:"source,omitempty"`
}

type apiImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type apiResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (l *Labeler) callAPI(img inference.Image) (string, error) {
	reqBody := apiRequest{
		Model:     l.model,
		MaxTokens: 1024,
		Messages: []apiMessage{
			{
				Role: "user",
				Content: []apiBlock{
					{
						Type: "image",
						Source: &apiImageSource{
							Type:      "base64",
							MediaType: mediaType(img.Format),
							Data:      base64.StdEncoding.EncodeToString(img.Data),
						},
					},
					{Type: "text", Text: labelPrompt},
				},
			},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequest("POST", anthropicAPI, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", l.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("api error (status %d): %s", resp.StatusCode, string(body))
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if apiResp.Error != nil {
		return "", fmt.Errorf("api error: %s", apiResp.Error.Message)
	}

	if len(apiResp.Content) == 0 {
		return "", fmt.Errorf("empty response")
	}

	return apiResp.Content[0].Text, nil
}

func mediaType(format string) string {
	switch format {
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	default:
		return "image/jpeg"
	}
}

func parseResponse(resp string) (*labelResult, error) {
	// Clean up response - remove markdown code blocks if present
	resp = strings.TrimSpace(resp)
	resp = strings.TrimPrefix(resp, "```json")
	resp = strings.TrimPrefix(resp, "```")
	resp = strings.TrimSuffix(resp, "```")
	resp = strings.TrimSpace(resp)

	var result labelResult
	if err := json.Unmarshal([]byte(resp), &result); err != nil {
		return nil, fmt.Errorf("parse json: %w (response: %s)", err, resp)
	}

	return &result, nil
}
