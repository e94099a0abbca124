// Package threshold suggests a price alert threshold for a destination by
// asking an LLM gateway. The feature is advisory: every failure mode falls
// back to a conservative default instead of an error.
package threshold

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/jwalitptl/farewatch-api/pkg/logger"
)

const (
	minThreshold     = 200
	maxThreshold     = 1500
	defaultThreshold = 500

	cacheTTL = 24 * time.Hour
)

type Config struct {
	GatewayURL string
	APIKey     string
	Model      string
	Origin     string
	Timeout    time.Duration
}

type Suggestion struct {
	RecommendedThreshold int    `json:"recommended_threshold"`
	Confidence           string `json:"confidence"`
	Reasoning            string `json:"reasoning"`
}

type Service struct {
	cfg        Config
	httpClient *http.Client
	cache      *gocache.Cache
	logger     *logger.Logger
}

func NewService(cfg Config, logger *logger.Logger) *Service {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Service{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		cache:      gocache.New(cacheTTL, 2*cacheTTL),
		logger:     logger,
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Suggest returns a recommended threshold for the route. Results are
// cached per destination since route economics shift slowly.
func (s *Service) Suggest(ctx context.Context, city, country, airportCode string) Suggestion {
	key := strings.ToLower(city + "|" + country + "|" + airportCode)
	if cached, found := s.cache.Get(key); found {
		return cached.(Suggestion)
	}

	suggestion := s.ask(ctx, city, country, airportCode)
	s.cache.Set(key, suggestion, gocache.DefaultExpiration)
	return suggestion
}

func (s *Service) ask(ctx context.Context, city, country, airportCode string) Suggestion {
	if s.cfg.APIKey == "" {
		s.logger.Warn("AI gateway key not configured, using default threshold")
		return fallback("Default threshold - AI unavailable")
	}

	systemPrompt := fmt.Sprintf(`You are an expert flight pricing analyst. Based on the destination provided, recommend an optimal price alert threshold for round-trip flights from %s.

Return ONLY a JSON object with these exact fields (no markdown, no code blocks):
{
  "recommended_threshold": <number between %d-%d>,
  "confidence": "high" | "medium" | "low",
  "reasoning": "<brief 1-sentence explanation>"
}`, s.cfg.Origin, minThreshold, maxThreshold)

	userPrompt := fmt.Sprintf("Suggest a price alert threshold for flights from %s to %s, %s", s.cfg.Origin, city, country)
	if airportCode != "" {
		userPrompt += fmt.Sprintf(" (%s)", airportCode)
	}

	body, err := json.Marshal(chatRequest{
		Model: s.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	})
	if err != nil {
		return fallback("Error occurred - using default threshold")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.GatewayURL, bytes.NewReader(body))
	if err != nil {
		return fallback("Error occurred - using default threshold")
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error(err, "AI gateway request failed")
		return fallback("AI service unavailable - using default threshold")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("AI gateway returned non-success status", "status", resp.StatusCode)
		return fallback("AI service unavailable - using default threshold")
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil || len(chat.Choices) == 0 {
		return fallback("Unable to parse AI recommendation - using default")
	}

	suggestion, ok := parseSuggestion(chat.Choices[0].Message.Content)
	if !ok {
		s.logger.Warn("failed to parse AI suggestion", "content", chat.Choices[0].Message.Content)
		return fallback("Unable to parse AI recommendation - using default")
	}

	suggestion.RecommendedThreshold = clamp(suggestion.RecommendedThreshold)
	if suggestion.Confidence == "" {
		suggestion.Confidence = "medium"
	}
	if suggestion.Reasoning == "" {
		suggestion.Reasoning = fmt.Sprintf("Suggested threshold for %s, %s", city, country)
	}
	return suggestion
}

var codeBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// parseSuggestion tolerates models that wrap the JSON in a markdown code
// block despite being told not to.
func parseSuggestion(content string) (Suggestion, bool) {
	jsonStr := strings.TrimSpace(content)
	if m := codeBlockRe.FindStringSubmatch(content); m != nil {
		jsonStr = m[1]
	}

	var raw struct {
		RecommendedThreshold float64 `json:"recommended_threshold"`
		Confidence           string  `json:"confidence"`
		Reasoning            string  `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return Suggestion{}, false
	}

	threshold := int(math.Round(raw.RecommendedThreshold))
	if threshold == 0 {
		threshold = defaultThreshold
	}
	return Suggestion{
		RecommendedThreshold: threshold,
		Confidence:           raw.Confidence,
		Reasoning:            raw.Reasoning,
	}, true
}

func clamp(v int) int {
	if v < minThreshold {
		return minThreshold
	}
	if v > maxThreshold {
		return maxThreshold
	}
	return v
}

func fallback(reasoning string) Suggestion {
	return Suggestion{
		RecommendedThreshold: defaultThreshold,
		Confidence:           "low",
		Reasoning:            reasoning,
	}
}
