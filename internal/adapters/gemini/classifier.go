package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/mikey/llm-email-triage/internal/core"
	"github.com/mikey/llm-email-triage/internal/utils"
)

// Classifier is an implementation of the core.Classifier interface using
// Google Gemini.
type Classifier struct {
	client        *genai.Client
	model         *genai.GenerativeModel
	modelName     string
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
	promptFormat  string
}

// intentResponse represents the structured response from the model.
type intentResponse struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

// NewClassifier creates a new Gemini classifier.
func NewClassifier(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) (*Classifier, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetTopP(topP)
	model.SetMaxOutputTokens(int32(maxTokens))

	return &Classifier{
		client:        client,
		model:         model,
		modelName:     modelName,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
		promptFormat: `You are an email triage system for an electronics distributor's support inbox.
Classify the customer's intent as exactly one of: order_modification,
order_cancellation, order_merge, price_inquiry, inventory_inquiry,
logistics_inquiry, general_inquiry.

Respond with a JSON object containing:
- intent: one of the values above
- confidence: number between 0 and 1 (how confident you are)
- rationale: string (brief explanation of the classification)

Email:
From: %s
Subject: %s
Extracted order ids: %s
Extracted product ids: %s
Body:
%s

Respond only with the JSON object and nothing else.`,
	}, nil
}

// Close closes the Gemini client.
func (c *Classifier) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Classify maps an email to one intent from the closed taxonomy.
func (c *Classifier) Classify(ctx context.Context, email *core.NormalizedEmail) (*core.Intent, error) {
	processedBody := c.textProcessor.ProcessText(email.Body, c.maxBodySize)
	prompt := fmt.Sprintf(c.promptFormat,
		email.From,
		email.Subject,
		strings.Join(email.Entities.OrderIDs, ", "),
		strings.Join(email.Entities.ProductIDs, ", "),
		processedBody)

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, core.ClassificationUnavailable(fmt.Errorf("failed to generate content with Gemini: %w", err))
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, core.ClassificationUnavailable(fmt.Errorf("empty response from Gemini"))
	}

	responseText := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])

	var parsed intentResponse
	if err := json.Unmarshal([]byte(responseText), &parsed); err != nil {
		jsonStart := strings.Index(responseText, "{")
		jsonEnd := strings.LastIndex(responseText, "}")
		if jsonStart >= 0 && jsonEnd > jsonStart {
			err = json.Unmarshal([]byte(responseText[jsonStart:jsonEnd+1]), &parsed)
		}
		if err != nil {
			c.logger.Warn("Unparseable classification response",
				zap.String("model", c.modelName),
				zap.String("response", responseText))
			return &core.Intent{
				Kind:       core.IntentGeneralInquiry,
				Confidence: 0.2,
				Rationale:  "model response could not be parsed",
				Model:      c.modelName,
			}, nil
		}
	}

	kind := core.IntentKind(parsed.Intent)
	if !core.ValidIntentKind(kind) {
		return &core.Intent{
			Kind:       core.IntentGeneralInquiry,
			Confidence: 0.2,
			Rationale:  fmt.Sprintf("model answered %q, outside the intent taxonomy", parsed.Intent),
			Model:      c.modelName,
		}, nil
	}

	confidence := parsed.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return &core.Intent{
		Kind:       kind,
		Confidence: confidence,
		Rationale:  parsed.Rationale,
		Model:      c.modelName,
	}, nil
}
