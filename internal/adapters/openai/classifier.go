package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mikey/llm-email-triage/internal/core"
	"github.com/mikey/llm-email-triage/internal/utils"
)

// Classifier is an implementation of the core.Classifier interface using the
// OpenAI chat completion API.
type Classifier struct {
	client        *openai.Client
	modelName     string
	maxTokens     int
	temperature   float32
	topP          float32
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

// NewClassifier creates a new OpenAI classifier.
func NewClassifier(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *Classifier {
	client := openai.NewClient(apiKey)

	return &Classifier{
		client:        client,
		modelName:     modelName,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
		promptFormat:  triagePromptFormat,
	}
}

const triagePromptFormat = `You are an email triage system for an electronics distributor's support inbox.
Classify the customer's intent as exactly one of:
- order_modification (change shipping address, add or remove products on an existing order)
- order_cancellation (cancel an existing order)
- order_merge (combine several orders into one shipment)
- price_inquiry (ask for a price or a quote)
- inventory_inquiry (ask whether a product is in stock)
- logistics_inquiry (ask where a shipment is or when it arrives)
- general_inquiry (anything else)

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

Respond only with the JSON object and nothing else.`

// Classify maps an email to one intent from the closed taxonomy. It returns
// ClassificationUnavailable when the API cannot be reached; an answer the
// model gives outside the taxonomy degrades to a general inquiry instead of
// failing.
func (c *Classifier) Classify(ctx context.Context, email *core.NormalizedEmail) (*core.Intent, error) {
	processedBody := c.textProcessor.ProcessText(email.Body, c.maxBodySize)
	prompt := fmt.Sprintf(c.promptFormat,
		email.From,
		email.Subject,
		strings.Join(email.Entities.OrderIDs, ", "),
		strings.Join(email.Entities.ProductIDs, ", "),
		processedBody)

	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an email triage system. Respond only with JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
	}
	req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: "json"}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, core.ClassificationUnavailable(fmt.Errorf("failed to create chat completion with OpenAI: %w", err))
	}
	if len(resp.Choices) == 0 {
		return nil, core.ClassificationUnavailable(fmt.Errorf("empty response from OpenAI"))
	}

	return decodeIntent(resp.Choices[0].Message.Content, c.modelName, c.logger), nil
}

// decodeIntent parses the model's JSON answer, tolerating surrounding prose
// by scanning for the outermost braces. Undecodable answers degrade to a low
// confidence general inquiry; the contract never returns "no intent".
func decodeIntent(responseText, modelName string, logger *zap.Logger) *core.Intent {
	var parsed intentResponse
	if err := json.Unmarshal([]byte(responseText), &parsed); err != nil {
		jsonStart := strings.Index(responseText, "{")
		jsonEnd := strings.LastIndex(responseText, "}")
		if jsonStart >= 0 && jsonEnd > jsonStart {
			err = json.Unmarshal([]byte(responseText[jsonStart:jsonEnd+1]), &parsed)
		}
		if err != nil {
			logger.Warn("Unparseable classification response",
				zap.String("model", modelName),
				zap.String("response", responseText))
			return &core.Intent{
				Kind:       core.IntentGeneralInquiry,
				Confidence: 0.2,
				Rationale:  "model response could not be parsed",
				Model:      modelName,
			}
		}
	}

	kind := core.IntentKind(parsed.Intent)
	if !core.ValidIntentKind(kind) {
		logger.Warn("Model returned an intent outside the taxonomy",
			zap.String("model", modelName),
			zap.String("intent", parsed.Intent))
		return &core.Intent{
			Kind:       core.IntentGeneralInquiry,
			Confidence: 0.2,
			Rationale:  fmt.Sprintf("model answered %q, outside the intent taxonomy", parsed.Intent),
			Model:      modelName,
		}
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
		Model:      modelName,
	}
}
