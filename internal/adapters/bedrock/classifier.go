package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"

	"github.com/mikey/llm-email-triage/internal/core"
	"github.com/mikey/llm-email-triage/internal/utils"
)

// Classifier is an implementation of the core.Classifier interface using
// Amazon Bedrock.
type Classifier struct {
	client        *bedrockruntime.Client
	modelID       string
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

// NewClassifier creates a new Bedrock classifier.
func NewClassifier(
	client *bedrockruntime.Client,
	modelID string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *Classifier {
	return &Classifier{
		client:        client,
		modelID:       modelID,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
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
	}
}

func (c *Classifier) isAnthropicModel() bool {
	return strings.Contains(c.modelID, "anthropic")
}

func (c *Classifier) isAmazonTitanModel() bool {
	return strings.Contains(c.modelID, "amazon.titan")
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

	var (
		payload []byte
		err     error
	)

	if c.isAnthropicModel() {
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":               prompt,
			"max_tokens_to_sample": c.maxTokens,
			"temperature":          c.temperature,
			"top_p":                c.topP,
		})
	} else if c.isAmazonTitanModel() {
		payload, err = json.Marshal(map[string]interface{}{
			"inputText": prompt,
			"textGenerationConfig": map[string]interface{}{
				"maxTokenCount": c.maxTokens,
				"temperature":   c.temperature,
				"topP":          c.topP,
			},
		})
	} else {
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":      prompt,
			"max_tokens":  c.maxTokens,
			"temperature": c.temperature,
			"top_p":       c.topP,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	resp, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &c.modelID,
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, core.ClassificationUnavailable(fmt.Errorf("failed to invoke Bedrock model: %w", err))
	}

	responseText, err := c.extractResponseText(resp.Body)
	if err != nil {
		return nil, core.ClassificationUnavailable(err)
	}

	return parseIntent(responseText, c.modelID, c.logger), nil
}

func (c *Classifier) extractResponseText(body []byte) (string, error) {
	if c.isAnthropicModel() {
		var claudeResp struct {
			Completion string `json:"completion"`
		}
		if err := json.Unmarshal(body, &claudeResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Claude response: %w", err)
		}
		return claudeResp.Completion, nil
	}

	if c.isAmazonTitanModel() {
		var titanResp struct {
			Results []struct {
				OutputText string `json:"outputText"`
			} `json:"results"`
		}
		if err := json.Unmarshal(body, &titanResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Titan response: %w", err)
		}
		if len(titanResp.Results) == 0 {
			return "", fmt.Errorf("empty response from Titan model")
		}
		return titanResp.Results[0].OutputText, nil
	}

	var genericResp struct {
		Output   string `json:"output"`
		Text     string `json:"text"`
		Response string `json:"response"`
	}
	if err := json.Unmarshal(body, &genericResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal model response: %w", err)
	}
	for _, text := range []string{genericResp.Output, genericResp.Text, genericResp.Response} {
		if text != "" {
			return text, nil
		}
	}
	return "", fmt.Errorf("empty response from model")
}

// parseIntent decodes the model's JSON answer, tolerating surrounding prose.
// Answers outside the taxonomy degrade to a low-confidence general inquiry.
func parseIntent(responseText, modelID string, logger *zap.Logger) *core.Intent {
	var parsed intentResponse
	if err := json.Unmarshal([]byte(responseText), &parsed); err != nil {
		jsonStart := strings.Index(responseText, "{")
		jsonEnd := strings.LastIndex(responseText, "}")
		if jsonStart >= 0 && jsonEnd > jsonStart {
			err = json.Unmarshal([]byte(responseText[jsonStart:jsonEnd+1]), &parsed)
		}
		if err != nil {
			logger.Warn("Unparseable classification response",
				zap.String("model", modelID),
				zap.String("response", responseText))
			return &core.Intent{
				Kind:       core.IntentGeneralInquiry,
				Confidence: 0.2,
				Rationale:  "model response could not be parsed",
				Model:      modelID,
			}
		}
	}

	kind := core.IntentKind(parsed.Intent)
	if !core.ValidIntentKind(kind) {
		return &core.Intent{
			Kind:       core.IntentGeneralInquiry,
			Confidence: 0.2,
			Rationale:  fmt.Sprintf("model answered %q, outside the intent taxonomy", parsed.Intent),
			Model:      modelID,
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
		Model:      modelID,
	}
}
