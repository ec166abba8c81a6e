// Package analyzer asks a hosted vision model to propose category
// splits for a receipt image.
//
// The model is an untrusted external classifier: its output is parsed
// into proposed splits and must pass through the validator before
// anything is written. An empty or missing proposal means "no
// suggestions available" and is not an error.
package analyzer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cpenarrieta/personal-finance-backend/internal/cache"
	"github.com/cpenarrieta/personal-finance-backend/internal/domain/validator"
	"github.com/cpenarrieta/personal-finance-backend/internal/infrastructure/storage"
)

// VisionClient interface for chat-completion calls, for dependency injection
type VisionClient interface {
	CreateChatCompletion(ctx context.Context, request ChatCompletionRequest) (*ChatCompletionResponse, error)
}

// Chat-completion API types

type ChatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

type ResponseFormat struct {
	Type string `json:"type"`
}

type Message struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

type ChatCompletionResponse struct {
	Choices []Choice `json:"choices"`
}

type Choice struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
}

// splitProposal is the JSON shape the model is instructed to return
type splitProposal struct {
	Splits []validator.ProposedSplit `json:"splits"`
}

// Analyzer proposes category splits from receipt images
type Analyzer struct {
	client VisionClient
	model  string
	cache  *cache.LRUCache[[]validator.ProposedSplit]
}

// NewAnalyzer creates a new analyzer using the given vision client
func NewAnalyzer(client VisionClient, model string) *Analyzer {
	return &Analyzer{
		client: client,
		model:  model,
		cache:  cache.NewLRUCache[[]validator.ProposedSplit](256, 24*time.Hour),
	}
}

// AnalyzeReceipt sends the receipt images and taxonomy to the vision
// model and parses the proposed splits.
//
// Returns (nil, nil) when the model has no suggestions. Callers must
// run the result through the validator before applying it.
func (a *Analyzer) AnalyzeReceipt(
	ctx context.Context,
	imageURLs []string,
	originalAmount float64,
	categories []*storage.Category,
) ([]validator.ProposedSplit, error) {
	if len(imageURLs) == 0 {
		return nil, fmt.Errorf("no receipt images provided")
	}

	cacheKey := a.cacheKey(imageURLs, originalAmount, categories)
	if cached, found := a.cache.Get(cacheKey); found {
		return cached, nil
	}

	request := a.buildRequest(imageURLs, originalAmount, categories)

	response, err := a.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("receipt analysis failed: %w", err)
	}

	splits, err := parseProposal(response)
	if err != nil {
		return nil, err
	}

	a.cache.Set(cacheKey, splits)
	return splits, nil
}

// Model returns the configured model name, for run logging
func (a *Analyzer) Model() string {
	return a.model
}

// buildRequest assembles the chat-completion request with the receipt
// images attached and the taxonomy embedded in the prompt
func (a *Analyzer) buildRequest(imageURLs []string, originalAmount float64, categories []*storage.Category) ChatCompletionRequest {
	parts := []ContentPart{
		{Type: "text", Text: buildPrompt(originalAmount, categories)},
	}
	for _, url := range imageURLs {
		parts = append(parts, ContentPart{
			Type:     "image_url",
			ImageURL: &ImageURL{URL: url},
		})
	}

	return ChatCompletionRequest{
		Model:       a.model,
		Temperature: 0.1, // Low temperature for consistent categorization
		ResponseFormat: &ResponseFormat{
			Type: "json_object",
		},
		Messages: []Message{
			{
				Role: "system",
				Content: []ContentPart{{
					Type: "text",
					Text: "You are a helpful assistant that reads receipts and groups line items into spending categories. Always respond with valid JSON.",
				}},
			},
			{
				Role:    "user",
				Content: parts,
			},
		},
	}
}

// parseProposal extracts proposed splits from the model response.
// No choices, empty content or zero splits all mean "no suggestions".
func parseProposal(response *ChatCompletionResponse) ([]validator.ProposedSplit, error) {
	if response == nil || len(response.Choices) == 0 {
		return nil, nil
	}

	content := strings.TrimSpace(response.Choices[0].Message.Content)
	if content == "" {
		return nil, nil
	}

	var proposal splitProposal
	if err := json.Unmarshal([]byte(content), &proposal); err != nil {
		return nil, fmt.Errorf("failed to parse analysis response: %w", err)
	}

	if len(proposal.Splits) == 0 {
		return nil, nil
	}

	return proposal.Splits, nil
}

// buildPrompt creates the prompt embedding the category taxonomy
func buildPrompt(originalAmount float64, categories []*storage.Category) string {
	var categoriesList strings.Builder
	for _, cat := range categories {
		categoriesList.WriteString(fmt.Sprintf("- %s", cat.Name))
		if len(cat.Subcategories) > 0 {
			subs := make([]string, 0, len(cat.Subcategories))
			for _, sub := range cat.Subcategories {
				subs = append(subs, sub.Name)
			}
			categoriesList.WriteString(fmt.Sprintf(" (subcategories: %s)", strings.Join(subs, ", ")))
		}
		categoriesList.WriteString("\n")
	}

	return fmt.Sprintf(`Read the attached receipt and group its line items into spending categories.

The transaction total is $%.2f.

Available categories:
%s
IMPORTANT Instructions:
1. Use ONLY category and subcategory names from the list above, spelled exactly as shown
2. Group related line items into one split per category
3. The split amounts MUST sum to the transaction total to the cent; include tax proportionally in each split
4. Summarize the items in each split briefly (e.g. "Milk, Bread, Eggs")
5. If the receipt is unreadable or everything belongs to a single category, return an empty splits list

Return the result as a JSON object with this structure:
{
  "splits": [
    {
      "category_name": "exact category name",
      "subcategory_name": "exact subcategory name or empty string",
      "amount": 12.34,
      "items_summary": "short item summary"
    }
  ]
}`, originalAmount, categoriesList.String())
}

// cacheKey hashes the model, images, amount and taxonomy into a stable
// key. The taxonomy is part of the key: a renamed category changes the
// prompt, and a cached proposal naming the old category would only fail
// validation downstream.
func (a *Analyzer) cacheKey(imageURLs []string, originalAmount float64, categories []*storage.Category) string {
	h := sha256.New()
	h.Write([]byte(a.model))
	h.Write([]byte(fmt.Sprintf("%.2f", originalAmount)))
	for _, url := range imageURLs {
		h.Write([]byte(url))
	}
	for _, cat := range categories {
		h.Write([]byte(cat.Name))
		for _, sub := range cat.Subcategories {
			h.Write([]byte(sub.Name))
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
