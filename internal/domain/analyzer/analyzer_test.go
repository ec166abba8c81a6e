package analyzer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cpenarrieta/personal-finance-backend/internal/infrastructure/storage"
)

// fakeVisionClient returns a canned response and records calls
type fakeVisionClient struct {
	response *ChatCompletionResponse
	err      error
	calls    int
	lastReq  ChatCompletionRequest
}

func (f *fakeVisionClient) CreateChatCompletion(_ context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	f.calls++
	f.lastReq = req
	return f.response, f.err
}

func makeResponse(content string) *ChatCompletionResponse {
	resp := &ChatCompletionResponse{Choices: []Choice{{}}}
	resp.Choices[0].Message.Role = "assistant"
	resp.Choices[0].Message.Content = content
	return resp
}

func makeCategories() []*storage.Category {
	return []*storage.Category{
		{ID: "cat-g", Name: "Groceries", Subcategories: []storage.Subcategory{
			{ID: "sub-p", CategoryID: "cat-g", Name: "Produce"},
		}},
		{ID: "cat-h", Name: "Household"},
	}
}

func TestAnalyzer_ParsesProposedSplits(t *testing.T) {
	// Arrange
	client := &fakeVisionClient{
		response: makeResponse(`{"splits":[
			{"category_name":"Groceries","amount":90.00,"items_summary":"milk, eggs"},
			{"category_name":"Household","amount":60.00}
		]}`),
	}
	a := NewAnalyzer(client, "gpt-4o")

	// Act
	splits, err := a.AnalyzeReceipt(context.Background(), []string{"https://example.com/r.jpg"}, 150.00, makeCategories())

	// Assert
	require.NoError(t, err)
	require.Len(t, splits, 2)
	assert.Equal(t, "Groceries", splits[0].CategoryName)
	assert.Equal(t, 90.00, splits[0].Amount)
	assert.Equal(t, "milk, eggs", splits[0].ItemsSummary)
}

func TestAnalyzer_EmptySplitsMeansNoSuggestions(t *testing.T) {
	// Arrange
	client := &fakeVisionClient{response: makeResponse(`{"splits":[]}`)}
	a := NewAnalyzer(client, "gpt-4o")

	// Act
	splits, err := a.AnalyzeReceipt(context.Background(), []string{"https://example.com/r.jpg"}, 150.00, makeCategories())

	// Assert
	require.NoError(t, err)
	assert.Nil(t, splits)
}

func TestAnalyzer_NoChoicesMeansNoSuggestions(t *testing.T) {
	// Arrange
	client := &fakeVisionClient{response: &ChatCompletionResponse{}}
	a := NewAnalyzer(client, "gpt-4o")

	// Act
	splits, err := a.AnalyzeReceipt(context.Background(), []string{"https://example.com/r.jpg"}, 150.00, makeCategories())

	// Assert
	require.NoError(t, err)
	assert.Nil(t, splits)
}

func TestAnalyzer_MalformedJSONIsAnError(t *testing.T) {
	// Arrange
	client := &fakeVisionClient{response: makeResponse(`not json`)}
	a := NewAnalyzer(client, "gpt-4o")

	// Act
	_, err := a.AnalyzeReceipt(context.Background(), []string{"https://example.com/r.jpg"}, 150.00, makeCategories())

	// Assert
	assert.Error(t, err)
}

func TestAnalyzer_ClientErrorPropagates(t *testing.T) {
	// Arrange
	client := &fakeVisionClient{err: errors.New("upstream timeout")}
	a := NewAnalyzer(client, "gpt-4o")

	// Act
	_, err := a.AnalyzeReceipt(context.Background(), []string{"https://example.com/r.jpg"}, 150.00, makeCategories())

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream timeout")
}

func TestAnalyzer_NoImagesIsAnError(t *testing.T) {
	// Arrange
	a := NewAnalyzer(&fakeVisionClient{}, "gpt-4o")

	// Act
	_, err := a.AnalyzeReceipt(context.Background(), nil, 150.00, makeCategories())

	// Assert
	assert.Error(t, err)
}

func TestAnalyzer_CachesByImagesAndAmount(t *testing.T) {
	// Arrange
	client := &fakeVisionClient{
		response: makeResponse(`{"splits":[
			{"category_name":"Groceries","amount":90.00},
			{"category_name":"Household","amount":60.00}
		]}`),
	}
	a := NewAnalyzer(client, "gpt-4o")
	urls := []string{"https://example.com/r.jpg"}

	// Act
	first, err := a.AnalyzeReceipt(context.Background(), urls, 150.00, makeCategories())
	require.NoError(t, err)
	second, err := a.AnalyzeReceipt(context.Background(), urls, 150.00, makeCategories())
	require.NoError(t, err)

	// Assert: the second call was served from cache
	assert.Equal(t, 1, client.calls)
	assert.Equal(t, first, second)
}

func TestAnalyzer_TaxonomyChangeBustsCache(t *testing.T) {
	// A renamed category changes the prompt; a cached proposal naming
	// the old category must not be served
	// Arrange
	client := &fakeVisionClient{
		response: makeResponse(`{"splits":[
			{"category_name":"Groceries","amount":90.00},
			{"category_name":"Household","amount":60.00}
		]}`),
	}
	a := NewAnalyzer(client, "gpt-4o")
	urls := []string{"https://example.com/r.jpg"}

	// Act
	_, err := a.AnalyzeReceipt(context.Background(), urls, 150.00, makeCategories())
	require.NoError(t, err)

	renamed := makeCategories()
	renamed[1].Name = "Home Supplies"
	_, err = a.AnalyzeReceipt(context.Background(), urls, 150.00, renamed)
	require.NoError(t, err)

	// Assert: the second call went to the backend
	assert.Equal(t, 2, client.calls)
	assert.Contains(t, client.lastReq.Messages[1].Content[0].Text, "Home Supplies")
}

func TestAnalyzer_RequestEmbedsTaxonomyAndImages(t *testing.T) {
	// Arrange
	client := &fakeVisionClient{response: makeResponse(`{"splits":[]}`)}
	a := NewAnalyzer(client, "gpt-4o")

	// Act
	_, err := a.AnalyzeReceipt(context.Background(),
		[]string{"https://example.com/a.jpg", "https://example.com/b.jpg"},
		42.00, makeCategories())

	// Assert
	require.NoError(t, err)
	require.Len(t, client.lastReq.Messages, 2)
	assert.Equal(t, "gpt-4o", client.lastReq.Model)

	userParts := client.lastReq.Messages[1].Content
	require.Len(t, userParts, 3) // prompt + two images
	assert.Contains(t, userParts[0].Text, "Groceries")
	assert.Contains(t, userParts[0].Text, "Produce")
	assert.Contains(t, userParts[0].Text, "$42.00")
	require.NotNil(t, userParts[1].ImageURL)
	assert.Equal(t, "https://example.com/a.jpg", userParts[1].ImageURL.URL)
}
