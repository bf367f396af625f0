package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/upb/insight-rag/models"
	"github.com/upb/insight-rag/utils"
)

type mockInsightService struct {
	mock.Mock
}

func (m *mockInsightService) TopSuggestions(ctx context.Context, query string) []models.Suggestion {
	args := m.Called(ctx, query)
	if v := args.Get(0); v != nil {
		return v.([]models.Suggestion)
	}
	return nil
}

func (m *mockInsightService) AnswerQuery(ctx context.Context, query string) models.AnswerResult {
	return m.Called(ctx, query).Get(0).(models.AnswerResult)
}

func TestHandleSuggestions(t *testing.T) {
	svc := &mockInsightService{}
	handler := NewInsightHandler(svc, zap.NewNop())

	svc.On("TopSuggestions", mock.Anything, "how do I save?").Return([]models.Suggestion{
		{Text: "Cook at home more often", Confidence: 0.91},
	})

	req := httptest.NewRequest(http.MethodPost, "/suggestions", strings.NewReader(`{"query":"how do I save?"}`))
	w := httptest.NewRecorder()
	handler.HandleSuggestions(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"suggestions":[{"suggestion":"Cook at home more often","confidence":0.91}]}`, w.Body.String())
	svc.AssertExpectations(t)
}

func TestHandleSuggestions_NilBecomesEmptyArray(t *testing.T) {
	svc := &mockInsightService{}
	handler := NewInsightHandler(svc, zap.NewNop())
	svc.On("TopSuggestions", mock.Anything, "").Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/suggestions", strings.NewReader(`{"query":""}`))
	w := httptest.NewRecorder()
	handler.HandleSuggestions(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"suggestions":[]}`, w.Body.String())
}

func TestHandleQuery(t *testing.T) {
	svc := &mockInsightService{}
	handler := NewInsightHandler(svc, zap.NewNop())

	svc.On("AnswerQuery", mock.Anything, "where does my money go?").Return(models.NewAnswerResult(
		"Mostly dining out.",
		[]models.Source{{ID: 1, Title: "You spend 40% of income on dining out", Confidence: 0.91}},
	))

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query":"where does my money go?"}`))
	w := httptest.NewRecorder()
	handler.HandleQuery(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"answer": "Mostly dining out.",
		"sources": [{"id": 1, "title": "You spend 40% of income on dining out", "confidence": 0.91}]
	}`, w.Body.String())
}

func TestHandleQuery_EmptySourcesSerializeAsArray(t *testing.T) {
	svc := &mockInsightService{}
	handler := NewInsightHandler(svc, zap.NewNop())
	svc.On("AnswerQuery", mock.Anything, "").Return(models.AnswerResult{Answer: "no data"})

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query":""}`))
	w := httptest.NewRecorder()
	handler.HandleQuery(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"answer":"no data","sources":[]}`, w.Body.String())
}

func TestInsightHandler_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantDetail string
	}{
		{"missing query", `{}`, "query"},
		{"null query", `{"query":null}`, "query"},
		{"too long", `{"query":"` + strings.Repeat("a", MaxQueryLength+1) + `"}`, "query"},
		{"malformed json", `{"query":`, ""},
		{"wrong type", `{"query":5}`, ""},
		{"empty body", ``, ""},
	}

	for _, tt := range tests {
		for _, path := range []string{"/suggestions", "/query"} {
			t.Run(tt.name+" "+path, func(t *testing.T) {
				svc := &mockInsightService{}
				handler := NewInsightHandler(svc, zap.NewNop())

				req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(tt.body))
				w := httptest.NewRecorder()
				if path == "/query" {
					handler.HandleQuery(w, req)
				} else {
					handler.HandleSuggestions(w, req)
				}

				assert.Equal(t, http.StatusBadRequest, w.Code)

				var response utils.ErrorResponse
				require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
				assert.Equal(t, "bad_request", response.Error)
				assert.NotEmpty(t, response.Message)
				if tt.wantDetail != "" {
					assert.Contains(t, response.Details, tt.wantDetail)
				}

				svc.AssertNotCalled(t, "TopSuggestions", mock.Anything, mock.Anything)
				svc.AssertNotCalled(t, "AnswerQuery", mock.Anything, mock.Anything)
			})
		}
	}
}

func TestInsightHandler_AcceptsMaxLengthQuery(t *testing.T) {
	svc := &mockInsightService{}
	handler := NewInsightHandler(svc, zap.NewNop())
	query := strings.Repeat("ü", MaxQueryLength)
	svc.On("AnswerQuery", mock.Anything, query).Return(models.NewAnswerResult("ok", nil))

	body, err := json.Marshal(QueryRequest{Query: &query})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(string(body)))
	w := httptest.NewRecorder()
	handler.HandleQuery(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
