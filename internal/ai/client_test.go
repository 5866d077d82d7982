package ai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftled/contentops/internal/ai"
	"github.com/craftled/contentops/internal/config"
)

func newTestClient(url string) *ai.Client {
	return ai.NewClient(config.AIEnv{
		APIKey:        "test-key",
		Endpoint:      url + "/v1/messages",
		BatchEndpoint: url + "/v1/messages/batches",
		Model:         "test-model",
		MaxRetries:    3,
		MaxRetryDelay: 10 * time.Millisecond,
	})
}

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-model", body["model"])
		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{{"type": "text", "text": `{"ok": true}`}},
		})
	}))
	defer srv.Close()

	text, err := newTestClient(srv.URL).Generate(context.Background(), "system", "user")
	require.NoError(t, err)
	assert.Equal(t, `{"ok": true}`, text)
}

func TestGenerateRetriesOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{{"type": "text", "text": "recovered"}},
		})
	}))
	defer srv.Close()

	text, err := newTestClient(srv.URL).Generate(context.Background(), "", "user")
	require.NoError(t, err)
	assert.Equal(t, "recovered", text)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGenerateDoesNotRetryClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error": {"message": "invalid model"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Generate(context.Background(), "", "user")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSubmitAndPollBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/messages/batches":
			var body struct {
				Requests []struct {
					CustomID string `json:"custom_id"`
				} `json:"requests"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Len(t, body.Requests, 2)
			json.NewEncoder(w).Encode(map[string]any{
				"id": "msgbatch_01", "processing_status": "in_progress",
				"request_counts": map[string]int{"processing": 2},
			})
		case r.Method == http.MethodGet && r.URL.Path == "/v1/messages/batches/msgbatch_01":
			json.NewEncoder(w).Encode(map[string]any{
				"id": "msgbatch_01", "processing_status": "ended",
				"request_counts": map[string]int{"succeeded": 2},
				"results_url":    "http://example.invalid/results",
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	batchID, err := client.SubmitBatch(context.Background(), []ai.BatchRequest{
		{CustomID: "v-0", UserPrompt: "p"},
		{CustomID: "v-1", UserPrompt: "p"},
	})
	require.NoError(t, err)
	assert.Equal(t, "msgbatch_01", batchID)

	status, err := client.GetBatchStatus(context.Background(), batchID)
	require.NoError(t, err)
	assert.Equal(t, "ended", status.Status)
	assert.Equal(t, 2, status.RequestCounts.Succeeded)
	assert.Equal(t, 2, status.RequestCounts.Total())
}

func TestFetchResultsParsesLines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"custom_id":"v-0","result":{"type":"succeeded","message":{"content":[{"type":"text","text":"{\"name\":\"Riomaggiore\"}"}]}}}
{"custom_id":"v-1","result":{"type":"errored","error":{"message":"overloaded"}}}
`))
	}))
	defer srv.Close()

	results, err := newTestClient(srv.URL).FetchResults(context.Background(), srv.URL+"/results")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "succeeded", results[0].Type)
	assert.Contains(t, results[0].Text, "Riomaggiore")
	assert.Equal(t, "overloaded", results[1].Error)
}
