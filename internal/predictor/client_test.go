package predictor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredictEmptyInputSkipsRequest(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 3000, time.Second)
	labels, err := client.Predict(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, labels)
	assert.Equal(t, 0, calls)
}

func TestPredictSingleChunk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req PredictRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		labels := make([]int, len(req.Texts))
		for i := range req.Texts {
			labels[i] = i % 3
		}
		require.NoError(t, json.NewEncoder(w).Encode(PredictResponse{Labels: labels}))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 3000, time.Second)
	labels, err := client.Predict(context.Background(), []string{"bad", "ok", "great"})

	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, labels)
}

func TestPredictPreservesChunkOrder(t *testing.T) {
	// Each response echoes the chunk index as the label for every text, so
	// the concatenated result reveals any reordering.
	chunk := 0
	var chunkSizes []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req PredictRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		chunkSizes = append(chunkSizes, len(req.Texts))
		labels := make([]int, len(req.Texts))
		for i := range labels {
			labels[i] = chunk
		}
		chunk++
		require.NoError(t, json.NewEncoder(w).Encode(PredictResponse{Labels: labels}))
	}))
	defer srv.Close()

	texts := make([]string, 7000)
	for i := range texts {
		texts[i] = fmt.Sprintf("comment %d", i)
	}

	client := NewClient(srv.URL, 3000, 5*time.Second)
	labels, err := client.Predict(context.Background(), texts)

	require.NoError(t, err)
	require.Len(t, labels, 7000)
	assert.Equal(t, []int{3000, 3000, 1000}, chunkSizes)
	assert.Equal(t, 0, labels[0])
	assert.Equal(t, 0, labels[2999])
	assert.Equal(t, 1, labels[3000])
	assert.Equal(t, 1, labels[5999])
	assert.Equal(t, 2, labels[6000])
	assert.Equal(t, 2, labels[6999])
}

func TestPredictNon200IsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "inference failed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 3000, time.Second)
	_, err := client.Predict(context.Background(), []string{"text"})

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
}

func TestPredictUnreachableIsTransportError(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", 3000, 100*time.Millisecond)
	_, err := client.Predict(context.Background(), []string{"text"})

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
}

func TestPredictProtocolErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: `{"labels": [`},
		{name: "missing labels field", body: `{}`},
		{name: "wrong label count", body: `{"labels": [0, 1]}`},
		{name: "negative label", body: `{"labels": [-1]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient(srv.URL, 3000, time.Second)
			_, err := client.Predict(context.Background(), []string{"text"})

			var protocolErr *ProtocolError
			require.ErrorAs(t, err, &protocolErr)
		})
	}
}

func TestHealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		require.NoError(t, json.NewEncoder(w).Encode(HealthResponse{Status: "healthy"}))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 3000, time.Second)
	health, err := client.HealthCheck(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)
}

func TestHealthCheckNon200IsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "loading model", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 3000, time.Second)
	_, err := client.HealthCheck(context.Background())

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
}

func TestPredictFailingSecondChunkAbortsAll(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls > 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		var req PredictRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NoError(t, json.NewEncoder(w).Encode(PredictResponse{Labels: make([]int, len(req.Texts))}))
	}))
	defer srv.Close()

	texts := make([]string, 5)
	client := NewClient(srv.URL, 3, time.Second)
	labels, err := client.Predict(context.Background(), texts)

	require.Error(t, err)
	assert.Nil(t, labels)
	assert.Equal(t, 2, calls)
}
