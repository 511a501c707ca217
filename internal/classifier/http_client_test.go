package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kdimtricp/faik/internal/detection"
)

func testConfig(url string) *Config {
	config := NewConfig()
	config.BaseURL = url
	config.Timeout = 2 * time.Second
	config.MaxRetries = 2
	config.RetryBackoff = time.Millisecond
	return config
}

func TestHTTPClient_Classify(t *testing.T) {
	tests := []struct {
		name       string
		response   string
		expectedAI float64
		wantErr    bool
	}{
		{
			name:       "equal logits",
			response:   `{"logits": [1.5, 1.5]}`,
			expectedAI: 0.5,
		},
		{
			name:       "logits favor AI",
			response:   `{"logits": [2.0, 0.0]}`,
			expectedAI: 1 / (1 + math.Exp(-2)),
		},
		{
			name:       "probabilities passed through",
			response:   `{"probabilities": [0.3, 0.7]}`,
			expectedAI: 0.3,
		},
		{
			name:     "wrong number of outputs",
			response: `{"logits": [0.1, 0.2, 0.3]}`,
			wantErr:  true,
		},
		{
			name:     "error payload",
			response: `{"error": {"message": "bad input", "type": "ValueError"}}`,
			wantErr:  true,
		},
		{
			name:     "no outputs",
			response: `{}`,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got classifyRequest
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/classify" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
					t.Errorf("failed to decode request: %v", err)
				}
				w.Write([]byte(tt.response))
			}))
			defer server.Close()

			client, err := NewHTTPClient(testConfig(server.URL))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			p, err := client.Classify(context.Background(), []float32{0.1, -0.1, 0.2}, 16000)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if math.Abs(p.AIGenerated-tt.expectedAI) > 1e-9 {
				t.Errorf("expected ai_generated %f, got %f", tt.expectedAI, p.AIGenerated)
			}
			if math.Abs(p.AIGenerated+p.Real-1) > 1e-9 {
				t.Errorf("probabilities do not sum to 1: %+v", p)
			}
			if got.SampleRate != 16000 || len(got.Samples) != 3 || got.Model != DefaultModelName {
				t.Errorf("unexpected request body: %+v", got)
			}
		})
	}
}

func TestHTTPClient_Retries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"logits": [0, 0]}`))
	}))
	defer server.Close()

	client, _ := NewHTTPClient(testConfig(server.URL))
	if _, err := client.Classify(context.Background(), []float32{0}, 16000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestHTTPClient_StatusErrors(t *testing.T) {
	tests := []struct {
		name             string
		status           int
		expectedCalls    int32
		modelUnavailable bool
	}{
		{"bad request is not retried", http.StatusBadRequest, 1, false},
		{"server error exhausts retries", http.StatusInternalServerError, 3, false},
		{"unavailable maps to model unavailable", http.StatusServiceUnavailable, 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				http.Error(w, "nope", tt.status)
			}))
			defer server.Close()

			client, _ := NewHTTPClient(testConfig(server.URL))
			_, err := client.Classify(context.Background(), []float32{0}, 16000)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if calls.Load() != tt.expectedCalls {
				t.Errorf("expected %d attempts, got %d", tt.expectedCalls, calls.Load())
			}
			if errors.Is(err, detection.ErrModelUnavailable) != tt.modelUnavailable {
				t.Errorf("unexpected model unavailable state for %v", err)
			}
		})
	}
}

func TestHTTPClient_Describe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/info" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"model_type": "wav2vec2", "feature_extractor_type": "Wav2Vec2FeatureExtractor", "model_config": {"hidden_size": 768}}`))
	}))
	defer server.Close()

	client, _ := NewHTTPClient(testConfig(server.URL + "/"))
	info, err := client.Describe(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if info.ModelName != DefaultModelName {
		t.Errorf("expected default model name, got %q", info.ModelName)
	}
	if info.ModelType != "wav2vec2" {
		t.Errorf("expected model type wav2vec2, got %q", info.ModelType)
	}
	if info.NumClasses != 2 || info.ClassMapping["0"] != "AI Generated" || info.ClassMapping["1"] != "Real" {
		t.Errorf("unexpected class info: %d %v", info.NumClasses, info.ClassMapping)
	}
}

func TestNewHTTPClient_RequiresURL(t *testing.T) {
	if _, err := NewHTTPClient(NewConfig()); err == nil {
		t.Error("expected error without base URL")
	}
}

func TestFromLogits(t *testing.T) {
	p, err := FromLogits([]float64{1000, 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.IsNaN(p.AIGenerated) || p.AIGenerated < 0.999 {
		t.Errorf("expected stable softmax near 1, got %f", p.AIGenerated)
	}

	if _, err := FromLogits([]float64{1}); err == nil {
		t.Error("expected error for single logit")
	}
}
