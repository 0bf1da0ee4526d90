package vllm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rhuss/autoif/pkg/api"
	"github.com/rhuss/autoif/pkg/provider"
	"github.com/rhuss/autoif/pkg/provider/openaicompat"
)

func TestVLLMProvider_Name(t *testing.T) {
	p, err := New(DefaultConfig("http://localhost:8000"))
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	defer p.Close()

	if p.Name() != "vllm" {
		t.Errorf("expected name %q, got %q", "vllm", p.Name())
	}
}

func TestVLLMProvider_New_MissingBaseURL(t *testing.T) {
	_, err := New(Config{})
	if err == nil {
		t.Fatal("expected error for missing BaseURL")
	}
}

func TestVLLMProvider_Generate_RepetitionPenalty(t *testing.T) {
	tests := []struct {
		name    string
		penalty *float64
		want    any
	}{
		{"set", func() *float64 { v := 1.1; return &v }(), 1.1},
		{"unset", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var body map[string]any
				if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
					t.Errorf("failed to decode request: %v", err)
				}
				if got := body["repetition_penalty"]; got != tt.want {
					t.Errorf("repetition_penalty = %v, want %v", got, tt.want)
				}
				if body["n"] != float64(2) {
					t.Errorf("n = %v, want 2", body["n"])
				}

				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(openaicompat.ChatCompletionResponse{
					Model: "test-model",
					Choices: []openaicompat.ChatChoice{
						{Index: 0, Message: openaicompat.ChatMessage{Role: "assistant", Content: "a"}},
						{Index: 1, Message: openaicompat.ChatMessage{Role: "assistant", Content: "b"}},
					},
				})
			}))
			defer srv.Close()

			p, err := New(Config{BaseURL: srv.URL})
			if err != nil {
				t.Fatalf("failed to create provider: %v", err)
			}
			defer p.Close()

			resp, err := p.Generate(context.Background(), &provider.Request{
				Model:    "test-model",
				Messages: api.UserMessages("Hi"),
				Params:   api.SamplingParams{N: 2, RepetitionPenalty: tt.penalty},
			})
			if err != nil {
				t.Fatalf("Generate failed: %v", err)
			}
			if len(resp.Completions) != 2 || resp.Completions[0] != "a" || resp.Completions[1] != "b" {
				t.Errorf("completions = %v, want [a b]", resp.Completions)
			}
		})
	}
}

func TestVLLMProvider_Generate_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"internal server error","type":"server_error"}}`))
	}))
	defer srv.Close()

	p, err := New(Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	defer p.Close()

	_, err = p.Generate(context.Background(), &provider.Request{Model: "m", Messages: api.UserMessages("Hi")})
	if err == nil {
		t.Fatal("expected error for 500 response")
	}

	apiErr, ok := err.(*api.Error)
	if !ok {
		t.Fatalf("expected *api.Error, got %T", err)
	}
	if apiErr.Kind != api.ErrorKindService {
		t.Errorf("expected error kind %q, got %q", api.ErrorKindService, apiErr.Kind)
	}
	if apiErr.Message != "internal server error" {
		t.Errorf("expected error message %q, got %q", "internal server error", apiErr.Message)
	}
	if apiErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", apiErr.StatusCode)
	}
}

func TestVLLMProvider_ListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(openaicompat.ChatModelsResponse{
			Object: "list",
			Data:   []openaicompat.ChatModel{{ID: "Qwen2-72B-Instruct", Object: "model"}},
		})
	}))
	defer srv.Close()

	p, err := New(Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	defer p.Close()

	models, err := p.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}
	if len(models) != 1 || models[0].ID != "Qwen2-72B-Instruct" {
		t.Errorf("models = %+v, want [Qwen2-72B-Instruct]", models)
	}
}
