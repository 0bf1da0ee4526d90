package openaicompat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rhuss/autoif/pkg/api"
	"github.com/rhuss/autoif/pkg/provider"
)

func ptr[T any](v T) *T { return &v }

func TestClient_Generate_MultipleChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("expected path /v1/chat/completions, got %s", r.URL.Path)
		}

		var chatReq ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&chatReq); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if chatReq.Model != "test-model" {
			t.Errorf("expected model %q, got %q", "test-model", chatReq.Model)
		}
		if chatReq.N != 3 {
			t.Errorf("expected N=3, got %d", chatReq.N)
		}
		if chatReq.Temperature == nil || *chatReq.Temperature != 0.7 {
			t.Errorf("expected temperature 0.7, got %v", chatReq.Temperature)
		}
		if len(chatReq.Messages) != 1 || chatReq.Messages[0].Role != "user" {
			t.Errorf("unexpected messages: %+v", chatReq.Messages)
		}

		// Choices deliberately out of index order.
		resp := ChatCompletionResponse{
			ID:    "chatcmpl-1",
			Model: "test-model",
			Choices: []ChatChoice{
				{Index: 2, Message: ChatMessage{Role: "assistant", Content: "third"}},
				{Index: 0, Message: ChatMessage{Role: "assistant", Content: "first"}},
				{Index: 1, Message: ChatMessage{Role: "assistant", Content: nil}},
			},
			Usage: &ChatUsage{PromptTokens: 5, CompletionTokens: 7, TotalTokens: 12},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "", 0)
	defer c.Close()

	resp, err := c.Generate(context.Background(), &provider.Request{
		Model:    "test-model",
		Messages: api.UserMessages("Hi"),
		Params:   api.SamplingParams{N: 3, Temperature: ptr(0.7)},
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	want := []string{"first", "", "third"}
	if len(resp.Completions) != len(want) {
		t.Fatalf("expected %d completions, got %d", len(want), len(resp.Completions))
	}
	for i := range want {
		if resp.Completions[i] != want[i] {
			t.Errorf("completion[%d] = %q, want %q", i, resp.Completions[i], want[i])
		}
	}
	if resp.Usage.TotalTokens != 12 {
		t.Errorf("usage.total_tokens = %d, want 12", resp.Usage.TotalTokens)
	}
}

func TestClient_Generate_ExtraBodyAndAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer sk-test")
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if body["repetition_penalty"] != 1.05 {
			t.Errorf("repetition_penalty = %v, want 1.05", body["repetition_penalty"])
		}
		if body["model"] != "mapped-model" {
			t.Errorf("model = %v, want mapped-model", body["model"])
		}

		json.NewEncoder(w).Encode(ChatCompletionResponse{
			Choices: []ChatChoice{{Message: ChatMessage{Content: "ok"}}},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk-test", 0)
	c.ModelMapper = func(string) string { return "mapped-model" }
	c.ExtraBody = func(p api.SamplingParams) map[string]any {
		return map[string]any{"repetition_penalty": *p.RepetitionPenalty}
	}

	_, err := c.Generate(context.Background(), &provider.Request{
		Model:    "m",
		Messages: api.UserMessages("Hi"),
		Params:   api.SamplingParams{RepetitionPenalty: ptr(1.05)},
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
}

func TestClient_Generate_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ChatCompletionResponse{Model: "m"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 0)
	_, err := c.Generate(context.Background(), &provider.Request{Model: "m", Messages: api.UserMessages("Hi")})
	if !api.IsKind(err, api.ErrorKindService) {
		t.Fatalf("expected service error, got %v", err)
	}
}

func TestClient_Generate_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 0)
	_, err := c.Generate(context.Background(), &provider.Request{Model: "m", Messages: api.UserMessages("Hi")})
	if err == nil {
		t.Fatal("expected error for 429 response")
	}
	if !api.IsRateLimited(err) {
		t.Errorf("expected rate-limited service error, got %v", err)
	}
}

func TestClient_Generate_ConnectionRefused(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "", 0)
	_, err := c.Generate(context.Background(), &provider.Request{Model: "m", Messages: api.UserMessages("Hi")})
	if !api.IsKind(err, api.ErrorKindService) {
		t.Fatalf("expected service error, got %v", err)
	}
}

func TestClient_ListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/v1/models" {
			t.Errorf("expected path /v1/models, got %s", r.URL.Path)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ChatModelsResponse{
			Object: "list",
			Data: []ChatModel{
				{ID: "meta-llama/Llama-3-8B", Object: "model", OwnedBy: "meta"},
				{ID: "mistral-7b", Object: "model", OwnedBy: "mistral"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 0)
	models, err := c.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(models))
	}
	if models[0].ID != "meta-llama/Llama-3-8B" {
		t.Errorf("model[0].ID = %q, want %q", models[0].ID, "meta-llama/Llama-3-8B")
	}
}

func TestTranslateToChat_DefaultsN(t *testing.T) {
	cr := TranslateToChat(&provider.Request{Model: "m", Messages: api.UserMessages("Hi")})
	if cr.N != 1 {
		t.Errorf("N = %d, want 1", cr.N)
	}
	if cr.Stream {
		t.Error("expected stream to be false")
	}
}
