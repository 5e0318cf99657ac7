package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"llamachat/internal/entities"
)

func TestGenerate_FoldsFragments(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/generate" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Write([]byte("{\"response\":\"Hel\"}\n{\"response\":\"lo\"}\n\n{\"response\":\"\",\"done\":true}"))
	}))
	defer srv.Close()

	client := NewOllamaClient(srv.URL+"/", 0)
	gen, err := client.Generate(context.Background(), "llama3", "say hello")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if gen.Reply != "Hello" {
		t.Fatalf("reply = %q, want %q", gen.Reply, "Hello")
	}
	if gen.Elapsed < 0 {
		t.Fatalf("negative elapsed time %v", gen.Elapsed)
	}
	if got.Model != "llama3" || got.Prompt != "say hello" || !got.Stream {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestGenerate_Errors(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not found", http.StatusNotFound)
		},
		"malformed": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("{\"response\":\"ok\"}\nnot-json\n"))
		},
		"error line": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("{\"error\":\"out of memory\"}\n"))
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()

			_, err := NewOllamaClient(srv.URL, 0).Generate(context.Background(), "m", "p")
			var gwErr *GatewayError
			if !errors.As(err, &gwErr) {
				t.Fatalf("expected GatewayError, got %v", err)
			}
			if gwErr.Cause == "" {
				t.Fatalf("empty cause")
			}
		})
	}
}

func TestGenerate_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewOllamaClient(url, time.Second).Generate(context.Background(), "m", "p")
	var gwErr *GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("expected GatewayError, got %v", err)
	}
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"models":[{"name":"llama3:8b","size":4661224676,"modified_at":"2024-05-01T10:00:00Z"},{"name":"gemma3:4b-it-qat","size":1}]}`))
	}))
	defer srv.Close()

	models := NewOllamaClient(srv.URL, time.Second).ListModels(context.Background())
	if len(models) != 2 {
		t.Fatalf("len = %d, want 2", len(models))
	}
	if models[0].Name != "llama3:8b" || models[0].Size != 4661224676 || models[0].ModifiedAt == "" {
		t.Fatalf("unexpected first model %+v", models[0])
	}
}

func TestListModels_DegradesToSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	models := NewOllamaClient(srv.URL, time.Second).ListModels(context.Background())
	if len(models) != 1 || models[0].Name != entities.NoModelsAvailable || models[0].Size != 0 {
		t.Fatalf("expected sentinel, got %+v", models)
	}
}

func TestFoldStream_LargeLine(t *testing.T) {
	big := strings.Repeat("x", 200*1024)
	reply, err := foldStream(strings.NewReader(`{"response":"` + big + `"}`))
	if err != nil {
		t.Fatalf("foldStream: %v", err)
	}
	if len(reply) != len(big) {
		t.Fatalf("reply length = %d", len(reply))
	}
}
