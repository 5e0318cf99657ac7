package infrastructure

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"llamachat/internal/entities"
)

// GatewayError is any failure talking to the model server. Nothing is retried.
type GatewayError struct {
	Cause string
}

func (e *GatewayError) Error() string {
	return e.Cause
}

func gatewayErrorf(format string, args ...any) *GatewayError {
	return &GatewayError{Cause: fmt.Sprintf(format, args...)}
}

// OllamaClient talks to an Ollama-compatible model server.
type OllamaClient struct {
	baseURL string
	http    *http.Client
}

// NewOllamaClient builds a client for baseURL. A zero timeout leaves generation unbounded;
// the caller's context still cancels it.
func NewOllamaClient(baseURL string, timeout time.Duration) *OllamaClient {
	return &OllamaClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateChunk struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

// Generate streams a completion and folds every fragment into one reply.
func (c *OllamaClient) Generate(ctx context.Context, model, prompt string) (*entities.Generation, error) {
	start := time.Now()

	payload, err := json.Marshal(generateRequest{Model: model, Prompt: prompt, Stream: true})
	if err != nil {
		return nil, gatewayErrorf("encode request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return nil, gatewayErrorf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, gatewayErrorf("%v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, gatewayErrorf("%s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	reply, err := foldStream(resp.Body)
	if err != nil {
		return nil, err
	}

	return &entities.Generation{Reply: reply, Elapsed: time.Since(start)}, nil
}

// foldStream concatenates the response field of each newline-delimited JSON object.
func foldStream(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var sb strings.Builder
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk generateChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			return "", gatewayErrorf("malformed stream line: %v", err)
		}
		if chunk.Error != "" {
			return "", gatewayErrorf("%s", chunk.Error)
		}
		sb.WriteString(chunk.Response)
	}
	if err := scanner.Err(); err != nil {
		return "", gatewayErrorf("read stream: %v", err)
	}
	return sb.String(), nil
}

type tagsResponse struct {
	Models []struct {
		Name       string `json:"name"`
		Size       int64  `json:"size"`
		ModifiedAt string `json:"modified_at"`
	} `json:"models"`
}

// ListModels never fails: any problem yields the single "no models" sentinel.
func (c *OllamaClient) ListModels(ctx context.Context) []entities.ModelInfo {
	models, err := c.listModels(ctx)
	if err != nil {
		log.Printf("[OLLAMA] Error getting models: %v", err)
		return []entities.ModelInfo{{Name: entities.NoModelsAvailable, Size: 0}}
	}
	return models
}

func (c *OllamaClient) listModels(ctx context.Context) ([]entities.ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}

	models := make([]entities.ModelInfo, 0, len(tags.Models))
	for _, m := range tags.Models {
		models = append(models, entities.ModelInfo{Name: m.Name, Size: m.Size, ModifiedAt: m.ModifiedAt})
	}
	return models, nil
}
