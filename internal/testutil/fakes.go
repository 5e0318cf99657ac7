package testutil

import (
	"context"
	"sync"
	"time"

	"llamachat/internal/entities"
)

// Generator is a scripted model gateway.
type Generator struct {
	mu      sync.Mutex
	Reply   string
	Err     error
	Models  []entities.ModelInfo
	Prompts []string
	Used    []string
}

func (g *Generator) Generate(_ context.Context, model, prompt string) (*entities.Generation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Prompts = append(g.Prompts, prompt)
	g.Used = append(g.Used, model)
	if g.Err != nil {
		return nil, g.Err
	}
	return &entities.Generation{Reply: g.Reply, Elapsed: 250 * time.Millisecond}, nil
}

func (g *Generator) ListModels(context.Context) []entities.ModelInfo {
	if len(g.Models) == 0 {
		return []entities.ModelInfo{{Name: entities.NoModelsAvailable}}
	}
	return g.Models
}

// Calls returns how many generations were requested.
func (g *Generator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Prompts)
}

// Archiver records every transcript it is given.
type Archiver struct {
	mu          sync.Mutex
	Err         error
	Transcripts []entities.SessionTranscript
}

func (a *Archiver) Archive(_ context.Context, t entities.SessionTranscript) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Err != nil {
		return a.Err
	}
	a.Transcripts = append(a.Transcripts, t)
	return nil
}

func (a *Archiver) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.Transcripts)
}
