// Package provider maps logical task slots to concrete LLM adapters and
// performs fallback dispatch when a slot's primary adapter fails.
package provider

import (
	"context"
	"fmt"
)

// Slot is a named logical role mapped to a provider/model pair.
type Slot string

const (
	// SlotMain is the primary text generation slot.
	SlotMain Slot = "main"
	// SlotResearch is the slot for research-oriented generation.
	SlotResearch Slot = "research"
	// SlotFallback is tried once after any other slot's adapter fails.
	SlotFallback Slot = "fallback"
	// SlotEmbedding is the slot for embedding generation.
	SlotEmbedding Slot = "embedding"
	// SlotVision is the slot for image understanding (unused by the flow).
	SlotVision Slot = "vision"
	// SlotChatAgent is the slot for interactive chat (unused by the flow).
	SlotChatAgent Slot = "chat_agent"
)

// TextGenerator generates text from a prompt. Adapters implement this,
// EmbeddingGenerator, or both.
type TextGenerator interface {
	// GenerateText produces a completion for the prompt with the given model.
	// The context carries the caller's deadline; a deadline expiry is an error.
	GenerateText(ctx context.Context, prompt, model string) (string, error)
}

// EmbeddingGenerator turns text into a fixed-dimension float vector.
// The dimension is provider-specific and uniform per model.
type EmbeddingGenerator interface {
	GenerateEmbedding(ctx context.Context, text, model string) ([]float32, error)
}

// Binding pairs an adapter with the model it is dispatched to.
type Binding struct {
	// Name identifies the adapter for logs and attempt records.
	Name string
	// Model is the provider-specific model identifier.
	Model string
	// Text is the text capability, nil if the adapter does not generate text.
	Text TextGenerator
	// Embedding is the embedding capability, nil if unsupported.
	Embedding EmbeddingGenerator
}

// Attempt records one dispatch attempt against a slot's adapter.
type Attempt struct {
	// Slot is the slot the caller asked for.
	Slot Slot
	// Provider is the adapter name that was tried.
	Provider string
	// Model is the model that was tried.
	Model string
	// Fallback is true when this attempt used the fallback binding.
	Fallback bool
	// Err is nil on success.
	Err error
}

// Error holds the attempts made before a dispatch was surfaced as failed.
type Error struct {
	// Slot is the slot whose dispatch failed.
	Slot Slot
	// Attempts lists every attempt, primary first.
	Attempts []Attempt
}

func (e *Error) Error() string {
	last := e.Attempts[len(e.Attempts)-1]
	return fmt.Sprintf("provider dispatch for slot %q failed after %d attempt(s): %v",
		e.Slot, len(e.Attempts), last.Err)
}

// Unwrap returns the error from the final attempt.
func (e *Error) Unwrap() error {
	return e.Attempts[len(e.Attempts)-1].Err
}
