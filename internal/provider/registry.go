package provider

import (
	"context"
	"fmt"
	"log"
)

// AttemptObserver receives every dispatch attempt and its outcome. It must
// not block; the flow uses it to record failed attempts in the revision log.
type AttemptObserver func(Attempt)

// Registry maps slots to adapter bindings, resolved at configuration-load
// time. Dispatch tries the slot's binding and, on any error, retries exactly
// once with the fallback slot's binding before surfacing an error.
type Registry struct {
	bindings map[Slot]Binding
	observer AttemptObserver
}

// NewRegistry creates a registry from slot bindings.
func NewRegistry(bindings map[Slot]Binding) *Registry {
	r := &Registry{bindings: make(map[Slot]Binding, len(bindings))}
	for slot, b := range bindings {
		r.bindings[slot] = b
	}
	return r
}

// SetObserver installs an attempt observer. A nil observer disables observation.
func (r *Registry) SetObserver(obs AttemptObserver) {
	r.observer = obs
}

// Binding returns the binding for a slot and whether it exists.
func (r *Registry) Binding(slot Slot) (Binding, bool) {
	b, ok := r.bindings[slot]
	return b, ok
}

func (r *Registry) observe(a Attempt, obs AttemptObserver) {
	if r.observer != nil {
		r.observer(a)
	}
	if obs != nil {
		obs(a)
	}
	if a.Err != nil {
		log.Printf("[provider] attempt slot=%s provider=%s model=%s fallback=%t failed: %v",
			a.Slot, a.Provider, a.Model, a.Fallback, a.Err)
	}
}

// Dispatch generates text via the slot's adapter, falling back once to the
// fallback slot's adapter on any error.
func (r *Registry) Dispatch(ctx context.Context, slot Slot, prompt string) (string, error) {
	return r.DispatchObserved(ctx, slot, prompt, nil)
}

// DispatchObserved is Dispatch with a per-call observer in addition to the
// registry-level one. Callers use it to attribute attempts to a task.
func (r *Registry) DispatchObserved(ctx context.Context, slot Slot, prompt string, obs AttemptObserver) (string, error) {
	primary, ok := r.bindings[slot]
	if !ok || primary.Text == nil {
		return "", fmt.Errorf("no text adapter bound for slot %q", slot)
	}

	var attempts []Attempt

	out, err := primary.Text.GenerateText(ctx, prompt, primary.Model)
	attempts = append(attempts, Attempt{Slot: slot, Provider: primary.Name, Model: primary.Model, Err: err})
	r.observe(attempts[len(attempts)-1], obs)
	if err == nil {
		return out, nil
	}

	if fb, ok := r.fallbackFor(slot); ok && fb.Text != nil {
		out, err = fb.Text.GenerateText(ctx, prompt, fb.Model)
		attempts = append(attempts, Attempt{Slot: slot, Provider: fb.Name, Model: fb.Model, Fallback: true, Err: err})
		r.observe(attempts[len(attempts)-1], obs)
		if err == nil {
			return out, nil
		}
	}

	return "", &Error{Slot: slot, Attempts: attempts}
}

// DispatchEmbedding generates an embedding via the slot's adapter, with the
// same single fallback attempt when the fallback adapter supports embeddings.
func (r *Registry) DispatchEmbedding(ctx context.Context, slot Slot, text string) ([]float32, error) {
	primary, ok := r.bindings[slot]
	if !ok || primary.Embedding == nil {
		return nil, fmt.Errorf("no embedding adapter bound for slot %q", slot)
	}

	var attempts []Attempt

	vec, err := primary.Embedding.GenerateEmbedding(ctx, text, primary.Model)
	attempts = append(attempts, Attempt{Slot: slot, Provider: primary.Name, Model: primary.Model, Err: err})
	r.observe(attempts[len(attempts)-1], nil)
	if err == nil {
		return vec, nil
	}

	if fb, ok := r.fallbackFor(slot); ok && fb.Embedding != nil {
		vec, err = fb.Embedding.GenerateEmbedding(ctx, text, fb.Model)
		attempts = append(attempts, Attempt{Slot: slot, Provider: fb.Name, Model: fb.Model, Fallback: true, Err: err})
		r.observe(attempts[len(attempts)-1], nil)
		if err == nil {
			return vec, nil
		}
	}

	return nil, &Error{Slot: slot, Attempts: attempts}
}

// fallbackFor returns the fallback binding unless the caller is already
// dispatching to the fallback slot itself.
func (r *Registry) fallbackFor(slot Slot) (Binding, bool) {
	if slot == SlotFallback {
		return Binding{}, false
	}
	fb, ok := r.bindings[SlotFallback]
	return fb, ok
}
