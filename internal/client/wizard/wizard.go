// Package wizard drives multi-section forms: the user fills sections in any
// order, reviews the draft and submits it once it validates.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/harvestbridge/harvest-bridge/internal/schema"
)

// ErrStep is returned by Jump for a step outside the wizard.
var ErrStep = errors.New("no such step")

// ReviewSection names the final step after every section.
const ReviewSection = "review"

// Section is one page of a wizard. Fields are the JSON paths it edits;
// a validation issue at a path inside one of them belongs to the section.
type Section struct {
	Name   string
	Fields []string
}

func (s Section) owns(path string) bool {
	for _, f := range s.Fields {
		if path == f || strings.HasPrefix(path, f+".") || strings.HasPrefix(path, f+"[") {
			return true
		}
	}
	return false
}

// Wizard holds a draft of T and the current step. Steps 0..len(sections)-1
// are the sections; step len(sections) is the review. Moving between steps
// never validates.
type Wizard[T any] struct {
	mu       sync.Mutex
	sections []Section
	step     int
	draft    T
	issues   []schema.Issue
}

// New starts a wizard on its first section with the given draft.
func New[T any](draft T, sections ...Section) *Wizard[T] {
	return &Wizard[T]{sections: slices.Clone(sections), draft: draft}
}

// Sections lists the section names in order.
func (w *Wizard[T]) Sections() []string {
	names := make([]string, 0, len(w.sections))
	for _, s := range w.sections {
		names = append(names, s.Name)
	}
	return names
}

// Step is the current step index.
func (w *Wizard[T]) Step() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Current names the current section, or ReviewSection.
func (w *Wizard[T]) Current() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.name(w.step)
}

func (w *Wizard[T]) name(step int) string {
	if step >= len(w.sections) {
		return ReviewSection
	}
	return w.sections[step].Name
}

// Next moves one step forward, stopping at the review.
func (w *Wizard[T]) Next() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step < len(w.sections) {
		w.step++
	}
}

// Back moves one step back, stopping at the first section.
func (w *Wizard[T]) Back() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step > 0 {
		w.step--
	}
}

// Jump moves to step i; len(Sections()) is the review.
func (w *Wizard[T]) Jump(i int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if i < 0 || i > len(w.sections) {
		return fmt.Errorf("%w: %d", ErrStep, i)
	}
	w.step = i
	return nil
}

// Apply merges a partial update into the draft.
func (w *Wizard[T]) Apply(update func(*T)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	update(&w.draft)
}

// Draft returns a copy of the draft. Slices inside T are shared.
func (w *Wizard[T]) Draft() T {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draft
}

// Issues returns the problems found by the last Submit for one section, or
// for every section when name is empty.
func (w *Wizard[T]) Issues(name string) []schema.Issue {
	w.mu.Lock()
	defer w.mu.Unlock()
	if name == "" {
		return slices.Clone(w.issues)
	}
	var out []schema.Issue
	for _, s := range w.sections {
		if s.Name != name {
			continue
		}
		for _, is := range w.issues {
			if s.owns(is.Path) {
				out = append(out, is)
			}
		}
	}
	return out
}

// Submit validates the whole draft and calls send only when it is valid.
// On a validation failure the wizard moves to the first section with an
// issue and the *schema.ValidationError is returned.
func (w *Wizard[T]) Submit(ctx context.Context, send func(context.Context, *T) error) error {
	w.mu.Lock()
	draft := w.draft
	err := schema.Parse(&draft)
	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		w.issues = verr.Issues
		w.step = w.firstInvalid()
		w.mu.Unlock()
		return err
	}
	w.issues = nil
	// Keep the normalized form so the review shows what was sent.
	w.draft = draft
	w.mu.Unlock()

	return send(ctx, &draft)
}

// firstInvalid returns the earliest section owning an issue, or the review
// when no section claims one. Callers hold mu.
func (w *Wizard[T]) firstInvalid() int {
	for i, s := range w.sections {
		for _, is := range w.issues {
			if s.owns(is.Path) {
				return i
			}
		}
	}
	return len(w.sections)
}
