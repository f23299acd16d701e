// Package store provides in-memory storage for registered expressions.
package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Expression represents a stored expression registration: a source string
// plus the constants it is evaluated against. The parse is cached by the
// engine; the registration only carries what the engine needs to bind.
type Expression struct {
	ID         string         `json:"id"`
	Source     string         `json:"source"`
	Constants  map[string]any `json:"constants,omitempty"`
	CreateTime time.Time      `json:"createTime"`
	UpdateTime time.Time      `json:"updateTime"`
	EvalCount  int64          `json:"evalCount"`
}

// clone returns a snapshot safe to hand out after the lock is released.
func (e *Expression) clone() *Expression {
	out := *e
	if e.Constants != nil {
		out.Constants = make(map[string]any, len(e.Constants))
		for k, v := range e.Constants {
			out.Constants[k] = v
		}
	}
	return &out
}

// Store is a thread-safe in-memory registry of expressions.
type Store struct {
	mu          sync.RWMutex
	expressions map[string]*Expression
}

// New creates a new empty store.
func New() *Store {
	return &Store{
		expressions: make(map[string]*Expression),
	}
}

// Create registers an expression and returns its record.
func (s *Store) Create(source string, constants map[string]any) *Expression {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	expr := &Expression{
		ID:         uuid.NewString(),
		Source:     source,
		Constants:  constants,
		CreateTime: now,
		UpdateTime: now,
	}
	s.expressions[expr.ID] = expr
	return expr.clone()
}

// Get retrieves an expression by ID.
func (s *Store) Get(id string) (*Expression, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expr, ok := s.expressions[id]
	if !ok {
		return nil, fmt.Errorf("expression '%s' not found", id)
	}
	return expr.clone(), nil
}

// List returns all registered expressions.
func (s *Store) List() []*Expression {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Expression, 0, len(s.expressions))
	for _, expr := range s.expressions {
		result = append(result, expr.clone())
	}
	return result
}

// Update replaces an expression's source and constants. Empty source keeps
// the existing one; nil constants keep the existing ones.
func (s *Store) Update(id, source string, constants map[string]any) (*Expression, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expr, ok := s.expressions[id]
	if !ok {
		return nil, fmt.Errorf("expression '%s' not found", id)
	}

	if source != "" {
		expr.Source = source
	}
	if constants != nil {
		expr.Constants = constants
	}
	expr.UpdateTime = time.Now()
	return expr.clone(), nil
}

// Delete removes an expression.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.expressions[id]; !ok {
		return fmt.Errorf("expression '%s' not found", id)
	}
	delete(s.expressions, id)
	return nil
}

// RecordEval bumps the evaluation counter for an expression.
func (s *Store) RecordEval(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if expr, ok := s.expressions[id]; ok {
		expr.EvalCount++
	}
}
