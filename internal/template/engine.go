// Package template renders notification subjects and bodies with the Liquid
// template language, keyed by the campaign's survey type.
package template

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/osteele/liquid"
	"github.com/luminahr/pulse-engage/internal/dispatch"
)

// SurveyTemplate is one renderable notification, keyed by survey type.
type SurveyTemplate struct {
	Key     string
	Subject string
	Body    string
}

type parsed struct {
	subject *liquid.Template
	body    *liquid.Template
}

// Engine renders survey notifications. Templates are parsed once at
// registration and cached; Render only binds per-recipient variables.
type Engine struct {
	engine *liquid.Engine

	mu        sync.RWMutex
	templates map[string]parsed
}

// NewEngine creates an engine with the built-in survey templates and custom
// filters registered.
func NewEngine() (*Engine, error) {
	e := &Engine{
		engine:    liquid.NewEngine(),
		templates: make(map[string]parsed),
	}
	e.registerFilters()

	for _, t := range builtinTemplates {
		if err := e.Register(t); err != nil {
			return nil, fmt.Errorf("builtin template %q: %w", t.Key, err)
		}
	}
	return e, nil
}

func (e *Engine) registerFilters() {
	// Fallback for missing vars: {{ first_name | default: "there" }}
	e.engine.RegisterFilter("default", func(value interface{}, defaultVal string) interface{} {
		if value == nil {
			return defaultVal
		}
		s := fmt.Sprintf("%v", value)
		if s == "" || s == "<nil>" {
			return defaultVal
		}
		return value
	})

	// Capitalize first letter: {{ company | capitalize }}
	e.engine.RegisterFilter("capitalize", func(s string) string {
		if len(s) == 0 {
			return s
		}
		return strings.ToUpper(string(s[0])) + s[1:]
	})
}

// Register parses and stores a survey template, replacing any existing one
// with the same key. Parse errors are returned up front so a broken template
// is never discovered mid-dispatch.
func (e *Engine) Register(t SurveyTemplate) error {
	subj, err := e.engine.ParseTemplate([]byte(t.Subject))
	if err != nil {
		return fmt.Errorf("parse subject: %w", err)
	}
	body, err := e.engine.ParseTemplate([]byte(t.Body))
	if err != nil {
		return fmt.Errorf("parse body: %w", err)
	}

	e.mu.Lock()
	e.templates[t.Key] = parsed{subject: subj, body: body}
	e.mu.Unlock()
	return nil
}

// Keys returns the registered survey-type identifiers.
func (e *Engine) Keys() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	keys := make([]string, 0, len(e.templates))
	for k := range e.templates {
		keys = append(keys, k)
	}
	return keys
}

// Render produces the subject and body for one recipient. An unknown survey
// type or a render failure is returned as an error; the dispatcher treats
// both as systemic.
func (e *Engine) Render(_ context.Context, key string, vars map[string]interface{}) (dispatch.Message, error) {
	e.mu.RLock()
	t, ok := e.templates[key]
	e.mu.RUnlock()
	if !ok {
		return dispatch.Message{}, fmt.Errorf("no template registered for survey type %q", key)
	}

	subject, err := t.subject.Render(vars)
	if err != nil {
		return dispatch.Message{}, fmt.Errorf("render subject: %w", err)
	}
	body, err := t.body.Render(vars)
	if err != nil {
		return dispatch.Message{}, fmt.Errorf("render body: %w", err)
	}

	return dispatch.Message{
		Subject: strings.TrimSpace(string(subject)),
		Body:    string(body),
	}, nil
}
