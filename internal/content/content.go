// Package content fetches the display documents of tasks and mails.
package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"ndi_desktop/internal/domain"
)

var (
	ErrNotFound    = errors.New("content document not found")
	ErrOutsideRoot = errors.New("content key escapes root")
)

type Store interface {
	Fetch(ctx context.Context, key string) (domain.Content, error)
}

// document accepts both task documents ({pending, success, failure}) and
// flat mail documents ({title, description}).
type document struct {
	Pending     *domain.Text `json:"pending" yaml:"pending"`
	Success     *domain.Text `json:"success" yaml:"success"`
	Failure     *domain.Text `json:"failure" yaml:"failure"`
	Title       string       `json:"title" yaml:"title"`
	Description string       `json:"description" yaml:"description"`
}

// Decode parses a content document. Bodies starting with "{" are JSON; any
// other body is read as YAML.
func Decode(data []byte) (domain.Content, error) {
	var doc document
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		if err := json.Unmarshal(data, &doc); err != nil {
			return domain.Content{}, fmt.Errorf("decode content document: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &doc); err != nil {
		return domain.Content{}, fmt.Errorf("decode content document: %w", err)
	}

	var c domain.Content
	switch {
	case doc.Pending != nil:
		c.Pending = *doc.Pending
	case doc.Title != "" || doc.Description != "":
		c.Pending = domain.Text{Title: doc.Title, Description: doc.Description}
	}
	if doc.Success != nil {
		c.Success = *doc.Success
	}
	if doc.Failure != nil {
		c.Failure = *doc.Failure
	}
	if c.Pending.Empty() && c.Success.Empty() && c.Failure.Empty() {
		return domain.Content{}, errors.New("decode content document: no text variants")
	}
	return c, nil
}
