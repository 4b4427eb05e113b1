// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// Services take repository interfaces, never a concrete database type, so
// the same rules run against SQLite, Postgres, or the in-memory fakes in the
// tests. They return apperror values; the handler turns those into status
// codes.
package service

import (
	"strings"
	"unicode/utf8"

	"github.com/kyyril/portfolio/internal/apperror"
	"github.com/kyyril/portfolio/internal/model"
)

// cleanText trims raw and checks it is non-empty and at most
// model.MaxTextLength characters. label names the field in messages, e.g.
// "Message" gives "Message is required" and "Message too long".
func cleanText(field, label, raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", apperror.ValidationFailed(field, label+" is required")
	}
	if utf8.RuneCountInString(text) > model.MaxTextLength {
		return "", apperror.ValidationFailed(field, label+" too long")
	}
	return text, nil
}

// requireID rejects an empty identifier with "<label> is required".
func requireID(field, label, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperror.ValidationFailed(field, label+" is required")
	}
	return nil
}
