package service

import (
	"errors"
	"fmt"
)

// UpstreamError is returned when an external API call fails with a
// non-success status.
type UpstreamError struct {
	Service    string // "openai" or "google-cse"
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Service, e.StatusCode, e.Body)
}

// IsUpstreamError returns true if the error is an upstream API failure.
func IsUpstreamError(err error) bool {
	var upErr *UpstreamError
	return errors.As(err, &upErr)
}

// EmptyCompletionError is returned when the completion endpoint responds
// successfully but carries no usable content.
type EmptyCompletionError struct {
	Model string
}

func (e *EmptyCompletionError) Error() string {
	return fmt.Sprintf("empty completion from model %s", e.Model)
}

// IsEmptyCompletion returns true if the error is an empty completion.
func IsEmptyCompletion(err error) bool {
	var emptyErr *EmptyCompletionError
	return errors.As(err, &emptyErr)
}

// ConfigurationError is returned when an operation needs credentials or
// settings that were not provided.
type ConfigurationError struct {
	Missing string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing configuration: %s", e.Missing)
}

// IsConfigurationError returns true if the error is a configuration error.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// NotFoundError is returned when a requested record does not exist.
type NotFoundError struct {
	Kind string // "job" or "citation"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// IsNotFound returns true if the error is a missing-record error.
func IsNotFound(err error) bool {
	var nfErr *NotFoundError
	return errors.As(err, &nfErr)
}

// MissingQueryError is returned when a listing lookup has no usable
// search phrase to work with.
type MissingQueryError struct {
	CitationID string
}

func (e *MissingQueryError) Error() string {
	return fmt.Sprintf("citation %s has no search query", e.CitationID)
}

// IsMissingQuery returns true if the error is a missing-query error.
func IsMissingQuery(err error) bool {
	var mqErr *MissingQueryError
	return errors.As(err, &mqErr)
}

// NoListingFoundError is returned when a search completed but produced
// no acceptable listing URL.
type NoListingFoundError struct {
	Query string
}

func (e *NoListingFoundError) Error() string {
	return fmt.Sprintf("no listing found for query %q", e.Query)
}

// IsNoListingFound returns true if the error is a no-results error.
func IsNoListingFound(err error) bool {
	var nlErr *NoListingFoundError
	return errors.As(err, &nlErr)
}
