// internal/errors/errors.go - Typed extraction failures
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies a document-level extraction failure.
type Kind string

const (
	KindInvalidURL        Kind = "INVALID_URL"
	KindUnsupportedSource Kind = "UNSUPPORTED_SOURCE"
	KindFetchFailed       Kind = "FETCH_FAILED"
	KindInternal          Kind = "INTERNAL_ERROR"

	// KindParse marks a field-level failure. Extractors swallow these; they
	// exist so debug logging can name what was skipped.
	KindParse Kind = "PARSE_ERROR"
)

// Stage names a step of the extraction state machine.
type Stage string

const (
	StageValidating   Stage = "validating_url"
	StageDetecting    Stage = "detecting_source"
	StageFetching     Stage = "fetching_document"
	StageExtracting   Stage = "extracting"
	StageMerging      Stage = "merging"
	StageSynthesizing Stage = "synthesizing_shipping"
	StageDone         Stage = "done"
)

// Sentinels for errors.Is comparisons against a Kind.
var (
	ErrInvalidURL        = &ExtractionError{Kind: KindInvalidURL}
	ErrUnsupportedSource = &ExtractionError{Kind: KindUnsupportedSource}
	ErrFetchFailed       = &ExtractionError{Kind: KindFetchFailed}
	ErrInternal          = &ExtractionError{Kind: KindInternal}
)

// ExtractionError is the only error type an extraction call returns.
type ExtractionError struct {
	Kind    Kind   `json:"kind"`
	Stage   Stage  `json:"stage,omitempty"`
	URL     string `json:"url,omitempty"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

// Error implements the error interface
func (e *ExtractionError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = defaultMessages[e.Kind]
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Kind, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap returns the underlying cause
func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// Is matches any ExtractionError of the same Kind
func (e *ExtractionError) Is(target error) bool {
	t, ok := target.(*ExtractionError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

var defaultMessages = map[Kind]string{
	KindInvalidURL:        "Invalid URL format",
	KindUnsupportedSource: "URL must be from alibaba.com, aliexpress.com, or 1688.com",
	KindFetchFailed:       "Could not fetch the product page. The site may be blocking automated access.",
	KindInternal:          "Failed to import product. The page might be protected or unavailable.",
	KindParse:             "Field could not be parsed",
}

// New builds an ExtractionError for a Kind
func New(kind Kind, stage Stage, url, message string) *ExtractionError {
	return &ExtractionError{Kind: kind, Stage: stage, URL: url, Message: message}
}

// Wrap builds an ExtractionError carrying a cause
func Wrap(kind Kind, stage Stage, url string, cause error) *ExtractionError {
	return &ExtractionError{Kind: kind, Stage: stage, URL: url, Cause: cause}
}

// KindOf reports the Kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var ee *ExtractionError
	if stderrors.As(err, &ee) {
		return ee.Kind
	}
	return KindInternal
}

// UserMessage returns the short human-readable reason shown to callers.
// Technical causes are never included.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ee *ExtractionError
	if stderrors.As(err, &ee) {
		if ee.Message != "" {
			return ee.Message
		}
		return defaultMessages[ee.Kind]
	}
	return defaultMessages[KindInternal]
}

// FromPanic converts a recovered panic value into an InternalError.
func FromPanic(stage Stage, url string, recovered interface{}) *ExtractionError {
	var cause error
	switch v := recovered.(type) {
	case error:
		cause = v
	default:
		cause = fmt.Errorf("%v", v)
	}
	return Wrap(KindInternal, stage, url, cause)
}
