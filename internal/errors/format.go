package errors

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatForUser returns a user-friendly error message. The debug flag is
// ignored; the error code line is always appended.
func FormatForUser(err error, debug bool) string {
	if err == nil {
		return ""
	}

	we, ok := err.(*WeaverError)
	if !ok {
		return err.Error()
	}

	var sb strings.Builder
	sb.WriteString("Error: ")
	sb.WriteString(we.Message)
	sb.WriteString("\n")

	if we.Suggestion != "" {
		sb.WriteString("\nSuggestion: ")
		sb.WriteString(we.Suggestion)
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("\n[%s]", we.Code))
	return sb.String()
}

// FormatForCLI formats an error for concise terminal display.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	we, ok := err.(*WeaverError)
	if !ok {
		we = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Error: %s\n", we.Message))
	if we.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  Hint: %s\n", we.Suggestion))
	}
	sb.WriteString(fmt.Sprintf("  Code: %s\n", we.Code))
	return sb.String()
}

// jsonError is the JSON representation of an error.
type jsonError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Category   string            `json:"category"`
	Severity   string            `json:"severity"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	Cause      string            `json:"cause,omitempty"`
	Retryable  bool              `json:"retryable"`
}

// FormatJSON returns a JSON representation of the error for machine
// consumption or structured logging.
func FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return json.Marshal(nil)
	}

	we, ok := err.(*WeaverError)
	if !ok {
		we = Wrap(ErrCodeInternal, err)
	}

	je := jsonError{
		Code:       we.Code,
		Message:    we.Message,
		Category:   string(we.Category),
		Severity:   string(we.Severity),
		Details:    we.Details,
		Suggestion: we.Suggestion,
		Retryable:  we.Retryable,
	}
	if we.Cause != nil {
		je.Cause = we.Cause.Error()
	}
	return json.Marshal(je)
}

// FormatForLog returns key-value pairs suitable for slog attributes.
func FormatForLog(err error) map[string]any {
	if err == nil {
		return nil
	}

	we, ok := err.(*WeaverError)
	if !ok {
		return map[string]any{"error": err.Error()}
	}

	result := map[string]any{
		"error_code": we.Code,
		"message":    we.Message,
		"category":   string(we.Category),
		"severity":   string(we.Severity),
		"retryable":  we.Retryable,
	}
	if we.Cause != nil {
		result["cause"] = we.Cause.Error()
	}
	if we.Suggestion != "" {
		result["suggestion"] = we.Suggestion
	}
	for k, v := range we.Details {
		result["detail_"+k] = v
	}
	return result
}
