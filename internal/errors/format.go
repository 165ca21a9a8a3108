package errors

import (
	"fmt"
	"strings"
)

// FormatForCLI formats an error for CLI output.
// Uses a concise format suitable for terminal display.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	ie, ok := err.(*IndexError)
	if !ok {
		// Wrap standard error
		ie = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder

	// Error message with code
	sb.WriteString(fmt.Sprintf("Error: %s\n", ie.Message))

	// Suggestion if available
	if ie.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("Suggestion: %s\n", ie.Suggestion))
	}

	sb.WriteString(fmt.Sprintf("[%s]", ie.Code))

	return sb.String()
}
