package tools

import "fmt"

// Category classifies a failed tool dispatch. Every failure the engine
// produces is one of these three; nothing escapes the dispatch boundary as a
// Go error.
type Category string

const (
	// CategoryValidation covers unknown tools, malformed calls, and missing
	// required arguments, all caught before the implementation runs.
	CategoryValidation Category = "validation"
	// CategorySecurity covers sandbox escapes and confirmation denials; the
	// implementation is never invoked.
	CategorySecurity Category = "security"
	// CategoryExecution covers implementation failures and timeouts.
	CategoryExecution Category = "execution"
)

// Result is the tagged outcome of one dispatch: either a success payload or
// a categorized error message, never both.
type Result struct {
	Payload  string
	Message  string
	Category Category
}

// Success wraps a tool's output.
func Success(payload string) Result {
	return Result{Payload: payload}
}

// Failure builds a categorized error result.
func Failure(cat Category, format string, a ...interface{}) Result {
	return Result{Category: cat, Message: fmt.Sprintf(format, a...)}
}

// IsError reports whether the result is a failure.
func (r Result) IsError() bool {
	return r.Category != ""
}

// Text renders the result as the tool-result string fed back to the model.
func (r Result) Text() string {
	if r.IsError() {
		return fmt.Sprintf("Error (%s): %s", r.Category, r.Message)
	}
	return r.Payload
}
