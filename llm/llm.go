package llm

import "fmt"

// Error codes consumed by the HTTP layer to pick a status code
const (
	CodeMissingAPIKey    = "MISSING_API_KEY"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeGenerationFailed = "GENERATION_FAILED"
)

// GenError is a tagged generation failure
type GenError struct {
	Code string
	Msg  string
}

func (e *GenError) Error() string {
	return fmt.Sprintf("minutes generation failed [%s]: %s", e.Code, e.Msg)
}

// Options tunes a single generation call
type Options struct {
	Language string
	Model    string
}
