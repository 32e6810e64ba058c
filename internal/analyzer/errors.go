package analyzer

import "fmt"

// Analysis error codes (E200-E209)
const (
	ErrCodeRead      = "E200" // file could not be read
	ErrCodeMalformed = "E201" // not well-formed XML or wrong root element
	ErrCodeSchema    = "E202" // decoded fields rejected by the schema
	ErrCodeDate      = "E203" // creationDate does not match the layout
)

// AnalysisError describes why a file could not become an entry.
type AnalysisError struct {
	Path    string `json:"path"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e *AnalysisError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s: %s: %s", e.Code, e.Path, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Path, e.Message)
}
