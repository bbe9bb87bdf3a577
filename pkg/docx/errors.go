package docx

import "fmt"

// MalformedDocumentError is the fatal tier of the parser's error model: the
// archive cannot be opened, the main content part is absent, or the document
// body is missing. Heuristic misses during extraction (unparseable rows,
// short tables, absent labels) are never errors; they are silently skipped.
type MalformedDocumentError struct {
	Reason string
	Err    error
}

func (e *MalformedDocumentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed document: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed document: %s", e.Reason)
}

func (e *MalformedDocumentError) Unwrap() error { return e.Err }

func malformed(reason string, err error) *MalformedDocumentError {
	return &MalformedDocumentError{Reason: reason, Err: err}
}
