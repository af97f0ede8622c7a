package quiz

import "errors"

var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrEmptyDocument     = errors.New("document contains no extractable text")
	ErrExtraction        = errors.New("document text extraction failed")
	ErrGeneration        = errors.New("question generation failed")
	ErrGrading           = errors.New("answer grading failed")
	ErrQuizNotFound      = errors.New("quiz not found")
	ErrInvalidInput      = errors.New("invalid quiz input")
)
