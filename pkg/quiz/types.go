package quiz

import (
	"time"

	"github.com/google/uuid"
)

// Question is one multiple-choice question. Options always has four
// entries; the correct answer is intentionally not stored, grading happens
// server-side on submission.
type Question struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// Quiz is a generated set of questions for one source document.
type Quiz struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
	CreatedAt time.Time  `json:"created_at"`
}

// GradeResult is the verdict on one submitted answer.
type GradeResult struct {
	IsCorrect   bool   `json:"is_correct"`
	Explanation string `json:"explanation,omitempty"`
}
