// Package quiz turns uploaded study material into multiple-choice quizzes.
// It extracts plain text from PDF, DOCX and plain-text uploads, generates
// questions through an LLM, grades submitted answers, and keeps generated
// quizzes in a short-lived cache so a quiz session survives page reloads.
package quiz
