package ports

import (
	"context"

	"github.com/KonoNeko/MeowBuling/internal/domain"
)

// InterpretInput holds everything the LLM needs to generate an interpretation.
type InterpretInput struct {
	TopicLabel string
	Question   string
	Spread     domain.SpreadDefinition
	Cards      []CardInput
}

// CardInput is a simplified card representation for the LLM prompt.
type CardInput struct {
	Name                string
	LocalizedName       string
	Position            int
	PositionName        string
	PositionDescription string
	Orientation         string
	Meaning             string
	Keywords            []string
}

// AnalysisSection is one titled paragraph of the detailed analysis.
type AnalysisSection struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Interpretation is the structured reading returned by the LLM.
type Interpretation struct {
	MainTheme           string            `json:"mainTheme"`
	Fable               string            `json:"fable"`
	DetailedAnalysis    []AnalysisSection `json:"detailedAnalysis"`
	Advice              string            `json:"advice"`
	ReflectionQuestions []string          `json:"reflectionQuestions"`
	Model               string            `json:"model,omitempty"`
}

// Interpreter generates a tarot interpretation via an LLM.
type Interpreter interface {
	Interpret(ctx context.Context, in InterpretInput) (Interpretation, error)
}
