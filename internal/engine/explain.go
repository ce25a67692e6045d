package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sadopc/askdb/internal/analyzer"
	"github.com/sadopc/askdb/internal/apperrors"
	"github.com/sadopc/askdb/internal/joins"
	"github.com/sadopc/askdb/internal/safety"
)

// Explanation describes how a request would be translated. Nothing is
// executed and the cache is not consulted.
type Explanation struct {
	Question   string             `json:"naturalQuery"`
	SQL        string             `json:"generatedSql"`
	Confidence float64            `json:"confidence"`
	Analysis   *analyzer.Analysis `json:"analysis"`
	Tables     []string           `json:"tables"`
	Plan       joins.Plan         `json:"joinPlan"`
	Warnings   []string           `json:"warnings,omitempty"`
	// Rejection is the safety gate's reason, empty when the statement
	// would be allowed to run.
	Rejection string   `json:"rejection,omitempty"`
	Steps     []string `json:"explanationSteps"`
}

// Explain analyzes text and synthesizes its statement without running it.
// A request that resolves no table still yields an explanation; the error
// says why its statement is the placeholder.
func (e *Engine) Explain(ctx context.Context, text string) (*Explanation, error) {
	a := e.analyzer.Analyze(ctx, text)
	plan := e.resolver.Resolve(a.Tables)
	gq, err := e.synth.Synthesize(a, a.Tables, plan)

	ex := &Explanation{
		Question:   text,
		SQL:        gq.SQL,
		Confidence: gq.Confidence,
		Analysis:   a,
		Tables:     gq.Tables,
		Plan:       plan,
		Warnings:   gq.Warnings,
	}
	if cerr := safety.Check(gq.SQL); cerr != nil {
		var unsafe *apperrors.UnsafeQueryError
		if errors.As(cerr, &unsafe) {
			ex.Rejection = unsafe.Reason
		}
	}

	tables := "none"
	if len(ex.Tables) > 0 {
		tables = strings.Join(ex.Tables, ", ")
	}
	ex.Steps = []string{
		fmt.Sprintf("1. Detected intent: %s", a.Intent),
		fmt.Sprintf("2. Identified tables: %s", tables),
		fmt.Sprintf("3. Generated SQL: %s", ex.SQL),
		fmt.Sprintf("4. Confidence level: %.1f%%", ex.Confidence*100),
	}
	return ex, err
}
