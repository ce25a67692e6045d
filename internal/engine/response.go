package engine

import (
	"github.com/sadopc/askdb/internal/apperrors"
	"github.com/sadopc/askdb/internal/result"
)

// ResultType distinguishes row sets from modification counts.
type ResultType string

const (
	ResultData         ResultType = "data"
	ResultModification ResultType = "modification"
)

// Response is the serializable form of an answer handed to front ends.
type Response struct {
	Success      bool            `json:"success"`
	RequestID    string          `json:"requestId,omitempty"`
	Question     string          `json:"naturalQuery,omitempty"`
	SQL          string          `json:"sql,omitempty"`
	Tables       []string        `json:"tables,omitempty"`
	Confidence   float64         `json:"confidence,omitempty"`
	ResultType   ResultType      `json:"resultType,omitempty"`
	RowCount     *int            `json:"rowCount,omitempty"`
	AffectedRows *int64          `json:"affectedRows,omitempty"`
	Columns      []string        `json:"columns,omitempty"`
	Rows         []result.Record `json:"rows,omitempty"`
	Summary      string          `json:"summary,omitempty"`
	Cached       bool            `json:"cached,omitempty"`
	Warnings     []string        `json:"warnings,omitempty"`
	Error        string          `json:"error,omitempty"`
	AttemptedSQL string          `json:"attemptedSql,omitempty"`
}

// NewResponse converts the result of Ask into a Response. A non-nil err
// always produces a failed response.
func NewResponse(ans *Answer, err error) Response {
	var r Response
	if ans != nil {
		r.RequestID = ans.RequestID
		r.Question = ans.Question
		r.Warnings = ans.Warnings
	}
	if err != nil {
		r.Error = err.Error()
		r.AttemptedSQL = apperrors.AttemptedSQL(err)
		return r
	}
	if ans == nil {
		r.Error = "no answer"
		return r
	}

	r.Success = true
	r.SQL = ans.SQL
	r.Tables = ans.Tables
	r.Confidence = ans.Confidence
	r.Cached = ans.Cached

	if ans.Modification {
		affected := ans.AffectedRows
		r.ResultType = ResultModification
		r.AffectedRows = &affected
		return r
	}

	res := ans.Result
	if res == nil {
		res = result.Format(nil)
	}
	count := res.RowCount
	r.ResultType = ResultData
	r.RowCount = &count
	r.Columns = res.Columns
	r.Rows = res.Records
	r.Summary = res.Summary
	return r
}
