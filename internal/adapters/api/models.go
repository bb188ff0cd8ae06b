package api

import (
	"github.com/mikey/mail-clarity/internal/core"
)

// PredictRequest is the body of POST /predict
type PredictRequest struct {
	Type   string         `json:"type"`
	Emails []core.Message `json:"emails"`
}

// PredictItem is one element of the POST /predict response. The output keys are the
// ones the web front end reads.
type PredictItem struct {
	ID           string            `json:"id,omitempty"`
	Sender       string            `json:"sender"`
	Subject      string            `json:"subject"`
	NaiveOutput  core.Label        `json:"naive_output,omitempty"`
	GeminiOutput *core.JudgeResult `json:"gemini_output,omitempty"`
	Error        string            `json:"error,omitempty"`
}

// FetchEmailsRequest is the body of POST /fetch-emails
type FetchEmailsRequest struct {
	Filter string `json:"filter"`
}

// FetchEmailsResponse lists the retrieved messages
type FetchEmailsResponse struct {
	Emails []core.FetchedEmail `json:"emails"`
}

// HistoryResponse lists the stored records; Warning is set when the store was unreadable
type HistoryResponse struct {
	History []core.HistoryRecord `json:"history"`
	Warning string               `json:"warning,omitempty"`
}

// DeleteHistoryRequest is the body of POST /delete-history
type DeleteHistoryRequest struct {
	IDs []string `json:"ids"`
}

// DeleteHistoryResponse reports the number of records left
type DeleteHistoryResponse struct {
	RemainingRecords int `json:"remaining_records"`
}

// MessageResponse carries a plain confirmation
type MessageResponse struct {
	Message string `json:"message"`
}

// GraphResponse is the reporting projection
type GraphResponse struct {
	Graphs  []core.ProjectionRow `json:"graphs"`
	Warning string               `json:"warning,omitempty"`
}

// HealthResponse is returned by GET /healthz
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is returned for failed requests
type ErrorResponse struct {
	Error string `json:"error"`
}

func toPredictItem(item core.ItemResult) PredictItem {
	out := PredictItem{
		Sender:  item.Sender,
		Subject: item.Subject,
		Error:   item.Error,
	}
	if item.Record != nil {
		out.ID = item.Record.ID
		out.NaiveOutput = item.Record.Result.Statistical
		judged := item.Record.Result.Generative
		out.GeminiOutput = &judged
	}
	return out
}
