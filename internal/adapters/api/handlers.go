package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/mikey/mail-clarity/internal/core"
)

// Service is the part of the classification service exposed over HTTP
type Service interface {
	Classify(ctx context.Context, batchType string, messages []core.Message) ([]core.ItemResult, error)
	FetchEmails(ctx context.Context, filter string) ([]core.FetchedEmail, error)
	ListHistory(ctx context.Context) ([]core.HistoryRecord, error)
	DeleteHistory(ctx context.Context, ids []string) (int, error)
	ClearHistory(ctx context.Context) error
	ReportingProjection(ctx context.Context) ([]core.ProjectionRow, error)
}

// PredictHandler classifies a batch of messages
func PredictHandler(svc Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req PredictRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		}

		results, err := svc.Classify(c.Request().Context(), req.Type, req.Emails)
		if err != nil {
			return errorJSON(c, err)
		}

		items := make([]PredictItem, 0, len(results))
		for _, r := range results {
			items = append(items, toPredictItem(r))
		}
		return c.JSON(http.StatusOK, items)
	}
}

// FetchEmailsHandler retrieves recent mail for a lookback filter
func FetchEmailsHandler(svc Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req FetchEmailsRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		}

		emails, err := svc.FetchEmails(c.Request().Context(), req.Filter)
		if err != nil {
			return errorJSON(c, err)
		}
		if emails == nil {
			emails = []core.FetchedEmail{}
		}
		return c.JSON(http.StatusOK, FetchEmailsResponse{Emails: emails})
	}
}

// HistoryHandler lists all records. An unreadable store yields an empty list and a warning.
func HistoryHandler(svc Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		records, err := svc.ListHistory(c.Request().Context())
		resp := HistoryResponse{History: records}
		if err != nil {
			if !core.IsCorruption(err) {
				return errorJSON(c, err)
			}
			resp.Warning = err.Error()
		}
		if resp.History == nil {
			resp.History = []core.HistoryRecord{}
		}
		return c.JSON(http.StatusOK, resp)
	}
}

// DeleteHistoryHandler removes records by id
func DeleteHistoryHandler(svc Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req DeleteHistoryRequest
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		}

		remaining, err := svc.DeleteHistory(c.Request().Context(), req.IDs)
		if err != nil {
			return errorJSON(c, err)
		}
		return c.JSON(http.StatusOK, DeleteHistoryResponse{RemainingRecords: remaining})
	}
}

// ClearHistoryHandler removes every record
func ClearHistoryHandler(svc Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := svc.ClearHistory(c.Request().Context()); err != nil {
			return errorJSON(c, err)
		}
		return c.JSON(http.StatusOK, MessageResponse{Message: "History cleared successfully"})
	}
}

// GraphHandler returns the reporting projection
func GraphHandler(svc Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		rows, err := svc.ReportingProjection(c.Request().Context())
		resp := GraphResponse{Graphs: rows}
		if err != nil {
			if !core.IsCorruption(err) {
				return errorJSON(c, err)
			}
			resp.Warning = err.Error()
		}
		if resp.Graphs == nil {
			resp.Graphs = []core.ProjectionRow{}
		}
		return c.JSON(http.StatusOK, resp)
	}
}

// HealthHandler reports liveness
func HealthHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
	}
}

func errorJSON(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	var validation *core.ValidationError
	if errors.As(err, &validation) {
		status = http.StatusBadRequest
	}

	if status >= http.StatusInternalServerError {
		if logger, ok := c.Get(loggerKey).(*zap.Logger); ok {
			logger.Error("Request failed",
				zap.String("uri", c.Request().RequestURI),
				zap.Error(err))
		}
	}
	return c.JSON(status, ErrorResponse{Error: err.Error()})
}
