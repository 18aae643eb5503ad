package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xavierca1/leadflow/internal/infra/health"
)

type staticChecker health.Report

func (c staticChecker) Check(context.Context) health.Report { return health.Report(c) }

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name   string
		report health.Report
		want   int
	}{
		{
			name: "healthy",
			report: health.Report{Status: health.StatusHealthy, Database: "ok", Cache: "ok", Mongo: "ok",
				QueueWorkers: "ok", Timestamp: "2025-03-01T12:00:00Z"},
			want: http.StatusOK,
		},
		{
			name: "degraded",
			report: health.Report{Status: health.StatusDegraded, Database: "ok", Cache: "ok", Mongo: "ok",
				QueueWorkers: "no workers", Timestamp: "2025-03-01T12:00:00Z"},
			want: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewHealthHandler(staticChecker(tt.report)).Handle(rec, httptest.NewRequest(http.MethodGet, "/api/health/", nil))

			assert.Equal(t, tt.want, rec.Code)
			assert.JSONEq(t, `{
				"status": "`+tt.report.Status+`",
				"database": "ok",
				"cache": "ok",
				"mongo": "ok",
				"celery": "`+tt.report.QueueWorkers+`",
				"timestamp": "2025-03-01T12:00:00Z"
			}`, rec.Body.String())
		})
	}
}
