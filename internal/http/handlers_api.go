package http

import (
	"io"
	"log/slog"
	"net/http"

	"kakeibo/internal/aggregate"
	"kakeibo/internal/core"
	"kakeibo/internal/export"
	"kakeibo/internal/importer"
)

// maxReceiptBytes caps uploaded receipt images.
const maxReceiptBytes = 10 << 20

type overviewResponse struct {
	Month     string                     `json:"month"`
	Net       int64                      `json:"net"`
	Expense   core.Money                 `json:"expense"`
	Income    core.Money                 `json:"income"`
	Breakdown []aggregate.CategoryAmount `json:"breakdown"`
	Trend     []aggregate.TrendPoint     `json:"trend"`
	Daily     []aggregate.DayProgress    `json:"daily"`
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	month := monthParam(r.URL.Query(), s.now())
	snapshot := s.store.Snapshot()

	daily, err := aggregate.DailyProgress(snapshot, month, s.budget)
	if err != nil {
		BadRequestError("invalid month").Write(w)
		return
	}

	NewHTMXResponse().BodyJSON(overviewResponse{
		Month:     month,
		Net:       aggregate.NetForMonth(snapshot, month),
		Expense:   aggregate.ExpenseTotal(snapshot, month),
		Income:    aggregate.IncomeTotal(snapshot, month),
		Breakdown: aggregate.CategoryBreakdown(snapshot, month),
		Trend:     aggregate.RecentTrend(snapshot, 6),
		Daily:     daily,
	}).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if s.reports == nil {
		ErrorResponse(http.StatusServiceUnavailable, "summaries are not configured").Write(w)
		return
	}

	month := monthParam(r.URL.Query(), s.now())
	report, err := s.reports.MonthReport(r.Context(), month, s.store.Revision(), s.store.Snapshot())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to build month report", "month", month, "error", err)
		InternalServerError("failed to build the month report").Write(w)
		return
	}

	NewHTMXResponse().BodyJSON(report).Write(w)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxReceiptBytes)
	if err := r.ParseMultipartForm(maxReceiptBytes); err != nil {
		BadRequestError("expected a multipart upload").Write(w)
		return
	}

	file, header, err := r.FormFile("receipt")
	if err != nil {
		BadRequestError("missing receipt file").Write(w)
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		InternalServerError("failed to read the upload").Write(w)
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	out := s.svc.Import(r.Context(), image, mimeType)
	if out.State == importer.StateDone {
		s.audit.LogImportMerged(r.Context(), out.Inserted, out.DuplicatesDropped, out.Month)
	}
	writeImportOutcome(w, out)
}

func (s *Server) handleImportConfirm(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("malformed request body").Write(w)
		return
	}

	out, err := s.svc.ConfirmImport(r.Context(), parser.GetBool("force"))
	if err != nil {
		ErrorResponse(http.StatusConflict, err.Error()).Write(w)
		return
	}
	writeImportOutcome(w, out)
}

func writeImportOutcome(w http.ResponseWriter, out importer.Outcome) {
	resp := NewHTMXResponse()
	switch out.State {
	case importer.StateDone:
		resp.TriggerImportDone(out.Inserted, out.DuplicatesDropped)
		if out.Inserted > 0 && out.Month != "" {
			resp.TriggerTransactionCreated(out.Month)
		}
	case importer.StateAwaitingConfirmation:
		resp.Status(http.StatusAccepted).
			TriggerImportAwaitingConfirmation(len(out.Duplicates))
	case importer.StateFailed:
		// The collaborator's error is surfaced to the user as-is.
		message := out.Err
		if message == "" {
			message = out.Message
		}
		resp.Status(http.StatusUnprocessableEntity).
			TriggerErrorNotification(message)
	}
	resp.BodyJSON(out).Write(w)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/tab-separated-values; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename+`"`)
	_, _ = io.WriteString(w, export.TSV(s.store.Snapshot()))
}
