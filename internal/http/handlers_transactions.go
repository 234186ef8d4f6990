package http

import (
	"errors"
	"log/slog"
	"net/http"

	"kakeibo/internal/aggregate"
	"kakeibo/internal/core"
	"kakeibo/internal/ledger"
	applog "kakeibo/internal/log"
)

type indexData struct {
	Month        string
	Categories   []string
	Transactions []core.Transaction
	Net          int64
	Expense      core.Money
	Income       core.Money
	Budget       int64
}

func (s *Server) indexData(month string) indexData {
	snapshot := s.store.Snapshot()
	return indexData{
		Month:        month,
		Categories:   s.categories.Effective(snapshot),
		Transactions: aggregate.ByMonth(snapshot)[month],
		Net:          aggregate.NetForMonth(snapshot, month),
		Expense:      aggregate.ExpenseTotal(snapshot, month),
		Income:       aggregate.IncomeTotal(snapshot, month),
		Budget:       s.budget,
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	month := monthParam(r.URL.Query(), s.now())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "index.html", s.indexData(month)); err != nil {
		slog.ErrorContext(r.Context(), "Failed to render index", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (s *Server) handleMonthOverviewPartial(w http.ResponseWriter, r *http.Request) {
	month := monthParam(r.URL.Query(), s.now())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "month_overview.html", s.indexData(month)); err != nil {
		slog.ErrorContext(r.Context(), "Failed to render month overview", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("malformed request body").Write(w)
		return
	}
	in, errResp := transactionInput(parser)
	if errResp != nil {
		errResp.Write(w)
		return
	}

	tx, err := s.svc.Create(r.Context(), in)
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}
	s.audit.LogTransactionCreated(r.Context(), tx.Memo, tx.Amount.Yen, tx.Category, string(tx.Kind))

	NewHTMXResponse().
		Status(http.StatusCreated).
		TriggerTransactionCreated(tx.Date.MonthKey()).
		TriggerFormReset().
		TriggerSuccessNotification("Recorded " + tx.Memo).
		BodyJSON(tx).
		Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		BadRequestError("malformed request body").Write(w)
		return
	}
	in, errResp := transactionInput(parser)
	if errResp != nil {
		errResp.Write(w)
		return
	}

	tx, err := s.svc.Update(r.Context(), id, in)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			NotFoundError("no such transaction").Write(w)
			return
		}
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	NewHTMXResponse().
		TriggerTransactionUpdated(tx.Date.MonthKey()).
		BodyJSON(tx).
		Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	tx, existed := s.store.Get(id)

	if err := s.svc.Delete(r.Context(), id); err != nil {
		s.audit.LogError(r.Context(), "Failed to delete transaction", err,
			applog.ComponentLedger, applog.OpDelete, applog.NewFields())
		InternalServerError("failed to delete transaction").Write(w)
		return
	}

	resp := NewHTMXResponse().Status(http.StatusNoContent)
	if existed {
		resp.TriggerTransactionDeleted(tx.Date.MonthKey())
	}
	resp.Write(w)
}
