package http

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"bankrecon/internal/core"
	"bankrecon/internal/extract"
	"bankrecon/internal/log"
	"bankrecon/internal/services"
)

// handleExtract parses an uploaded statement PDF. The response is JSON
// {bank, transactions} unless CSV was asked for.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || r.ContentLength > s.opts.MaxUploadBytes {
			ErrorResponse(http.StatusRequestEntityTooLarge, "request body too large").Write(w)
			return
		}
		BadRequestError("No file part").Write(w)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		BadRequestError("No file part").Write(w)
		return
	}
	defer file.Close()
	if header.Filename == "" {
		BadRequestError("No selected file").Write(w)
		return
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		s.writeError(w, r, log.OpExtract, err)
		return
	}

	st, err := s.deps.Extractor.Extract(r.Context(), buf.Bytes(), r.FormValue("password"))
	s.deps.Metrics.ObserveExtraction(st.Bank, err)
	if err != nil {
		s.writeError(w, r, log.OpExtract, err)
		return
	}
	if st.Transactions == nil {
		st.Transactions = []core.RawTransaction{}
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Statement extracted",
		log.FieldOperation, log.OpExtract,
		log.FieldBank, st.Bank,
		log.FieldRows, len(st.Transactions))

	if WantsCSV(r) {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)
		w.Header().Set("X-Bank", string(st.Bank))
		if err := extract.WriteCSV(w, st.Transactions); err != nil {
			slog.ErrorContext(r.Context(), "CSV write failed", log.FieldError, err)
		}
		return
	}
	NewJSONResponse().Body(st).Write(w)
}

type checkStatusResponse struct {
	Dates      core.DateStatuses `json:"dates"`
	Categories map[string]string `json:"categories"`
}

// handleCheckStatus classifies every date of a batch. Any failure answers
// {} with 200 so clients render every date as needing review.
func (s *Server) handleCheckStatus(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		NewJSONResponse().Body(struct{}{}).Write(w)
		return
	}
	bank, err := s.resolveBank(req.Bank)
	if err != nil {
		NewJSONResponse().Body(struct{}{}).Write(w)
		return
	}

	res, err := s.deps.Reconciler.Check(r.Context(), bank, req.Transactions)
	if err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Status check failed",
			log.FieldOperation, log.OpClassify,
			log.FieldBank, bank,
			log.FieldError, err)
		NewJSONResponse().Body(struct{}{}).Write(w)
		return
	}
	NewJSONResponse().Body(checkStatusResponse{
		Dates:      res.Dates,
		Categories: res.Categories.Legacy(),
	}).Write(w)
}

type prefillRow struct {
	core.RawTransaction
	Signature string `json:"signature"`
}

// handlePrefill returns the rows of one date with their categories resolved
// against the stored ledger.
func (s *Server) handlePrefill(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpPrefill, err)
		return
	}
	bank, err := s.resolveBank(req.Bank)
	if err != nil {
		s.writeError(w, r, log.OpPrefill, err)
		return
	}
	date := strings.TrimSpace(req.Date)
	if date == "" {
		BadRequestError("Missing date").Write(w)
		return
	}

	resolved := s.deps.Reconciler.Prefill(r.Context(), bank, date, req.Transactions)
	rows := make([]prefillRow, 0, len(resolved))
	for _, t := range resolved {
		rows = append(rows, prefillRow{RawTransaction: t.RawTransaction, Signature: t.Signature.String()})
	}
	NewJSONResponse().Body(map[string]any{
		"bank":         bank,
		"date":         date,
		"transactions": rows,
	}).Write(w)
}

type syncResponse struct {
	Status    string `json:"status"`
	Count     int    `json:"count"`
	Worksheet string `json:"worksheet"`
}

// handleSync replaces the stored rows of the given dates with the batch.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpSync, err)
		return
	}
	if req.Transactions == nil {
		BadRequestError("Missing transactions").Write(w)
		return
	}
	bank, err := s.resolveBank(req.Bank)
	if err != nil {
		s.writeError(w, r, log.OpSync, err)
		return
	}

	targets := core.DateSet(req.Dates)
	var batch []core.RawTransaction
	for _, t := range req.Transactions {
		if _, ok := targets[strings.TrimSpace(t.Date)]; ok {
			batch = append(batch, t)
		}
	}

	if err := s.deps.Ledger.Sync(r.Context(), bank, req.Dates, services.Resolve(batch, nil)); err != nil {
		s.writeError(w, r, log.OpSync, err)
		return
	}

	NewJSONResponse().Body(syncResponse{
		Status:    "success",
		Count:     len(batch),
		Worksheet: s.deps.Banks.Worksheets()[bank],
	}).Write(w)
}

// handleLastSync reports the latest stored date of every configured bank.
func (s *Server) handleLastSync(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(s.deps.Ledger.LastSync(r.Context(), s.deps.Banks.IDs())).Write(w)
}
