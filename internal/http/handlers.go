package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"bankrecon/internal/core"
	"bankrecon/internal/extract"
	"bankrecon/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks the configured store and reports limiter state.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status := "ready"
	code := http.StatusOK
	checks := map[string]any{}

	switch {
	case s.deps.Ready == nil:
		checks["store"] = "ok"
	default:
		if err := s.deps.Ready(ctx); err != nil {
			checks["store"] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			code = http.StatusServiceUnavailable
		} else {
			checks["store"] = "ok"
		}
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.limiter.ActiveClients(),
		"status":         "ok",
	}

	NewJSONResponse().Status(code).Body(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// resolveBank returns the normalized bank for raw, the default bank when raw
// is blank, or core.ErrUnknownBank.
func (s *Server) resolveBank(raw string) (core.BankID, error) {
	bank := core.BankID(sanitizeInput(raw)).Normalize()
	if bank == "" {
		bank = s.opts.DefaultBank
	}
	if _, ok := s.deps.Banks.Find(bank); !ok {
		return "", fmt.Errorf("%w: %q", core.ErrUnknownBank, raw)
	}
	return bank, nil
}

// writeError maps service errors to status codes. Validation failures carry
// their message; store failures are logged and reported generically.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, core.ErrPasswordRequired):
		CodedErrorResponse(http.StatusUnauthorized, "Password required or incorrect", "PASSWORD_REQUIRED").Write(w)
	case errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrInvalidBudget),
		errors.Is(err, core.ErrUnknownBank),
		errors.Is(err, core.ErrNoTransactions),
		errors.Is(err, core.ErrInvalidMonth),
		errors.Is(err, errBadBody):
		BadRequestError(err.Error()).Write(w)
	case errors.Is(err, extract.ErrNoFormat):
		ErrorResponse(http.StatusUnprocessableEntity, err.Error()).Write(w)
	default:
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			ErrorResponse(http.StatusRequestEntityTooLarge, "request body too large").Write(w)
			return
		}
		log.FromContext(r.Context()).LogError(r.Context(), "Request failed", err, op, log.NewFields())
		InternalServerError(fmt.Sprintf("%s failed", op)).Write(w)
	}
}
