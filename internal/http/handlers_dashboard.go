package http

import (
	"net/http"
	"strings"

	"bankrecon/internal/core"
	"bankrecon/internal/log"
	"bankrecon/internal/services"
)

type txnLineDTO struct {
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

type categoryDTO struct {
	Category     string       `json:"category"`
	Amount       float64      `json:"amount"`
	Budget       *float64     `json:"budget"`
	Status       string       `json:"status"`
	Transactions []txnLineDTO `json:"transactions"`
	Page         int          `json:"page"`
	Pages        int          `json:"pages"`
	Total        int          `json:"total"`
}

type chartPointDTO struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

type metricsDTO struct {
	MonthlyCommitment float64  `json:"monthly_commitment"`
	CurrentSpending   float64  `json:"current_spending"`
	Balance           *float64 `json:"balance"`
}

type dashboardDTO struct {
	Bank            core.BankID     `json:"bank"`
	AvailableMonths []string        `json:"available_months"`
	SelectedMonth   string          `json:"selected_month"`
	Metrics         metricsDTO      `json:"metrics"`
	Categories      []categoryDTO   `json:"categories"`
	Chart           []chartPointDTO `json:"chart"`
}

// buildDashboardDTO renders d for the client. Only the category named in
// p.Category is paged to p.Page; the others show their first page. Hidden
// categories stay in the table but are left out of the chart.
func buildDashboardDTO(d core.Dashboard, p DashboardParams, pageSize int) dashboardDTO {
	hidden := make(map[string]struct{}, len(p.Hidden))
	for _, h := range p.Hidden {
		hidden[strings.ToLower(h)] = struct{}{}
	}

	out := dashboardDTO{
		Bank:            d.Bank,
		AvailableMonths: d.Months,
		SelectedMonth:   d.SelectedMonth,
		Metrics: metricsDTO{
			MonthlyCommitment: money(d.Metrics.MonthlyCommitment),
			CurrentSpending:   money(d.Metrics.CurrentSpending),
			Balance:           nullMoney(d.Metrics.Balance),
		},
		Categories: make([]categoryDTO, 0, len(d.Categories)),
		Chart:      []chartPointDTO{},
	}
	if out.AvailableMonths == nil {
		out.AvailableMonths = []string{}
	}

	for _, c := range d.Categories {
		page := 1
		if strings.EqualFold(c.Category, p.Category) {
			page = p.Page
		}
		lines := services.Paginate(c.Transactions, page, pageSize)
		dto := categoryDTO{
			Category:     c.Category,
			Amount:       money(c.Amount),
			Budget:       nullMoney(c.Budget),
			Status:       services.BudgetStatus(c),
			Transactions: make([]txnLineDTO, 0, len(lines)),
			Page:         page,
			Pages:        services.PageCount(len(c.Transactions), pageSize),
			Total:        len(c.Transactions),
		}
		for _, l := range lines {
			dto.Transactions = append(dto.Transactions, txnLineDTO{Date: l.Date, Description: l.Description, Amount: money(l.Amount)})
		}
		out.Categories = append(out.Categories, dto)

		if _, ok := hidden[strings.ToLower(c.Category)]; !ok {
			out.Chart = append(out.Chart, chartPointDTO{Category: c.Category, Amount: dto.Amount})
		}
	}
	return out
}

func (s *Server) handleDashboardData(w http.ResponseWriter, r *http.Request) {
	p := ParseDashboardParams(r.URL.Query())
	bank, err := s.resolveBank(p.Bank)
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	d, err := s.deps.Dashboard.Fetch(r.Context(), bank, p.MonthYear)
	if err != nil {
		s.writeError(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Body(buildDashboardDTO(d, p, s.opts.PageSize)).Write(w)
}

type budgetResponse struct {
	Bank      core.BankID `json:"bank"`
	MonthYear string      `json:"month_year"`
	Category  string      `json:"category"`
	Amount    float64     `json:"amount"`
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var req BudgetRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpBudget, err)
		return
	}
	bank, err := s.resolveBank(req.Bank)
	if err != nil {
		s.writeError(w, r, log.OpBudget, err)
		return
	}
	b, err := s.deps.Dashboard.SetBudget(r.Context(), bank, sanitizeInput(req.MonthYear), sanitizeInput(req.Category), req.Amount.String())
	if err != nil {
		s.writeError(w, r, log.OpBudget, err)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Budget set",
		log.FieldOperation, log.OpBudget,
		log.FieldBank, bank,
		log.FieldMonthYear, b.MonthYear,
		log.FieldCategory, b.Category)
	NewJSONResponse().Body(budgetResponse{
		Bank:      b.Bank,
		MonthYear: b.MonthYear,
		Category:  b.Category,
		Amount:    money(b.Amount),
	}).Write(w)
}
