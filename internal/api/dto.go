package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/payoff/internal/amortize"
	"github.com/cleared-dev/payoff/internal/autoupdate"
	"github.com/cleared-dev/payoff/internal/model"
	"github.com/cleared-dev/payoff/internal/payments"
	"github.com/cleared-dev/payoff/internal/summary"
)

// Money and rates travel as decimal strings; dates as YYYY-MM-DD.

type termsDTO struct {
	OriginalBalance     string `json:"original_balance"`
	APRRate             string `json:"apr_rate"`
	TermMonths          int    `json:"term_months"`
	PaymentType         string `json:"payment_type"`
	FixedMonthlyPayment string `json:"fixed_monthly_payment,omitempty"`
	OriginationDate     string `json:"origination_date"`
}

type accountDTO struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Terms              *termsDTO `json:"terms,omitempty"`
	CurrentBalance     string    `json:"current_balance"`
	RemainingMonths    int       `json:"remaining_months"`
	LastAutoUpdateDate string    `json:"last_auto_update_date,omitempty"`
	AutoUpdate         bool      `json:"auto_update"`
}

type scheduledPaymentDTO struct {
	Index                 int    `json:"index"`
	DueDate               string `json:"due_date"`
	PrincipalPayment      string `json:"principal_payment"`
	InterestPayment       string `json:"interest_payment"`
	TotalPayment          string `json:"total_payment"`
	RemainingBalanceAfter string `json:"remaining_balance_after"`
}

type scheduleDTO struct {
	AccountID      string                `json:"account_id"`
	MonthlyPayment string                `json:"monthly_payment"`
	TotalPrincipal string                `json:"total_principal"`
	TotalInterest  string                `json:"total_interest"`
	TotalPayments  string                `json:"total_payments"`
	Payments       []scheduledPaymentDTO `json:"payments"`
}

type createAccountRequest struct {
	Name                string `json:"name"`
	OriginalBalance     string `json:"original_balance"`
	APRRate             string `json:"apr_rate"`
	TermMonths          int    `json:"term_months"`
	PaymentType         string `json:"payment_type"`
	FixedMonthlyPayment string `json:"fixed_monthly_payment"`
	OriginationDate     string `json:"origination_date"`
	AutoUpdate          bool   `json:"auto_update"`
}

type paymentRequest struct {
	Amount    string `json:"amount"`
	Date      string `json:"date"`
	Intent    string `json:"intent"`
	Principal string `json:"principal"`
	Interest  string `json:"interest"`
	Memo      string `json:"memo"`
}

type paymentResultDTO struct {
	EntryID         string `json:"entry_id"`
	NewBalance      string `json:"new_balance"`
	PrincipalPaid   string `json:"principal_paid"`
	InterestPaid    string `json:"interest_paid"`
	TotalPaid       string `json:"total_paid"`
	Unapplied       string `json:"unapplied"`
	RemainingMonths int    `json:"remaining_months"`
}

type autoUpdateRequest struct {
	AsOf string `json:"as_of"`
}

type autoUpdateResultDTO struct {
	Period        string `json:"period"`
	NewBalance    string `json:"new_balance"`
	InterestAdded string `json:"interest_added"`
	PrincipalPaid string `json:"principal_paid"`
	Applied       bool   `json:"applied"`
}

type autoUpdateOutcomeDTO struct {
	AccountID string               `json:"account_id"`
	Name      string               `json:"name"`
	Result    *autoUpdateResultDTO `json:"result,omitempty"`
	Skipped   string               `json:"skipped,omitempty"`
	Error     string               `json:"error,omitempty"`
}

type autoUpdateRunDTO struct {
	Period   string                 `json:"period"`
	Applied  int                    `json:"applied"`
	Failed   int                    `json:"failed"`
	Outcomes []autoUpdateOutcomeDTO `json:"outcomes"`
}

type debtSummaryDTO struct {
	AccountID           string `json:"account_id"`
	Name                string `json:"name"`
	OriginalBalance     string `json:"original_balance"`
	CurrentBalance      string `json:"current_balance"`
	TotalPrincipalPaid  string `json:"total_principal_paid"`
	TotalInterestPaid   string `json:"total_interest_paid"`
	PercentPaidOff      string `json:"percent_paid_off"`
	ProjectedPayoffDate string `json:"projected_payoff_date,omitempty"`
}

type totalsDTO struct {
	Accounts            int    `json:"accounts"`
	OriginalBalance     string `json:"original_balance"`
	CurrentBalance      string `json:"current_balance"`
	TotalPrincipalPaid  string `json:"total_principal_paid"`
	TotalInterestPaid   string `json:"total_interest_paid"`
	PercentPaidOff      string `json:"percent_paid_off"`
	LatestPayoffDate    string `json:"latest_payoff_date,omitempty"`
	UnprojectedAccounts int    `json:"unprojected_accounts"`
}

type reportDTO struct {
	Accounts []debtSummaryDTO `json:"accounts"`
	Total    totalsDTO        `json:"total"`
}

type errorDTO struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func date(t time.Time) string { return t.Format(model.DateFormat) }

func optDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return date(*t)
}

func toAccountDTO(a model.DebtAccount) accountDTO {
	out := accountDTO{
		ID:                 a.ID.String(),
		Name:               a.Name,
		CurrentBalance:     money(a.State.CurrentBalance),
		RemainingMonths:    a.State.RemainingMonths,
		LastAutoUpdateDate: optDate(a.State.LastAutoUpdateDate),
		AutoUpdate:         a.AutoUpdate,
	}
	if t := a.Terms; t != nil {
		out.Terms = &termsDTO{
			OriginalBalance: money(t.OriginalBalance),
			APRRate:         t.APRRate.String(),
			TermMonths:      t.TermMonths,
			PaymentType:     string(t.PaymentType),
			OriginationDate: date(t.OriginationDate),
		}
		if t.FixedMonthlyPayment.Valid {
			out.Terms.FixedMonthlyPayment = money(t.FixedMonthlyPayment.Decimal)
		}
	}
	return out
}

func toScheduledPaymentDTO(p model.ScheduledPayment) scheduledPaymentDTO {
	return scheduledPaymentDTO{
		Index:                 p.Index,
		DueDate:               date(p.DueDate),
		PrincipalPayment:      money(p.PrincipalPayment),
		InterestPayment:       money(p.InterestPayment),
		TotalPayment:          money(p.TotalPayment),
		RemainingBalanceAfter: money(p.RemainingBalanceAfter),
	}
}

func toScheduleDTO(a model.DebtAccount, payment decimal.Decimal, schedule []model.ScheduledPayment) scheduleDTO {
	totals := amortize.Totals(schedule)
	out := scheduleDTO{
		AccountID:      a.ID.String(),
		MonthlyPayment: money(payment),
		TotalPrincipal: money(totals.Principal),
		TotalInterest:  money(totals.Interest),
		TotalPayments:  money(totals.Payments),
		Payments:       make([]scheduledPaymentDTO, len(schedule)),
	}
	for i, p := range schedule {
		out.Payments[i] = toScheduledPaymentDTO(p)
	}
	return out
}

func toPaymentResultDTO(r payments.PaymentResult) paymentResultDTO {
	return paymentResultDTO{
		EntryID:         r.EntryID.String(),
		NewBalance:      money(r.NewBalance),
		PrincipalPaid:   money(r.PrincipalPaid),
		InterestPaid:    money(r.InterestPaid),
		TotalPaid:       money(r.TotalPaid),
		Unapplied:       money(r.Unapplied),
		RemainingMonths: r.RemainingMonths,
	}
}

func toAutoUpdateResultDTO(period model.BillingPeriod, r payments.AutoUpdateResult) autoUpdateResultDTO {
	return autoUpdateResultDTO{
		Period:        period.String(),
		NewBalance:    money(r.NewBalance),
		InterestAdded: money(r.InterestAdded),
		PrincipalPaid: money(r.PrincipalPaid),
		Applied:       r.Applied,
	}
}

func toAutoUpdateRunDTO(rep autoupdate.Report) autoUpdateRunDTO {
	out := autoUpdateRunDTO{
		Period:   rep.Period.String(),
		Applied:  rep.Applied(),
		Failed:   rep.Failed(),
		Outcomes: make([]autoUpdateOutcomeDTO, len(rep.Outcomes)),
	}
	for i, o := range rep.Outcomes {
		dto := autoUpdateOutcomeDTO{AccountID: o.AccountID.String(), Name: o.Name, Skipped: o.Skipped}
		switch {
		case o.Err != nil:
			dto.Error = o.Err.Error()
		case o.Skipped == "":
			r := toAutoUpdateResultDTO(rep.Period, o.Result)
			dto.Result = &r
		}
		out.Outcomes[i] = dto
	}
	return out
}

func toReportDTO(r summary.Report) reportDTO {
	out := reportDTO{
		Accounts: make([]debtSummaryDTO, len(r.Accounts)),
		Total: totalsDTO{
			Accounts:            r.Total.Accounts,
			OriginalBalance:     money(r.Total.OriginalBalance),
			CurrentBalance:      money(r.Total.CurrentBalance),
			TotalPrincipalPaid:  money(r.Total.TotalPrincipalPaid),
			TotalInterestPaid:   money(r.Total.TotalInterestPaid),
			PercentPaidOff:      r.Total.PercentPaidOff.StringFixed(4),
			LatestPayoffDate:    optDate(r.Total.LatestPayoffDate),
			UnprojectedAccounts: r.Total.UnprojectedAccounts,
		},
	}
	for i, s := range r.Accounts {
		out.Accounts[i] = debtSummaryDTO{
			AccountID:           s.AccountID.String(),
			Name:                s.Name,
			OriginalBalance:     money(s.OriginalBalance),
			CurrentBalance:      money(s.CurrentBalance),
			TotalPrincipalPaid:  money(s.TotalPrincipalPaid),
			TotalInterestPaid:   money(s.TotalInterestPaid),
			PercentPaidOff:      s.PercentPaidOff.StringFixed(4),
			ProjectedPayoffDate: optDate(s.ProjectedPayoffDate),
		}
	}
	return out
}
