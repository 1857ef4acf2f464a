package engine

import (
	"fmt"
	"strings"
	"time"

	"stock-backtester/internal/strategy"
)

const dateLayout = "2006-01-02"

// RunParams are the validated inputs of one backtest run.
type RunParams struct {
	Ticker    string
	StartDate time.Time
	EndDate   time.Time
	SMAPeriod int
	Rule      strategy.Rule
	Broker    BrokerConfig
}

// RunRequest is the raw, unvalidated shape of a run request. InitialCash and
// CommissionRate are optional overrides of the run-level accounting defaults.
type RunRequest struct {
	Ticker         string
	StartDate      string
	EndDate        string
	SMAPeriod      int
	Condition      string
	ThenAction     string
	ElseAction     string
	InitialCash    *float64
	CommissionRate *float64
}

// ValidationErrors aggregates every parameter violation found, so callers
// see the full list instead of only the first failure.
type ValidationErrors struct {
	Errors []string
}

func (v *ValidationErrors) Error() string {
	return "invalid backtest parameters: " + strings.Join(v.Errors, "; ")
}

func (v *ValidationErrors) add(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// ValidateRequest checks every field eagerly and returns either the parsed
// RunParams (broker config still unset) or a *ValidationErrors listing all
// violations at once.
func ValidateRequest(req RunRequest, now time.Time) (RunParams, error) {
	verr := &ValidationErrors{}
	params := RunParams{SMAPeriod: req.SMAPeriod}

	params.Ticker = strings.ToUpper(strings.TrimSpace(req.Ticker))
	if params.Ticker == "" {
		verr.add("ticker symbol is required")
	}

	start, startErr := time.Parse(dateLayout, req.StartDate)
	if startErr != nil {
		verr.add("invalid start_date %q: use YYYY-MM-DD", req.StartDate)
	}
	end, endErr := time.Parse(dateLayout, req.EndDate)
	if endErr != nil {
		verr.add("invalid end_date %q: use YYYY-MM-DD", req.EndDate)
	}
	if startErr == nil && endErr == nil {
		if !start.Before(end) {
			verr.add("start_date must be before end_date")
		}
		if start.After(now) {
			verr.add("start_date cannot be in the future")
		}
		params.StartDate = start
		params.EndDate = end
	}

	if req.SMAPeriod < 1 || req.SMAPeriod > 200 {
		verr.add("sma_period must be between 1 and 200")
	}

	// Accounting overrides join the same collected error list, so a negative
	// commission never reaches the broker.
	if req.InitialCash != nil && *req.InitialCash <= 0 {
		verr.add("initial_cash must be positive")
	}
	if req.CommissionRate != nil && *req.CommissionRate < 0 {
		verr.add("commission_rate must not be negative")
	}

	cond, err := strategy.ParseCondition(req.Condition)
	if err != nil {
		verr.add("%v", err)
	}
	then, err := strategy.ParseAction(req.ThenAction)
	if err != nil {
		verr.add("invalid then_action: %v", err)
	}
	els, err := strategy.ParseAction(req.ElseAction)
	if err != nil {
		verr.add("invalid else_action: %v", err)
	}

	if len(verr.Errors) > 0 {
		return RunParams{}, verr
	}

	params.Rule = strategy.Rule{Condition: cond, Then: then, Else: els}
	return params, nil
}
