package scraper

import (
	"encoding/json"
	"errors"
	"sort"
	"time"

	"finagg/lib/finance"

	"github.com/google/uuid"
)

type State string

const (
	StateIdle       State = "idle"
	StateLoggingIn  State = "logging_in"
	StateFetching   State = "fetching"
	StateLoggingOut State = "logging_out"
	StateDone       State = "done"
	StateAuthFailed State = "auth_failed"
	StateCancelled  State = "cancelled"
)

type Outcome string

const (
	// no failures and at least one product
	OutcomeOK Outcome = "ok"
	// no failures but nothing was found either
	OutcomeEmpty Outcome = "empty"
	// some categories failed
	OutcomeDegraded Outcome = "degraded"
	// the run as a whole failed (auth, session setup, cancellation)
	OutcomeFatal Outcome = "fatal"
)

type FetchResult struct {
	RunID    uuid.UUID
	Platform finance.Platform
	State    State

	Products    []finance.Product
	Failures    map[Category]error
	Unsupported []Category

	// set for AuthFailed and Cancelled runs, Products is always empty then
	Fatal error
	// logout failures never change the outcome of a run
	LogoutErr error

	Duration time.Duration
}

// Err returns the fatal error, or every category failure joined together
// in category order.
func (r FetchResult) Err() error {
	if r.Fatal != nil {
		return r.Fatal
	}
	var errs []error
	for _, c := range r.FailedCategories() {
		errs = append(errs, r.Failures[c])
	}
	return errors.Join(errs...)
}

// FailedCategories lists the keys of Failures in a stable order.
func (r FetchResult) FailedCategories() []Category {
	out := make([]Category, 0, len(r.Failures))
	for c := range r.Failures {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return categoryRank(out[i]) < categoryRank(out[j])
	})
	return out
}

func categoryRank(c Category) int {
	for i, known := range AllCategories() {
		if known == c {
			return i
		}
	}
	return len(AllCategories())
}

func (r FetchResult) Degraded() bool {
	return r.Fatal == nil && len(r.Failures) > 0
}

func (r FetchResult) Empty() bool {
	return r.Fatal == nil && len(r.Failures) == 0 && len(r.Products) == 0
}

func (r FetchResult) Outcome() Outcome {
	switch {
	case r.Fatal != nil:
		return OutcomeFatal
	case len(r.Failures) > 0:
		return OutcomeDegraded
	case len(r.Products) == 0:
		return OutcomeEmpty
	}
	return OutcomeOK
}

func (r FetchResult) TotalValue() float64 {
	var total float64
	for _, p := range r.Products {
		// portfolio values already include the funds they hold
		if p.Type == finance.PORTFOLIO {
			continue
		}
		total += p.Value
	}
	return total
}

func (r FetchResult) ByType() map[finance.ProductType][]finance.Product {
	out := map[finance.ProductType][]finance.Product{}
	for _, p := range r.Products {
		out[p.Type] = append(out[p.Type], p)
	}
	return out
}

type fetchResultJSON struct {
	RunID       string            `json:"run_id"`
	Platform    finance.Platform  `json:"platform"`
	State       State             `json:"state"`
	Outcome     Outcome           `json:"outcome"`
	Products    []finance.Product `json:"products"`
	Failures    map[string]string `json:"failures"`
	Unsupported []Category        `json:"unsupported"`
	Fatal       string            `json:"fatal,omitempty"`
	TotalValue  float64           `json:"total_value"`
	DurationMs  int64             `json:"duration_ms"`
}

func (r FetchResult) MarshalJSON() ([]byte, error) {
	out := fetchResultJSON{
		RunID:       r.RunID.String(),
		Platform:    r.Platform,
		State:       r.State,
		Outcome:     r.Outcome(),
		Products:    r.Products,
		Failures:    map[string]string{},
		Unsupported: r.Unsupported,
		TotalValue:  r.TotalValue(),
		DurationMs:  r.Duration.Milliseconds(),
	}
	if out.Products == nil {
		out.Products = []finance.Product{}
	}
	if out.Unsupported == nil {
		out.Unsupported = []Category{}
	}
	for c, err := range r.Failures {
		out.Failures[string(c)] = err.Error()
	}
	if r.Fatal != nil {
		out.Fatal = r.Fatal.Error()
	}
	return json.Marshal(out)
}
