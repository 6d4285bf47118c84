package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"finagg/lib/finance"
	"finagg/lib/telemetry"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultCategoryTimeout = time.Second * 60
	DefaultLogoutTimeout   = time.Second * 10
)

var meter = telemetry.Meter("finagg/lib/scraper")

var (
	productsFetched, _  = meter.Int64Counter("finagg.products_fetched", metric.WithDescription("products normalized per category"))
	categoryFailures, _ = meter.Int64Counter("finagg.category_failures", metric.WithDescription("category fetches that failed"))
	fetchDuration, _    = meter.Float64Histogram("finagg.fetch_duration_ms", metric.WithUnit("ms"), metric.WithDescription("duration of a whole fetch run"))
)

type Orchestrator struct {
	// deadline for a single category fetch, 0 means DefaultCategoryTimeout
	CategoryTimeout time.Duration
	// deadline for logout, which runs even when the run is cancelled,
	// 0 means DefaultLogoutTimeout
	LogoutTimeout time.Duration
}

// FetchAll runs a fetch with the default orchestrator settings.
func FetchAll(ctx context.Context, s Scraper, categories []Category) FetchResult {
	return Orchestrator{}.FetchAll(ctx, s, categories)
}

func (o Orchestrator) categoryTimeout() time.Duration {
	if o.CategoryTimeout <= 0 {
		return DefaultCategoryTimeout
	}
	return o.CategoryTimeout
}

func (o Orchestrator) logoutTimeout() time.Duration {
	if o.LogoutTimeout <= 0 {
		return DefaultLogoutTimeout
	}
	return o.LogoutTimeout
}

type categoryOutcome struct {
	products    []finance.Product
	err         error
	unsupported bool
}

type run struct {
	result *FetchResult
	span   trace.Span
}

func (r run) transition(ctx context.Context, state State) {
	slog.DebugContext(
		ctx, "fetch state changed",
		"run_id", r.result.RunID,
		"from", r.result.State,
		"to", state,
	)
	r.span.AddEvent(string(state))
	r.result.State = state
}

// FetchAll logs in, fetches every requested category concurrently, logs
// out and assembles the outcome. it never returns an error directly, run
// fatal errors are carried in FetchResult.Fatal.
func (o Orchestrator) FetchAll(ctx context.Context, s Scraper, categories []Category) (result FetchResult) {
	start := time.Now()
	result = FetchResult{
		RunID:    uuid.New(),
		Platform: s.Platform(),
		State:    StateIdle,
		Failures: map[Category]error{},
	}

	ctx, span := tracer.Start(ctx, "FetchAll", trace.WithAttributes(
		attribute.String("platform", string(result.Platform)),
		attribute.String("run_id", result.RunID.String()),
	))
	defer span.End()

	r := run{result: &result, span: span}

	defer func() {
		result.Duration = time.Since(start)
		fetchDuration.Record(
			ctx, float64(result.Duration.Milliseconds()),
			metric.WithAttributes(
				attribute.String("platform", string(result.Platform)),
				attribute.String("outcome", string(result.Outcome())),
			),
		)
		if result.Fatal != nil {
			span.RecordError(result.Fatal)
			span.SetStatus(codes.Error, result.Fatal.Error())
		}
		slog.InfoContext(
			ctx, "fetch finished",
			"run_id", result.RunID,
			"platform", result.Platform,
			"state", result.State,
			"outcome", result.Outcome(),
			"products", len(result.Products),
			"failures", len(result.Failures),
			"duration", result.Duration,
		)
	}()

	if err := ctx.Err(); err != nil {
		r.transition(ctx, StateCancelled)
		result.Fatal = err
		return result
	}

	plan := dedupe(categories)

	r.transition(ctx, StateLoggingIn)
	err := s.Login(ctx)
	if err != nil {
		if ctx.Err() != nil {
			r.transition(ctx, StateCancelled)
			result.Fatal = ctx.Err()
			return result
		}
		r.transition(ctx, StateAuthFailed)
		result.Fatal = err
		return result
	}

	r.transition(ctx, StateFetching)
	outcomes := make([]categoryOutcome, len(plan))
	done := make(chan struct{})
	go func() {
		defer close(done)
		o.fetchConcurrently(ctx, s, plan, outcomes)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}

	if ctx.Err() != nil {
		slog.WarnContext(ctx, "fetch cancelled, abandoning outstanding categories", "run_id", result.RunID)
		result.LogoutErr = o.logout(ctx, s)
		r.transition(ctx, StateCancelled)
		result.Fatal = ctx.Err()
		return result
	}

	for i, c := range plan {
		outcome := outcomes[i]
		attrs := metric.WithAttributes(
			attribute.String("platform", string(result.Platform)),
			attribute.String("category", string(c)),
		)
		switch {
		case outcome.unsupported:
			result.Unsupported = append(result.Unsupported, c)
		case outcome.err != nil:
			result.Failures[c] = outcome.err
			categoryFailures.Add(ctx, 1, attrs)
			slog.WarnContext(ctx, "category failed", "run_id", result.RunID, "category", c, "err", outcome.err)
		default:
			result.Products = append(result.Products, outcome.products...)
			productsFetched.Add(ctx, int64(len(outcome.products)), attrs)
		}
	}

	r.transition(ctx, StateLoggingOut)
	result.LogoutErr = o.logout(ctx, s)

	r.transition(ctx, StateDone)
	return result
}

func dedupe(categories []Category) []Category {
	seen := map[Category]bool{}
	var out []Category
	for _, c := range categories {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// each outcome is written by exactly one goroutine at its own index
func (o Orchestrator) fetchConcurrently(ctx context.Context, s Scraper, plan []Category, outcomes []categoryOutcome) {
	wg := sync.WaitGroup{}
	for i, c := range plan {
		if !c.Valid() {
			outcomes[i] = categoryOutcome{err: fmt.Errorf("%w: %q", ErrUnknownCategory, string(c))}
			continue
		}
		if !s.Supports(c) {
			outcomes[i] = categoryOutcome{unsupported: true}
			continue
		}

		wg.Add(1)
		go func(i int, c Category) {
			defer wg.Done()
			products, err := o.fetchOne(ctx, s, c)
			if errors.Is(err, ErrUnsupportedCategory) {
				outcomes[i] = categoryOutcome{unsupported: true}
				return
			}
			outcomes[i] = categoryOutcome{products: products, err: err}
		}(i, c)
	}
	wg.Wait()
}

type fetched struct {
	products []finance.Product
	err      error
}

func (o Orchestrator) fetchOne(ctx context.Context, s Scraper, c Category) ([]finance.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, o.categoryTimeout())
	defer cancel()

	ctx, span := tracer.Start(ctx, "FetchCategory", trace.WithAttributes(
		attribute.String("category", string(c)),
	))
	defer span.End()

	ch := make(chan fetched, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- fetched{err: fmt.Errorf("%w: %s: %v", ErrFetchPanicked, c, r)}
			}
		}()
		products, err := Fetch(ctx, s, c)
		ch <- fetched{products: products, err: err}
	}()

	var out fetched
	select {
	case out = <-ch:
	case <-ctx.Done():
		out = fetched{err: &FetchTransportError{Category: c, Err: ctx.Err()}}
	}

	if out.err != nil {
		span.RecordError(out.err)
		span.SetStatus(codes.Error, out.err.Error())
		return nil, out.err
	}
	span.SetAttributes(attribute.Int("products", len(out.products)))
	return out.products, nil
}

func (o Orchestrator) logout(ctx context.Context, s Scraper) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.logoutTimeout())
	defer cancel()

	err := s.Logout(ctx)
	if err != nil {
		slog.WarnContext(ctx, "logout failed", "platform", s.Platform(), "err", err)
	}
	return err
}
