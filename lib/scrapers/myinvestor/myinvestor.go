package myinvestor

import (
	"context"
	"log/slog"
	"sync/atomic"

	"finagg/lib/finance"
	"finagg/lib/scraper"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// the login response carries the bearer token at payload.data.accessToken
var tokenPath = []string{"payload", "data", "accessToken"}

var supported = map[scraper.Category]bool{
	scraper.CASH:        true,
	scraper.FUNDS:       true,
	scraper.ETFS:        true,
	scraper.REAL_ESTATE: true,
}

type Scraper struct {
	scraper.Unsupported

	config   Config
	mappings mappings
	session  atomic.Pointer[scraper.Session]
}

var _ scraper.Scraper = (*Scraper)(nil)

func New(config Config) (*Scraper, error) {
	m, err := config.resolve()
	if err != nil {
		return nil, err
	}
	config.Credentials = config.Credentials.expand()
	config.Session.Platform = finance.MYINVESTOR
	return &Scraper{config: config, mappings: m}, nil
}

func (s *Scraper) Platform() finance.Platform {
	return finance.MYINVESTOR
}

func (s *Scraper) Supports(c scraper.Category) bool {
	return supported[c]
}

func (s *Scraper) Login(ctx context.Context) error {
	session, err := scraper.Login(
		ctx,
		s.config.Session,
		s.config.Endpoints.Login,
		s.config.Credentials.request(),
		tokenPath...,
	)
	if err != nil {
		return err
	}
	previous := s.session.Swap(session)
	previous.Logout()
	return nil
}

func (s *Scraper) Logout(ctx context.Context) error {
	session := s.session.Swap(nil)
	if session == nil {
		slog.DebugContext(ctx, "logout without an active session")
		return nil
	}
	session.Logout()
	return nil
}

func recordErr(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func (s *Scraper) getList(ctx context.Context, category scraper.Category, url string) ([]map[string]any, error) {
	var records []any
	err := s.session.Load().GetJSON(ctx, category, url, &records)
	if err != nil {
		return nil, err
	}
	objects := finance.Objects(records)
	if skipped := len(records) - len(objects); skipped > 0 {
		slog.DebugContext(ctx, "skipped non-object records", "category", category, "count", skipped)
	}
	return objects, nil
}

// flat list of accounts
func (s *Scraper) FetchCash(ctx context.Context) ([]finance.Product, error) {
	ctx, span := tracer.Start(ctx, "FetchCash")
	defer span.End()

	records, err := s.getList(ctx, scraper.CASH, s.config.Endpoints.Accounts)
	if err != nil {
		recordErr(span, err)
		return nil, err
	}
	products, err := finance.NormalizeAll(finance.CASH, finance.MYINVESTOR, records, s.mappings.cash, "")
	if err != nil {
		recordErr(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("products", len(products)))
	return products, nil
}

// list of positions, each holding its own list of etfs
func (s *Scraper) FetchETFs(ctx context.Context) ([]finance.Product, error) {
	ctx, span := tracer.Start(ctx, "FetchETFs")
	defer span.End()

	positions, err := s.getList(ctx, scraper.ETFS, s.config.Endpoints.Stocks)
	if err != nil {
		recordErr(span, err)
		return nil, err
	}

	holdingsKey, _ := s.mappings.etf.Key(finance.KEY_HOLDINGS)
	var holdings []map[string]any
	for _, position := range positions {
		holdings = append(holdings, finance.LookupObjects(position, holdingsKey)...)
	}

	products, err := finance.NormalizeAll(finance.ETF, finance.MYINVESTOR, holdings, s.mappings.etf, "")
	if err != nil {
		recordErr(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("products", len(products)))
	return products, nil
}

// flat list of properties
func (s *Scraper) FetchRealEstate(ctx context.Context) ([]finance.Product, error) {
	ctx, span := tracer.Start(ctx, "FetchRealEstate")
	defer span.End()

	records, err := s.getList(ctx, scraper.REAL_ESTATE, s.config.Endpoints.RealEstate)
	if err != nil {
		recordErr(span, err)
		return nil, err
	}
	products, err := finance.NormalizeAll(finance.REAL_ESTATE, finance.MYINVESTOR, records, s.mappings.realEstate, "")
	if err != nil {
		recordErr(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("products", len(products)))
	return products, nil
}
