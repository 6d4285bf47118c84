package scraper

import (
	"context"
	"sync/atomic"

	"finagg/lib/finance"
)

type fakeScraper struct {
	Unsupported

	supported map[Category]bool

	LoginFunc  func(ctx context.Context) error
	LogoutFunc func(ctx context.Context) error
	FetchFunc  func(ctx context.Context, c Category) ([]finance.Product, error)

	logins  atomic.Int32
	logouts atomic.Int32
	fetches atomic.Int32
}

func newFakeScraper(supported ...Category) *fakeScraper {
	f := &fakeScraper{supported: map[Category]bool{}}
	for _, c := range supported {
		f.supported[c] = true
	}
	return f
}

func (f *fakeScraper) Platform() finance.Platform {
	return finance.MYINVESTOR
}

func (f *fakeScraper) Supports(c Category) bool {
	return f.supported[c]
}

func (f *fakeScraper) Login(ctx context.Context) error {
	f.logins.Add(1)
	if f.LoginFunc != nil {
		return f.LoginFunc(ctx)
	}
	return nil
}

func (f *fakeScraper) Logout(ctx context.Context) error {
	f.logouts.Add(1)
	if f.LogoutFunc != nil {
		return f.LogoutFunc(ctx)
	}
	return nil
}

func (f *fakeScraper) fetch(ctx context.Context, c Category) ([]finance.Product, error) {
	f.fetches.Add(1)
	if f.FetchFunc != nil {
		return f.FetchFunc(ctx, c)
	}
	return nil, nil
}

func (f *fakeScraper) FetchCash(ctx context.Context) ([]finance.Product, error) {
	return f.fetch(ctx, CASH)
}

func (f *fakeScraper) FetchFunds(ctx context.Context) ([]finance.Product, error) {
	return f.fetch(ctx, FUNDS)
}

func (f *fakeScraper) FetchETFs(ctx context.Context) ([]finance.Product, error) {
	return f.fetch(ctx, ETFS)
}

func (f *fakeScraper) FetchRealEstate(ctx context.Context) ([]finance.Product, error) {
	return f.fetch(ctx, REAL_ESTATE)
}

func product(pt finance.ProductType, id string, value float64) finance.Product {
	return finance.Product{
		ID:       id,
		Name:     id,
		Type:     pt,
		Platform: finance.MYINVESTOR,
		Value:    value,
	}
}
