package scraper

import (
	"context"
	"fmt"
	"strings"

	"finagg/lib/finance"
)

// a scraper (platform adapter) is stateful only in its login state, every
// Fetch* method is independent of the others once a session exists.
//
// each fetch method generally has this structure:
// 1. make one authenticated request to the category endpoint.
// 2. assert the response is decodable json of the expected shape.
// 3. normalize raw records into finance.Product through the mapping table.

type Category string

const (
	CASH          Category = "cash"
	FUNDS         Category = "funds"
	ETFS          Category = "etfs"
	STOCKS        Category = "stocks"
	CRYPTO        Category = "crypto"
	PENSION_FUNDS Category = "pension_funds"
	REAL_ESTATE   Category = "real_estate"
)

func AllCategories() []Category {
	return []Category{CASH, FUNDS, ETFS, STOCKS, CRYPTO, PENSION_FUNDS, REAL_ESTATE}
}

func (c Category) Valid() bool {
	for _, known := range AllCategories() {
		if c == known {
			return true
		}
	}
	return false
}

func ParseCategory(value string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(value)))
	if c == "realestate" {
		return REAL_ESTATE, nil
	}
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownCategory, value)
	}
	return c, nil
}

// ParseCategories parses a list of category names, an empty list yields
// nil rather than every category.
func ParseCategories(values []string) ([]Category, error) {
	var out []Category
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		c, err := ParseCategory(v)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

type Scraper interface {
	Platform() finance.Platform
	Supports(c Category) bool

	Login(ctx context.Context) error
	// Logout must be safe to call without an active session.
	Logout(ctx context.Context) error

	FetchCash(ctx context.Context) ([]finance.Product, error)
	FetchFunds(ctx context.Context) ([]finance.Product, error)
	FetchETFs(ctx context.Context) ([]finance.Product, error)
	FetchStocks(ctx context.Context) ([]finance.Product, error)
	FetchCrypto(ctx context.Context) ([]finance.Product, error)
	FetchPensionFunds(ctx context.Context) ([]finance.Product, error)
	FetchRealEstate(ctx context.Context) ([]finance.Product, error)
}

// Fetch dispatches a category to the matching Fetch* method of the scraper.
func Fetch(ctx context.Context, s Scraper, c Category) ([]finance.Product, error) {
	switch c {
	case CASH:
		return s.FetchCash(ctx)
	case FUNDS:
		return s.FetchFunds(ctx)
	case ETFS:
		return s.FetchETFs(ctx)
	case STOCKS:
		return s.FetchStocks(ctx)
	case CRYPTO:
		return s.FetchCrypto(ctx)
	case PENSION_FUNDS:
		return s.FetchPensionFunds(ctx)
	case REAL_ESTATE:
		return s.FetchRealEstate(ctx)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, string(c))
}

// Unsupported can be embedded into a scraper so it only needs to implement
// the categories its platform actually has.
type Unsupported struct{}

func (Unsupported) FetchCash(context.Context) ([]finance.Product, error) {
	return nil, unsupported(CASH)
}

func (Unsupported) FetchFunds(context.Context) ([]finance.Product, error) {
	return nil, unsupported(FUNDS)
}

func (Unsupported) FetchETFs(context.Context) ([]finance.Product, error) {
	return nil, unsupported(ETFS)
}

func (Unsupported) FetchStocks(context.Context) ([]finance.Product, error) {
	return nil, unsupported(STOCKS)
}

func (Unsupported) FetchCrypto(context.Context) ([]finance.Product, error) {
	return nil, unsupported(CRYPTO)
}

func (Unsupported) FetchPensionFunds(context.Context) ([]finance.Product, error) {
	return nil, unsupported(PENSION_FUNDS)
}

func (Unsupported) FetchRealEstate(context.Context) ([]finance.Product, error) {
	return nil, unsupported(REAL_ESTATE)
}

func unsupported(c Category) error {
	return fmt.Errorf("%w: %s", ErrUnsupportedCategory, c)
}
