package myinvestor

import (
	"context"
	"sort"

	"finagg/lib/finance"
	"finagg/lib/scraper"

	"go.opentelemetry.io/otel/attribute"
)

// FetchFunds returns every portfolio followed by every fund held in any of
// them, both come from the same portfolios response.
func (s *Scraper) FetchFunds(ctx context.Context) ([]finance.Product, error) {
	ctx, span := tracer.Start(ctx, "FetchFunds")
	defer span.End()

	portfolios, err := s.getList(ctx, scraper.FUNDS, s.config.Endpoints.Portfolios)
	if err != nil {
		recordErr(span, err)
		return nil, err
	}

	products, err := extractPortfolios(portfolios, s.mappings.portfolio, s.mappings.fund)
	if err != nil {
		recordErr(span, err)
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("portfolios", len(portfolios)),
		attribute.Int("products", len(products)),
	)
	return products, nil
}

type portfolioFunds struct {
	label string
	funds []map[string]any
}

// extractPortfolios normalizes each portfolio labelled with its own raw id,
// then walks its account map (account key -> account object) collecting
// the fund lists of object valued accounts. accounts are visited in key
// order, non-object accounts are skipped.
func extractPortfolios(portfolios []map[string]any, portfolioMapping, fundMapping finance.FieldMapping) ([]finance.Product, error) {
	idKey, _ := portfolioMapping.Key(finance.KEY_ID)
	accountsKey, _ := portfolioMapping.Key(finance.KEY_ACCOUNTS)
	fundsKey, _ := portfolioMapping.Key(finance.KEY_FUNDS)

	var out []finance.Product
	var nested []portfolioFunds

	for _, portfolio := range portfolios {
		rawID, _ := finance.Lookup(portfolio, idKey)
		label := finance.AsString(rawID)

		p, err := finance.Normalize(finance.PORTFOLIO, finance.MYINVESTOR, portfolio, portfolioMapping, label)
		if err != nil {
			return nil, err
		}
		out = append(out, p)

		accounts := finance.LookupObject(portfolio, accountsKey)
		keys := make([]string, 0, len(accounts))
		for key := range accounts {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		var funds []map[string]any
		for _, key := range keys {
			account, ok := accounts[key].(map[string]any)
			if !ok {
				continue
			}
			funds = append(funds, finance.LookupObjects(account, fundsKey)...)
		}
		nested = append(nested, portfolioFunds{label: label, funds: funds})
	}

	for _, n := range nested {
		funds, err := finance.NormalizeAll(finance.FUND, finance.MYINVESTOR, n.funds, fundMapping, n.label)
		if err != nil {
			return nil, err
		}
		out = append(out, funds...)
	}
	return out, nil
}
