package myinvestor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"finagg/lib/finance"
	"finagg/lib/scraper"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const portfoliosResponse = `[
	{
		"idCuenta": "P-1",
		"alias": "Indexed",
		"importeInicial": 1000,
		"valorMercado": 1100.5,
		"cuentas": {
			"b-account": {"fondos": [{"isin": "IE00B", "nombre": "World", "inicial": 600, "actual": 650}]},
			"a-account": {"fondos": [{"isin": "IE00A", "nombre": "Europe", "inicial": 400, "actual": 450.5}]},
			"summary": "not an account"
		}
	},
	{
		"idCuenta": "P-2",
		"alias": "Empty",
		"importeInicial": 0,
		"valorMercado": 0,
		"cuentas": {}
	}
]`

func testMapping() finance.MappingTable {
	return finance.MappingTable{
		finance.CASH: {
			finance.KEY_ID:            "iban",
			finance.KEY_NAME:          "alias",
			finance.KEY_INITIAL_VALUE: "initialAmount",
			finance.KEY_VALUE:         "balance",
		},
		finance.PORTFOLIO: {
			finance.KEY_ID:            "idCuenta",
			finance.KEY_NAME:          "alias",
			finance.KEY_INITIAL_VALUE: "importeInicial",
			finance.KEY_VALUE:         "valorMercado",
			finance.KEY_ACCOUNTS:      "cuentas",
			finance.KEY_FUNDS:         "fondos",
		},
		finance.FUND: {
			finance.KEY_ID:            "isin",
			finance.KEY_NAME:          "nombre",
			finance.KEY_INITIAL_VALUE: "inicial",
			finance.KEY_VALUE:         "actual",
		},
		finance.ETF: {
			finance.KEY_ID:            "isin",
			finance.KEY_NAME:          "name",
			finance.KEY_INITIAL_VALUE: "cost",
			finance.KEY_VALUE:         "market.value",
			finance.KEY_HOLDINGS:      "positions",
		},
		finance.REAL_ESTATE: {
			finance.KEY_ID:            "ref",
			finance.KEY_NAME:          "name",
			finance.KEY_INITIAL_VALUE: "cost",
			finance.KEY_VALUE:         "valuation",
		},
	}
}

type fakePlatform struct {
	server   *httptest.Server
	requests atomic.Int32

	mutex sync.Mutex
	login map[string]any
}

func (p *fakePlatform) lastLogin() map[string]any {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.login
}

func newFakePlatform(t testing.TB) *fakePlatform {
	p := &fakePlatform{}
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		err := json.NewDecoder(r.Body).Decode(&body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		p.mutex.Lock()
		p.login = body
		p.mutex.Unlock()
		if body["password"] != "secret" {
			w.Write([]byte(`{"payload": {"status": "KO"}}`))
			return
		}
		w.Write([]byte(`{"payload": {"data": {"accessToken": "abc"}}}`))
	})

	authed := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			p.requests.Add(1)
			if r.Header.Get("Authorization") != "Bearer abc" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte(body))
		}
	}
	mux.HandleFunc("/accounts", authed(`[
		{"iban": "ES12AB", "alias": "Savings", "balance": 500.0},
		"garbage",
		{"iban": "ES34CD", "alias": "Main", "initialAmount": "100", "balance": "150"}
	]`))
	mux.HandleFunc("/portfolios", authed(portfoliosResponse))
	mux.HandleFunc("/stocks", authed(`[
		{"positions": [{"isin": "IE00X", "name": "MSCI", "cost": 10, "market": {"value": 12}}]},
		{"positions": [{"isin": "IE00Y", "name": "SP500", "cost": 20, "market": {"value": 19}}]}
	]`))
	mux.HandleFunc("/real-estate", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func (p *fakePlatform) config(password string) Config {
	return Config{
		Endpoints: Endpoints{
			Login:      p.server.URL + "/login",
			Accounts:   p.server.URL + "/accounts",
			Portfolios: p.server.URL + "/portfolios",
			Stocks:     p.server.URL + "/stocks",
			RealEstate: p.server.URL + "/real-estate",
		},
		Credentials: Credentials{
			AccessType: "USERNAME",
			CustomerID: "12345678Z",
			DeviceID:   "device",
			Password:   password,
		},
		Mapping: testMapping(),
	}
}

func TestLoginBody(t *testing.T) {
	p := newFakePlatform(t)
	s, err := New(p.config("secret"))
	require.NoError(t, err)

	require.NoError(t, s.Login(context.Background()))
	defer s.Logout(context.Background())

	require.Equal(t, map[string]any{
		"accessType": "USERNAME",
		"code":       nil,
		"customerId": "12345678Z",
		"deviceId":   "device",
		"otpId":      nil,
		"password":   "secret",
		"plataform":  nil,
	}, p.lastLogin())
}

func TestCredentialsFromEnv(t *testing.T) {
	t.Setenv("FINAGG_TEST_MYINVESTOR_PASSWORD", "secret")
	p := newFakePlatform(t)

	s, err := New(p.config("${FINAGG_TEST_MYINVESTOR_PASSWORD}"))
	require.NoError(t, err)
	require.NoError(t, s.Login(context.Background()))
	require.NoError(t, s.Logout(context.Background()))
}

func TestFetchCash(t *testing.T) {
	p := newFakePlatform(t)
	s, err := New(p.config("secret"))
	require.NoError(t, err)
	require.NoError(t, s.Login(context.Background()))
	defer s.Logout(context.Background())

	products, err := s.FetchCash(context.Background())
	require.NoError(t, err)

	expected := []finance.Product{
		{ID: "es12ab", Name: "savings", Type: finance.CASH, Platform: finance.MYINVESTOR, Value: 500},
		{ID: "es34cd", Name: "main", Type: finance.CASH, Platform: finance.MYINVESTOR, InitialValue: 100, Value: 150},
	}
	require.Empty(t, cmp.Diff(expected, products))
	require.Equal(t, 0.0, products[0].ROI())
	require.Equal(t, 50.0, products[1].ROI())
}

func TestFetchFundsNestedExtraction(t *testing.T) {
	p := newFakePlatform(t)
	s, err := New(p.config("secret"))
	require.NoError(t, err)
	require.NoError(t, s.Login(context.Background()))
	defer s.Logout(context.Background())

	products, err := s.FetchFunds(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, p.requests.Load())

	expected := []finance.Product{
		{ID: "p-1", Name: "indexed", Type: finance.PORTFOLIO, Platform: finance.MYINVESTOR, InitialValue: 1000, Value: 1100.5, Labels: "P-1"},
		{ID: "p-2", Name: "empty", Type: finance.PORTFOLIO, Platform: finance.MYINVESTOR, Labels: "P-2"},
		{ID: "ie00a", Name: "europe", Type: finance.FUND, Platform: finance.MYINVESTOR, InitialValue: 400, Value: 450.5, Labels: "P-1"},
		{ID: "ie00b", Name: "world", Type: finance.FUND, Platform: finance.MYINVESTOR, InitialValue: 600, Value: 650, Labels: "P-1"},
	}
	require.Empty(t, cmp.Diff(expected, products))
}

func TestExtractPortfoliosSkipsNonObjectAccounts(t *testing.T) {
	var portfolios []map[string]any
	require.NoError(t, json.Unmarshal([]byte(`[{
		"idCuenta": "X",
		"cuentas": {
			"dict": {"fondos": [{"isin": "F1"}, 7]},
			"list": [{"fondos": [{"isin": "NOPE"}]}],
			"number": 3,
			"null": null
		}
	}]`), &portfolios))

	mapping := testMapping()
	products, err := extractPortfolios(portfolios, mapping[finance.PORTFOLIO], mapping[finance.FUND])
	require.NoError(t, err)
	require.Len(t, products, 2)
	require.Equal(t, finance.PORTFOLIO, products[0].Type)
	require.Equal(t, "f1", products[1].ID)
	require.Equal(t, "X", products[1].Labels)
}

func TestFetchETFs(t *testing.T) {
	p := newFakePlatform(t)
	s, err := New(p.config("secret"))
	require.NoError(t, err)
	require.NoError(t, s.Login(context.Background()))
	defer s.Logout(context.Background())

	products, err := s.FetchETFs(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	require.Equal(t, "ie00x", products[0].ID)
	require.Equal(t, 12.0, products[0].Value)
	require.Equal(t, "sp500", products[1].Name)
	require.Equal(t, finance.ETF, products[1].Type)
}

func TestFetchBeforeLogin(t *testing.T) {
	p := newFakePlatform(t)
	s, err := New(p.config("secret"))
	require.NoError(t, err)

	_, err = s.FetchCash(context.Background())
	var transportErr *scraper.FetchTransportError
	require.ErrorAs(t, err, &transportErr)
	require.ErrorIs(t, err, scraper.ErrNotLoggedIn)
	require.EqualValues(t, 0, p.requests.Load())

	// logout without a session is a no-op
	require.NoError(t, s.Logout(context.Background()))
}

func TestUnsupportedCategories(t *testing.T) {
	p := newFakePlatform(t)
	s, err := New(p.config("secret"))
	require.NoError(t, err)

	for _, c := range []scraper.Category{scraper.STOCKS, scraper.CRYPTO, scraper.PENSION_FUNDS} {
		require.False(t, s.Supports(c))
		_, err := scraper.Fetch(context.Background(), s, c)
		require.ErrorIs(t, err, scraper.ErrUnsupportedCategory)
	}
	for _, c := range []scraper.Category{scraper.CASH, scraper.FUNDS, scraper.ETFS, scraper.REAL_ESTATE} {
		require.True(t, s.Supports(c))
	}
}

func TestNewValidatesConfig(t *testing.T) {
	p := newFakePlatform(t)

	testCases := []struct {
		name   string
		mutate func(c *Config)
		key    string
	}{
		{
			name:   "portfolio without accounts key",
			mutate: func(c *Config) { delete(c.Mapping[finance.PORTFOLIO], finance.KEY_ACCOUNTS) },
			key:    finance.KEY_ACCOUNTS,
		},
		{
			name:   "etf without holdings key",
			mutate: func(c *Config) { delete(c.Mapping[finance.ETF], finance.KEY_HOLDINGS) },
			key:    finance.KEY_HOLDINGS,
		},
		{
			name:   "cash without value",
			mutate: func(c *Config) { delete(c.Mapping[finance.CASH], finance.KEY_VALUE) },
			key:    finance.KEY_VALUE,
		},
		{
			name:   "no fund mapping",
			mutate: func(c *Config) { delete(c.Mapping, finance.FUND) },
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			config := p.config("secret")
			test.mutate(&config)

			_, err := New(config)
			var mappingErr *finance.MappingConfigError
			require.ErrorAs(t, err, &mappingErr)
			require.Equal(t, test.key, mappingErr.Key)
		})
	}

	config := p.config("secret")
	config.Endpoints.Portfolios = ""
	_, err := New(config)
	require.ErrorContains(t, err, "endpoints.portfolios")
}

func TestFetchAllAgainstPlatform(t *testing.T) {
	p := newFakePlatform(t)
	s, err := New(p.config("secret"))
	require.NoError(t, err)

	result := scraper.FetchAll(
		context.Background(), s,
		[]scraper.Category{scraper.CASH, scraper.FUNDS, scraper.ETFS, scraper.REAL_ESTATE, scraper.CRYPTO},
	)

	require.Equal(t, scraper.StateDone, result.State)
	require.Equal(t, scraper.OutcomeDegraded, result.Outcome())
	require.Len(t, result.Products, 2+4+2)
	require.Equal(t, []scraper.Category{scraper.CRYPTO}, result.Unsupported)

	require.Len(t, result.Failures, 1)
	var transportErr *scraper.FetchTransportError
	require.ErrorAs(t, result.Failures[scraper.REAL_ESTATE], &transportErr)
	require.Equal(t, http.StatusBadGateway, transportErr.StatusCode)

	// logged out
	_, err = s.FetchCash(context.Background())
	require.ErrorIs(t, err, scraper.ErrNotLoggedIn)
}

func TestFetchAllBadCredentials(t *testing.T) {
	p := newFakePlatform(t)
	s, err := New(p.config("wrong"))
	require.NoError(t, err)

	result := scraper.FetchAll(context.Background(), s, []scraper.Category{scraper.CASH})

	require.Equal(t, scraper.StateAuthFailed, result.State)
	var authErr *scraper.AuthenticationError
	require.ErrorAs(t, result.Fatal, &authErr)
	require.EqualValues(t, 0, p.requests.Load())
}
