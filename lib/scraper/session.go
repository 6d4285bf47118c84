package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"finagg/lib/finance"
	"finagg/lib/restyutil"
	"finagg/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

var tracer = telemetry.Tracer("finagg/lib/scraper")

const (
	DefaultTimeout   = time.Second * 30
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36"
)

type SessionOptions struct {
	Platform finance.Platform `json:"-" yaml:"-"`
	// per request timeout, 0 means DefaultTimeout
	TimeoutSeconds    float64 `json:"timeout_seconds" yaml:"timeout_seconds"`
	UserAgent         string  `json:"user_agent" yaml:"user_agent"`
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
	BypassCloudflare  bool    `json:"bypass_cloudflare" yaml:"bypass_cloudflare"`

	Instrument restyutil.InstrumentOutput `json:"-" yaml:"-"`
}

func (o SessionOptions) Timeout() time.Duration {
	if o.TimeoutSeconds <= 0 {
		return DefaultTimeout
	}
	return time.Duration(o.TimeoutSeconds * float64(time.Second))
}

func newClient(opts SessionOptions, loginURL string) *resty.Client {
	client := resty.New()
	client.SetTimeout(opts.Timeout())

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	client.SetHeaders(map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
		"User-Agent":   userAgent,
	})

	if opts.BypassCloudflare {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}

	// the request span must exist before any other hook can fail
	telemetry.InstrumentResty(client, fmt.Sprintf("finagg/lib/scraper/http/%s", opts.Platform))

	if opts.RequestsPerSecond > 0 {
		// burst >= 1 just means that no requests will be dropped
		burst := int(math.Max(1, math.Ceil(opts.RequestsPerSecond)))
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	restyutil.InstrumentClient(client, string(opts.Platform), opts.Instrument, func(req *resty.Request) bool {
		return req.Method == http.MethodPost && req.URL == loginURL
	})

	return client
}

// Session is the credential bundle produced by a successful login. it is
// never mutated after Login returns so it can be shared by concurrent
// fetches without locking.
type Session struct {
	platform finance.Platform
	token    string
	client   *resty.Client

	closeOnce sync.Once
	closed    atomic.Bool
}

// Login posts `credentials` as json to `loginURL` and extracts the bearer
// token found by walking `tokenPath` through the response body.
func Login(ctx context.Context, opts SessionOptions, loginURL string, credentials any, tokenPath ...string) (*Session, error) {
	ctx, span := tracer.Start(ctx, "Login", trace.WithAttributes(
		attribute.String("platform", string(opts.Platform)),
	))
	defer span.End()

	client := newClient(opts, loginURL)

	fail := func(err error) (*Session, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		client.GetClient().CloseIdleConnections()
		slog.WarnContext(ctx, "login failed", "platform", opts.Platform, "err", err)
		return nil, err
	}

	res, err := client.R().
		SetContext(ctx).
		SetBody(credentials).
		Post(loginURL)
	if err != nil {
		return fail(&SessionSetupError{URL: loginURL, Err: err})
	}
	if !res.IsSuccess() {
		return fail(&SessionSetupError{
			URL:        loginURL,
			StatusCode: res.StatusCode(),
			Err:        fmt.Errorf("unexpected status %s", res.Status()),
		})
	}

	token, err := extractToken(res.Body(), tokenPath)
	if err != nil {
		return fail(&AuthenticationError{URL: loginURL, Reason: err.Error()})
	}

	slog.DebugContext(ctx, "logged in", "platform", opts.Platform)
	return &Session{
		platform: opts.Platform,
		token:    token,
		client:   client,
	}, nil
}

func extractToken(body []byte, tokenPath []string) (string, error) {
	if len(tokenPath) == 0 {
		return "", fmt.Errorf("no token path configured")
	}

	var current any
	err := json.Unmarshal(body, &current)
	if err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}

	for i, segment := range tokenPath {
		obj, ok := current.(map[string]any)
		if !ok {
			return "", fmt.Errorf("login response has no object at %q", strings.Join(tokenPath[:i], "."))
		}
		current, ok = obj[segment]
		if !ok {
			return "", fmt.Errorf("login response is missing %q", strings.Join(tokenPath[:i+1], "."))
		}
	}

	token, ok := current.(string)
	if !ok || token == "" {
		return "", fmt.Errorf("login response has no usable token at %q", strings.Join(tokenPath, "."))
	}
	return token, nil
}

func (s *Session) Platform() finance.Platform {
	return s.platform
}

// GetJSON performs one authenticated GET and decodes the response body into
// `out`. numbers decode as json.Number.
func (s *Session) GetJSON(ctx context.Context, category Category, url string, out any) error {
	if s == nil {
		return &FetchTransportError{Category: category, URL: url, Err: ErrNotLoggedIn}
	}
	if s.Closed() {
		return &FetchTransportError{Category: category, URL: url, Err: ErrSessionClosed}
	}

	res, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(s.token).
		Get(url)
	if err != nil {
		return &FetchTransportError{Category: category, URL: url, Err: err}
	}
	if !res.IsSuccess() {
		return &FetchTransportError{
			Category:   category,
			URL:        url,
			StatusCode: res.StatusCode(),
			Err:        fmt.Errorf("unexpected status %s", res.Status()),
		}
	}

	decoder := json.NewDecoder(bytes.NewReader(res.Body()))
	decoder.UseNumber()
	err = decoder.Decode(out)
	if err != nil {
		return &FetchTransportError{
			Category:   category,
			URL:        url,
			StatusCode: res.StatusCode(),
			Err:        fmt.Errorf("decode response: %w", err),
		}
	}
	return nil
}

// Logout releases the transport resources of the session, calling it more
// than once or on a nil session is a no-op.
func (s *Session) Logout() {
	if s == nil {
		return
	}
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.client.GetClient().CloseIdleConnections()
	})
}

func (s *Session) Closed() bool {
	if s == nil {
		return true
	}
	return s.closed.Load()
}
