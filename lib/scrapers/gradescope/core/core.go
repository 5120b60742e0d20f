package core

import (
	"bytes"
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"gradescope-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/gradescope/core")

const (
	LoginPath   = "/login"
	AccountPath = "/account"
)

type Credentials struct {
	Email    string
	Password string
}

type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client

	// markers for detecting a dead session: a request whose final url
	// (after redirects) starts with one of these paths was bounced to login
	expiredPathMarkers []string

	slots       chan struct{}
	pacing      time.Duration
	lastRequest time.Time
	pacingMu    sync.Mutex

	sessionMu sync.Mutex
	creds     Credentials
	loggedIn  bool
	// bumped on every successful login. requests are stamped with the
	// generation they were issued under so a stale response that reports
	// expiry after a refresh cannot invalidate the fresh session.
	generation int
}

type ClientOptions struct {
	BaseUrl string
	// bounded attempt count for transient failures, defaults to 3
	MaxAttempts int
	// maximum concurrent in-flight requests, defaults to 1
	MaxConcurrent int
	// minimum delay between outbound requests, defaults to 1s
	RequestDelay time.Duration
	// overrides the default session-expiry detection rule of
	// "redirected to /login"
	ExpiredPathMarkers []string
}

const rateLimitWait = time.Minute

func NewClient(ctx context.Context, opts ClientOptions) (*Client, error) {
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}
	if opts.RequestDelay <= 0 {
		opts.RequestDelay = time.Second
	}
	if len(opts.ExpiredPathMarkers) == 0 {
		opts.ExpiredPathMarkers = []string{LoginPath}
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	client.SetTimeout(time.Second * 30)

	client.SetRetryCount(opts.MaxAttempts - 1)
	client.SetRetryWaitTime(time.Second)
	client.SetRetryMaxWaitTime(rateLimitWait * 2)
	client.AddRetryCondition(func(res *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		code := res.StatusCode()
		return code >= 500 || code == http.StatusTooManyRequests
	})
	client.SetRetryAfter(func(cli *resty.Client, res *resty.Response) (time.Duration, error) {
		if res == nil || res.StatusCode() != http.StatusTooManyRequests {
			// zero falls back to resty's jittered exponential backoff
			return 0, nil
		}
		if hint := res.Header().Get("Retry-After"); hint != "" {
			seconds, err := strconv.Atoi(hint)
			if err == nil && seconds > 0 {
				return time.Duration(seconds) * time.Second, nil
			}
		}
		return rateLimitWait, nil
	})

	telemetry.InstrumentResty(client, "scrapers/gradescope/http")

	c := &Client{
		BaseUrl:            baseUrl,
		Http:               client,
		expiredPathMarkers: opts.ExpiredPathMarkers,
		slots:              make(chan struct{}, opts.MaxConcurrent),
		pacing:             opts.RequestDelay,
	}
	return c, nil
}

// one request slot at a time per client plus a minimum inter-request
// delay, so a scrape run looks like a single patient user to the source
func (c *Client) acquire(ctx context.Context) (release func(), err error) {
	select {
	case c.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	c.pacingMu.Lock()
	wait := c.pacing - time.Since(c.lastRequest)
	c.pacingMu.Unlock()
	if wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			<-c.slots
			return nil, ctx.Err()
		}
	}

	return func() {
		c.pacingMu.Lock()
		c.lastRequest = time.Now()
		c.pacingMu.Unlock()
		<-c.slots
	}, nil
}

// Get fetches a path through the authenticated session, classifying the
// response. Transient failures and throttling are absorbed by bounded
// retries; a dead session surfaces as SessionExpired without retrying.
func (c *Client) Get(ctx context.Context, path string) (*resty.Response, error) {
	release, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	gen := c.session()
	res, err := c.Http.R().
		SetContext(ctx).
		SetHeader("accept", "text/html").
		Get(path)
	if err != nil {
		return nil, err
	}
	return res, c.classify(res, gen)
}

func (c *Client) classify(res *resty.Response, gen int) error {
	if c.redirectedToLogin(res) {
		c.invalidate(gen)
		return SessionExpired
	}

	code := res.StatusCode()
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		c.invalidate(gen)
		return SessionExpired
	case code == http.StatusTooManyRequests:
		return RateLimited
	case code >= 400:
		return &StatusError{Code: code, Url: res.Request.URL}
	}
	return nil
}

func (c *Client) redirectedToLogin(res *resty.Response) bool {
	raw := res.RawResponse
	if raw == nil || raw.Request == nil || raw.Request.URL == nil {
		return false
	}
	final := raw.Request.URL.Path
	for _, marker := range c.expiredPathMarkers {
		if strings.HasPrefix(final, marker) {
			return true
		}
	}
	return false
}

// GetDocument fetches a path and parses the response body as html.
func (c *Client) GetDocument(ctx context.Context, path string) (*goquery.Document, error) {
	res, err := c.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
}

func (c *Client) LoginEmailPassword(ctx context.Context, email, password string) error {
	ctx, span := tracer.Start(ctx, "client:LoginEmailPassword")
	defer span.End()

	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()

	err := c.login(ctx, Credentials{Email: email, Password: password})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login failed")
		return err
	}

	c.creds = Credentials{Email: email, Password: password}
	c.loggedIn = true
	c.generation++
	return nil
}

// EnsureValid re-authenticates with the stored credentials if the session
// has been detected as expired. At most one refresh is in flight at a time;
// a caller that discovers expiry while another refresh is pending blocks on
// it rather than issuing a duplicate login.
func (c *Client) EnsureValid(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "client:EnsureValid")
	defer span.End()

	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()

	if c.loggedIn {
		return nil
	}
	if c.creds == (Credentials{}) {
		span.SetStatus(codes.Error, "no stored credentials")
		return LoginFailed
	}

	err := c.login(ctx, c.creds)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "session refresh failed")
		return err
	}
	c.loggedIn = true
	c.generation++
	return nil
}

func (c *Client) session() int {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()
	return c.generation
}

// invalidate marks the session dead, unless the expiry signal came from a
// request issued under an older generation. that signal is stale, another
// caller already refreshed the session it belongs to.
func (c *Client) invalidate(gen int) {
	c.sessionMu.Lock()
	if gen == c.generation {
		c.loggedIn = false
	}
	c.sessionMu.Unlock()
}

// login performs the form flow: fetch the login page, lift the csrf token
// out of the form, post credentials, then verify against the account page.
// callers must hold sessionMu.
func (c *Client) login(ctx context.Context, creds Credentials) error {
	res, err := c.Http.R().
		SetContext(ctx).
		Get(LoginPath)
	if err != nil {
		return err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return err
	}

	token := doc.Find("form[action='/login'] input[name=authenticity_token]").AttrOr("value", "")
	if token == "" {
		return LoginShapeChanged
	}

	_, err = c.Http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"utf8":                     "✓",
			"authenticity_token":       token,
			"session[email]":           creds.Email,
			"session[password]":        creds.Password,
			"session[remember_me]":     "0",
			"session[remember_me_sso]": "0",
			"commit":                   "Log In",
		}).
		Post(LoginPath)
	if err != nil {
		return err
	}

	res, err = c.Http.R().
		SetContext(ctx).
		Get(AccountPath)
	if err != nil {
		return err
	}
	if c.redirectedToLogin(res) {
		return LoginFailed
	}
	doc, err = goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return err
	}
	if doc.Find("form[action='/login']").Length() > 0 {
		return LoginFailed
	}

	return nil
}
