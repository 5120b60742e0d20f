package core

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"gradescope-backend/lib/testutil"

	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "instructor@example.com"
	testPassword = "hunter2"
	testToken    = "csrf-token-1"
)

// fixture mimics the source's session behavior: a csrf-protected login
// form, a cookie-backed session and login redirects once it dies.
type fixture struct {
	mu         sync.Mutex
	sessions   map[string]bool
	nextId     int
	loginCount int
	hideToken  bool
	flaky      int
}

func newFixture() *fixture {
	return &fixture{sessions: map[string]bool{}}
}

func (f *fixture) authenticated(r *http.Request) bool {
	cookie, err := r.Cookie("session")
	if err != nil {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[cookie.Value]
}

func (f *fixture) expireAll() {
	f.mu.Lock()
	f.sessions = map[string]bool{}
	f.mu.Unlock()
}

func (f *fixture) handler() http.Handler {
	mux := testutil.NewMux()

	mux.HandleFunc("GET /login", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		hideToken := f.hideToken
		f.mu.Unlock()

		tokenInput := fmt.Sprintf(`<input type="hidden" name="authenticity_token" value="%s" />`, testToken)
		if hideToken {
			tokenInput = ""
		}
		fmt.Fprintf(w, `<html><body>
			<form action="/login" method="post">%s
				<input type="email" name="session[email]" />
				<input type="password" name="session[password]" />
			</form>
		</body></html>`, tokenInput)
	})

	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		ok := r.PostFormValue("authenticity_token") == testToken &&
			r.PostFormValue("session[email]") == testEmail &&
			r.PostFormValue("session[password]") == testPassword &&
			r.PostFormValue("utf8") == "✓"
		if !ok {
			http.Redirect(w, r, LoginPath, http.StatusFound)
			return
		}

		f.mu.Lock()
		f.nextId++
		f.loginCount++
		id := fmt.Sprintf("session-%d", f.nextId)
		f.sessions[id] = true
		f.mu.Unlock()

		http.SetCookie(w, &http.Cookie{Name: "session", Value: id, Path: "/"})
		http.Redirect(w, r, AccountPath, http.StatusFound)
	})

	mux.HandleFunc("GET /account", func(w http.ResponseWriter, r *http.Request) {
		if !f.authenticated(r) {
			http.Redirect(w, r, LoginPath, http.StatusFound)
			return
		}
		fmt.Fprint(w, `<html><body><h1 class="pageHeading">Your Courses</h1></body></html>`)
	})

	mux.HandleFunc("GET /courses/1001/assignments", func(w http.ResponseWriter, r *http.Request) {
		if !f.authenticated(r) {
			http.Redirect(w, r, LoginPath, http.StatusFound)
			return
		}
		fmt.Fprint(w, `<html><body>ok</body></html>`)
	})

	mux.HandleFunc("GET /flaky", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		remaining := f.flaky
		if remaining > 0 {
			f.flaky--
		}
		f.mu.Unlock()
		if remaining > 0 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `<html><body>recovered</body></html>`)
	})

	mux.HandleFunc("GET /limited", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	return mux
}

func setupClient(t testing.TB, server *httptest.Server, opts ClientOptions) *Client {
	opts.BaseUrl = server.URL
	if opts.RequestDelay == 0 {
		opts.RequestDelay = time.Millisecond
	}
	client, err := NewClient(context.Background(), opts)
	require.NoError(t, err)
	return client
}

func TestLoginEmailPassword(t *testing.T) {
	f := newFixture()
	server := httptest.NewServer(f.handler())
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	client := setupClient(t, server, ClientOptions{})

	err := client.LoginEmailPassword(ctx, testEmail, "wrong-password")
	require.ErrorIs(t, err, LoginFailed)

	err = client.LoginEmailPassword(ctx, testEmail, testPassword)
	require.NoError(t, err)

	res, err := client.Get(ctx, AccountPath)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode())
}

func TestLoginShapeChanged(t *testing.T) {
	f := newFixture()
	f.hideToken = true
	server := httptest.NewServer(f.handler())
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	client := setupClient(t, server, ClientOptions{})
	err := client.LoginEmailPassword(ctx, testEmail, testPassword)
	require.ErrorIs(t, err, LoginShapeChanged)
}

func TestSessionExpiry(t *testing.T) {
	f := newFixture()
	server := httptest.NewServer(f.handler())
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	client := setupClient(t, server, ClientOptions{})
	err := client.LoginEmailPassword(ctx, testEmail, testPassword)
	require.NoError(t, err)

	_, err = client.Get(ctx, "/courses/1001/assignments")
	require.NoError(t, err)

	f.expireAll()
	_, err = client.Get(ctx, "/courses/1001/assignments")
	require.ErrorIs(t, err, SessionExpired)

	err = client.EnsureValid(ctx)
	require.NoError(t, err)

	_, err = client.Get(ctx, "/courses/1001/assignments")
	require.NoError(t, err)
}

func TestStaleExpirySignalAfterRefresh(t *testing.T) {
	f := newFixture()
	server := httptest.NewServer(f.handler())
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	client := setupClient(t, server, ClientOptions{})
	err := client.LoginEmailPassword(ctx, testEmail, testPassword)
	require.NoError(t, err)

	gen := client.session()
	f.expireAll()
	_, err = client.Get(ctx, "/courses/1001/assignments")
	require.ErrorIs(t, err, SessionExpired)

	err = client.EnsureValid(ctx)
	require.NoError(t, err)

	// a response that was in flight under the old session reports expiry
	// after the refresh already completed. it must not take down the
	// fresh session or trigger another login.
	client.invalidate(gen)
	err = client.EnsureValid(ctx)
	require.NoError(t, err)

	_, err = client.Get(ctx, "/courses/1001/assignments")
	require.NoError(t, err)

	f.mu.Lock()
	logins := f.loginCount
	f.mu.Unlock()
	require.Equal(t, 2, logins)
}

func TestEnsureValidWithoutCredentials(t *testing.T) {
	f := newFixture()
	server := httptest.NewServer(f.handler())
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	client := setupClient(t, server, ClientOptions{})
	err := client.EnsureValid(ctx)
	require.ErrorIs(t, err, LoginFailed)
}

func TestStatusError(t *testing.T) {
	f := newFixture()
	server := httptest.NewServer(f.handler())
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	client := setupClient(t, server, ClientOptions{MaxAttempts: 1})
	_, err := client.Get(ctx, "/definitely-not-a-page")

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusNotFound, statusErr.Code)
}

func TestRateLimited(t *testing.T) {
	f := newFixture()
	server := httptest.NewServer(f.handler())
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	client := setupClient(t, server, ClientOptions{MaxAttempts: 1})
	_, err := client.Get(ctx, "/limited")
	require.ErrorIs(t, err, RateLimited)
}

func TestRetryTransientFailures(t *testing.T) {
	f := newFixture()
	f.flaky = 2
	server := httptest.NewServer(f.handler())
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	client := setupClient(t, server, ClientOptions{MaxAttempts: 3})
	res, err := client.Get(ctx, "/flaky")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode())
}

func TestBoundedAttempts(t *testing.T) {
	f := newFixture()
	f.flaky = 5
	server := httptest.NewServer(f.handler())
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	client := setupClient(t, server, ClientOptions{MaxAttempts: 2})
	_, err := client.Get(ctx, "/flaky")

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusInternalServerError, statusErr.Code)
}

func TestRequestPacing(t *testing.T) {
	f := newFixture()
	server := httptest.NewServer(f.handler())
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	delay := time.Millisecond * 50
	client := setupClient(t, server, ClientOptions{RequestDelay: delay})
	err := client.LoginEmailPassword(ctx, testEmail, testPassword)
	require.NoError(t, err)

	t1 := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.Get(ctx, AccountPath)
		require.NoError(t, err)
	}
	elapsed := time.Since(t1)
	require.GreaterOrEqual(t, elapsed, delay*2)
}

func TestCancelledContext(t *testing.T) {
	f := newFixture()
	server := httptest.NewServer(f.handler())
	defer server.Close()

	client := setupClient(t, server, ClientOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Get(ctx, AccountPath)
	require.ErrorIs(t, err, context.Canceled)
}
