/**
 * @description
 * The session lifecycle manager: token-driven auth checks, periodic
 * access-token refresh, and orderly logout. This is the Go rendering of
 * the client session layer; the push transport and rendering sit behind
 * the Navigator and Notifier interfaces.
 *
 * The auth-check cycle, run on every token change and on a fixed timer:
 * - no refresh token and the route is not auth-exempt: redirect to login
 * - refresh token expired: logout, then redirect to login
 * - first check of a session: eagerly refresh the access token
 * - otherwise refresh only once the access token has expired
 * - already authenticated on the login route: redirect away from it
 * - any unexpected refresh error: forced logout
 *
 * @dependencies
 * - github.com/golang-jwt/jwt/v5: expiry inspection of opaque tokens.
 *   Tokens are issued elsewhere; this layer only reads the exp claim.
 */

package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RouteLogin is where unauthenticated sessions are sent.
const RouteLogin = "/login"

// RouteHome is where authenticated sessions land when they have no
// better place to be (e.g. sitting on the login route with valid tokens).
const RouteHome = "/"

// RefreshInterval is the fixed background refresh cadence.
const RefreshInterval = 5 * time.Minute

// Routes reachable without credentials.
var authExemptRoutes = map[string]struct{}{
	RouteLogin:  {},
	"/sign-up":  {},
	"/recover":  {},
	"/about":    {},
	"/security": {},
}

// AuthExemptRoute reports whether a route is reachable logged out.
func AuthExemptRoute(route string) bool {
	_, ok := authExemptRoutes[route]
	return ok
}

// TokenPair holds the two session credentials.
type TokenPair struct {
	Access  string
	Refresh string
}

// TokenStore is where the current credentials live.
type TokenStore interface {
	Tokens() TokenPair
	SetTokens(TokenPair)
}

// Refresher exchanges a refresh token for a fresh pair. Must be safe to
// call concurrently; the timer and the on-token-change check can race.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (TokenPair, error)
}

// Navigator performs client-side route changes.
type Navigator interface {
	Redirect(route string)
}

// RemoteLogout terminates the session server-side.
type RemoteLogout interface {
	Logout(ctx context.Context, refreshToken string) error
}

// Clock abstracts time for the expiry checks.
type Clock func() time.Time

// Manager drives the session lifecycle.
type Manager struct {
	tokens   TokenStore
	refresh  Refresher
	nav      Navigator
	remote   RemoteLogout
	registry *Registry
	now      Clock

	mu          sync.Mutex
	checkedOnce bool
}

// NewManager wires the session manager. A nil clock defaults to
// time.Now.
func NewManager(tokens TokenStore, refresh Refresher, nav Navigator, remote RemoteLogout, registry *Registry, now Clock) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{
		tokens:   tokens,
		refresh:  refresh,
		nav:      nav,
		remote:   remote,
		registry: registry,
		now:      now,
	}
}

// TokenExpired reports whether a JWT's exp claim is in the past relative
// to the given time. Malformed tokens and tokens without an exp claim
// count as expired; a credential that cannot be read cannot be trusted.
func TokenExpired(token string, at time.Time) bool {
	if token == "" {
		return true
	}
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return true
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return !exp.Time.After(at)
}

// Check runs one pass of the auth-check cycle for the current route.
// Call it after every token change and from the background timer.
func (m *Manager) Check(ctx context.Context, currentRoute string) {
	pair := m.tokens.Tokens()
	now := m.now()

	if pair.Refresh == "" {
		if !AuthExemptRoute(currentRoute) {
			m.nav.Redirect(RouteLogin)
		}
		return
	}

	if TokenExpired(pair.Refresh, now) {
		log.Printf("level=info component=session msg=\"refresh token expired; logging out\"")
		m.Logout(ctx)
		m.nav.Redirect(RouteLogin)
		return
	}

	m.mu.Lock()
	firstCheck := !m.checkedOnce
	m.checkedOnce = true
	m.mu.Unlock()

	if firstCheck || TokenExpired(pair.Access, now) {
		if err := m.doRefresh(ctx, pair.Refresh); err != nil {
			log.Printf("level=error component=session msg=\"refresh failed; forcing logout\" err=%v", err)
			m.Logout(ctx)
			m.nav.Redirect(RouteLogin)
			return
		}
	}

	if currentRoute == RouteLogin {
		m.nav.Redirect(RouteHome)
	}
}

func (m *Manager) doRefresh(ctx context.Context, refreshToken string) error {
	pair, err := m.refresh.Refresh(ctx, refreshToken)
	if err != nil {
		return err
	}
	if pair.Access == "" {
		return errors.New("refresh returned no access token")
	}
	m.tokens.SetTokens(pair)
	return nil
}

// Logout clears every registered store in registration order, then
// terminates the session remotely and drops the local credentials.
// Idempotent: a second call finds the stores already empty and no
// credentials to revoke.
func (m *Manager) Logout(ctx context.Context) {
	m.registry.Clear()

	pair := m.tokens.Tokens()
	if pair.Refresh != "" {
		if err := m.remote.Logout(ctx, pair.Refresh); err != nil {
			// Local state is already gone; the server token will age out.
			log.Printf("level=warn component=session msg=\"remote logout failed\" err=%v", err)
		}
	}
	m.tokens.SetTokens(TokenPair{})

	m.mu.Lock()
	m.checkedOnce = false
	m.mu.Unlock()
	log.Printf("level=info component=session msg=\"logged out\"")
}

// StartBackgroundRefresh refreshes the access token every RefreshInterval
// while both credentials are present and the refresh token is unexpired.
// Returns a stop function. The refresh endpoint tolerates the race
// between this timer and an on-token-change Check.
func (m *Manager) StartBackgroundRefresh(ctx context.Context) (stop func()) {
	ticker := time.NewTicker(RefreshInterval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				pair := m.tokens.Tokens()
				if pair.Access == "" || pair.Refresh == "" || TokenExpired(pair.Refresh, m.now()) {
					continue
				}
				if err := m.doRefresh(ctx, pair.Refresh); err != nil {
					log.Printf("level=warn component=session msg=\"background refresh failed\" err=%v", err)
				}
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}
