package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/TvogInc/ConnectHub/pkg/domain"
)

// ErrNotSignedIn is returned by operations that need a current user.
var ErrNotSignedIn = errors.New("not signed in")

// ErrTokenExpired indicates the access token's exp claim has passed.
var ErrTokenExpired = errors.New("access token expired")

// Context holds the authenticated-user state every other component gates
// on. Login and Logout are the only writers; consumers read Current and
// suspend all polling while it is nil.
type Context struct {
	mu      sync.RWMutex
	user    *domain.AuthUser
	token   string
	loading bool
	subs    map[int]func(*domain.AuthUser)
	nextSub int
}

// New returns a Context in the loading state, before initial session
// resolution has happened.
func New() *Context {
	return &Context{
		loading: true,
		subs:    make(map[int]func(*domain.AuthUser)),
	}
}

// Resolve performs the one-time initial session restoration from a
// stored access token. An empty token resolves to signed-out. The
// loading flag drops exactly once, whether or not a user was restored.
func (c *Context) Resolve(accessToken string) error {
	defer func() {
		c.mu.Lock()
		c.loading = false
		c.mu.Unlock()
	}()
	if strings.TrimSpace(accessToken) == "" {
		return nil
	}
	return c.Login(accessToken)
}

// Login derives the authenticated user from the store-issued access
// token and publishes it to subscribers. The token's signature is the
// store's to verify; the client only reads claims and refuses a token
// that is already expired.
func (c *Context) Login(accessToken string) error {
	user, err := userFromToken(accessToken)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.user = &user
	c.token = accessToken
	subs := c.snapshotSubs()
	c.mu.Unlock()
	notify(subs, &user)
	return nil
}

// Logout clears the session and publishes the signed-out state.
func (c *Context) Logout() {
	c.mu.Lock()
	c.user = nil
	c.token = ""
	subs := c.snapshotSubs()
	c.mu.Unlock()
	notify(subs, nil)
}

// Current returns a copy of the authenticated user, or nil.
func (c *Context) Current() *domain.AuthUser {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.user == nil {
		return nil
	}
	user := *c.user
	return &user
}

// Loading reports whether initial session resolution is still pending.
func (c *Context) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// Token returns the bearer token for outbound store requests, or "".
func (c *Context) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Subscribe registers fn to be called on every login/logout transition.
// The returned function unsubscribes.
func (c *Context) Subscribe(fn func(*domain.AuthUser)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

func (c *Context) snapshotSubs() []func(*domain.AuthUser) {
	subs := make([]func(*domain.AuthUser), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	return subs
}

func notify(subs []func(*domain.AuthUser), user *domain.AuthUser) {
	for _, fn := range subs {
		fn(user)
	}
}

func userFromToken(accessToken string) (domain.AuthUser, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return domain.AuthUser{}, fmt.Errorf("parse access token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return domain.AuthUser{}, fmt.Errorf("read exp claim: %w", err)
	}
	if exp != nil && exp.Before(time.Now()) {
		return domain.AuthUser{}, ErrTokenExpired
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.AuthUser{}, errors.New("access token missing subject")
	}
	email, _ := claims["email"].(string)
	user := domain.AuthUser{ID: sub, Email: email}
	if meta, ok := claims["user_metadata"].(map[string]any); ok {
		user.Username, _ = meta["username"].(string)
		user.Avatar, _ = meta["avatar_url"].(string)
	}
	if user.Username == "" {
		user.Username = usernameFromEmail(email)
	}
	return user, nil
}

func usernameFromEmail(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
