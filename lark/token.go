package lark

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// expiryMargin is subtracted from the reported token lifetime so a
// token is refreshed before the platform actually rejects it
const expiryMargin = 5 * time.Minute

/* tokenSource caches the tenant access token across concurrent
 * pipeline runs. The mutex is held over the refresh call itself, so
 * concurrent expiry observations collapse into a single upstream
 * refresh and readers never see a torn value.
 */
type tokenSource struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
	fetch     func(ctx context.Context) (string, time.Duration, error)
}

func newTokenSource(fetch func(ctx context.Context) (string, time.Duration, error)) *tokenSource {
	return &tokenSource{fetch: fetch}
}

// Token returns the cached token, refreshing it when expired
func (t *tokenSource) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token != "" && time.Now().Before(t.expiresAt) {
		return t.token, nil
	}

	token, lifetime, err := t.fetch(ctx)
	if err != nil {
		return "", fmt.Errorf("refreshing tenant access token: %w", err)
	}

	t.token = token
	t.expiresAt = time.Now().Add(lifetime - expiryMargin)
	return token, nil
}
