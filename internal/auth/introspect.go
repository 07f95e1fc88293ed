package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/holteng/minne/internal/apperr"
)

// Introspector is a Provider that resolves bearer tokens through an
// OAuth2-style token introspection endpoint. Successful lookups are
// cached for a short TTL so chat streams do not hammer the endpoint.
type Introspector struct {
	client   *resty.Client
	endpoint string
	ttl      time.Duration

	mu    sync.Mutex
	cache map[string]cachedIdentity
}

type cachedIdentity struct {
	owner   string
	expires time.Time
}

type introspectResponse struct {
	Active  bool   `json:"active"`
	Subject string `json:"sub"`
}

// NewIntrospector creates a Provider backed by the given endpoint.
func NewIntrospector(endpoint string, ttl time.Duration) *Introspector {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Introspector{
		client:   resty.New().SetTimeout(5 * time.Second),
		endpoint: endpoint,
		ttl:      ttl,
		cache:    make(map[string]cachedIdentity),
	}
}

func (i *Introspector) Resolve(r *http.Request) (string, error) {
	token := bearerToken(r)
	if token == "" {
		return "", apperr.ErrUnauthorized
	}

	i.mu.Lock()
	if c, ok := i.cache[token]; ok && time.Now().Before(c.expires) {
		i.mu.Unlock()
		return c.owner, nil
	}
	i.mu.Unlock()

	var body introspectResponse
	resp, err := i.client.R().
		SetContext(r.Context()).
		SetFormData(map[string]string{"token": token}).
		SetResult(&body).
		Post(i.endpoint)
	if err != nil {
		return "", fmt.Errorf("auth: introspect: %w", err)
	}
	if resp.StatusCode() != http.StatusOK || !body.Active || body.Subject == "" {
		slog.Debug("token introspection rejected", slog.Int("status", resp.StatusCode()))
		return "", apperr.ErrUnauthorized
	}

	i.mu.Lock()
	i.cache[token] = cachedIdentity{owner: body.Subject, expires: time.Now().Add(i.ttl)}
	i.mu.Unlock()

	return body.Subject, nil
}
