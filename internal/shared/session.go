package shared

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Principal identifies the calling subsystem of an authenticated request.
type Principal struct {
	AuxiliaryID int64  `json:"auxiliary_id"`
	Username    string `json:"username"`
}

// SessionStore resolves bearer tokens issued by the authentication service
// into principals stored in Redis. It never writes sessions.
type SessionStore struct {
	client *redis.Client
	prefix string
}

// NewSessionStore constructs a SessionStore reading keys "<prefix>:<token>".
func NewSessionStore(client *redis.Client, prefix string) *SessionStore {
	if prefix == "" {
		prefix = "session"
	}
	return &SessionStore{client: client, prefix: prefix}
}

// Resolve loads the principal bound to the request's bearer token.
func (s *SessionStore) Resolve(ctx context.Context, r *http.Request) (*Principal, error) {
	token := bearerToken(r)
	if token == "" {
		return nil, ErrUnauthenticated
	}
	payload, err := s.client.Get(ctx, s.redisKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("shared: load session: %w", err)
	}
	var p Principal
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("shared: decode session: %w", err)
	}
	if p.AuxiliaryID <= 0 {
		return nil, ErrUnauthenticated
	}
	return &p, nil
}

func (s *SessionStore) redisKey(token string) string {
	return s.prefix + ":" + token
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
