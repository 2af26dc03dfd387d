// Package services contains the application services of the Memoria client.
// This file defines the API service: cached reads for list screens,
// authenticated one-off requests and explicit media deletion.
package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/dmitrijs2005/memoria/internal/client/cache"
	"github.com/dmitrijs2005/memoria/internal/client/client"
	"github.com/dmitrijs2005/memoria/internal/client/models"
	"github.com/dmitrijs2005/memoria/internal/common"
	"github.com/dmitrijs2005/memoria/internal/logging"
	"golang.org/x/sync/singleflight"
)

// TokenSource supplies the bearer token for requests.
type TokenSource interface {
	CurrentToken(ctx context.Context) (string, bool)
}

// APIService defines the request operations used outside the upload flow.
//
// Contract:
//   - GetCached: serve a GET from the response cache while fresh, otherwise
//     fetch it once (concurrent callers share the request) and cache successes.
//   - Send: issue an authenticated request without caching.
//   - Invalidate: drop the cached response of a GET.
//   - DeleteMedia: delete an uploaded object on the server.
//
// A missing session token fails with common.ErrAuthRequired before anything
// is sent.
type APIService interface {
	GetCached(ctx context.Context, path string, query url.Values) (models.Envelope, error)
	Send(ctx context.Context, req client.Request) (models.Envelope, error)
	Invalidate(ctx context.Context, path string, query url.Values)
	DeleteMedia(ctx context.Context, id string) error
}

type apiService struct {
	sender  client.Sender
	session TokenSource
	cache   *cache.Cache[models.Envelope]
	ttl     time.Duration
	group   singleflight.Group
	log     logging.Logger
}

// NewAPIService binds the service to a transport, a session and a response
// cache. Responses are cached for ttl; a non-positive ttl disables caching.
func NewAPIService(sender client.Sender, session TokenSource, c *cache.Cache[models.Envelope], ttl time.Duration, log logging.Logger) APIService {
	if c == nil {
		c = cache.New[models.Envelope]()
	}
	if log == nil {
		log = logging.Nop()
	}
	return &apiService{sender: sender, session: session, cache: c, ttl: ttl, log: log}
}

func (s *apiService) token(ctx context.Context) (string, error) {
	tok, ok := s.session.CurrentToken(ctx)
	if !ok {
		return "", fmt.Errorf("%w: sign in first", common.ErrAuthRequired)
	}
	return tok, nil
}

// cacheKey scopes entries to the token so that a different login never sees
// another user's responses.
func cacheKey(path string, query url.Values, token string) string {
	return cache.Key(http.MethodGet, path, query.Encode(), token)
}

func (s *apiService) GetCached(ctx context.Context, path string, query url.Values) (models.Envelope, error) {
	tok, err := s.token(ctx)
	if err != nil {
		return models.Envelope{}, err
	}

	key := cacheKey(path, query, tok)
	if env, ok := s.cache.Get(ctx, key); ok {
		s.log.Debug(ctx, "cache hit", "path", path)
		return env, nil
	}

	v, err, shared := s.group.Do(key, func() (any, error) {
		if env, ok := s.cache.Get(ctx, key); ok {
			return env, nil
		}
		env, err := s.sender.Send(ctx, client.Request{
			Method: http.MethodGet,
			Path:   path,
			Query:  query,
			Token:  tok,
		})
		if err != nil {
			return models.Envelope{}, err
		}
		if env.OK() {
			s.cache.Put(ctx, key, env, s.ttl)
		}
		return env, nil
	})
	if err != nil {
		return models.Envelope{}, err
	}
	if shared {
		s.log.Debug(ctx, "shared in-flight request", "path", path)
	}
	return v.(models.Envelope), nil
}

func (s *apiService) Send(ctx context.Context, req client.Request) (models.Envelope, error) {
	if req.Token == "" {
		tok, err := s.token(ctx)
		if err != nil {
			return models.Envelope{}, err
		}
		req.Token = tok
	}
	return s.sender.Send(ctx, req)
}

func (s *apiService) Invalidate(ctx context.Context, path string, query url.Values) {
	tok, ok := s.session.CurrentToken(ctx)
	if !ok {
		return
	}
	s.cache.Delete(ctx, cacheKey(path, query, tok))
}

func (s *apiService) DeleteMedia(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: media id is required", common.ErrValidation)
	}
	env, err := s.Send(ctx, client.Request{
		Method: http.MethodDelete,
		Path:   common.MediaPath + "/" + url.PathEscape(id),
	})
	if err != nil {
		return err
	}
	if !env.OK() {
		return fmt.Errorf("%w: %s", common.ErrServer, env.Message)
	}
	return nil
}
