package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/tcg-hq/followers/internal/config"
	"github.com/tcg-hq/followers/internal/domain"
	"github.com/tcg-hq/followers/internal/logger"
	"github.com/tcg-hq/followers/internal/present"
	"github.com/tcg-hq/followers/internal/querycache"
	"github.com/tcg-hq/followers/internal/toggle"
	"github.com/tcg-hq/followers/pkg/cookies"
	"github.com/tcg-hq/followers/pkg/followapi"
	"github.com/tcg-hq/followers/pkg/siteconfig"
)

// userIDHeader identifies the viewer when no proxy sets it from the session.
const userIDHeader = "Mattermost-User-Id"

// Client resolves where the follow endpoint lives and mounts one Session per
// actor. It holds no relationship state itself.
type Client struct {
	siteURL   string
	transport toggle.Transport
	tokens    cookies.TokenSource
	log       logger.Logger
}

// NewClient builds a client runtime from config.
func NewClient(cfg *config.Config, log logger.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)

	host, err := siteconfig.Load(cfg.HostConfigFile)
	if err != nil {
		return nil, fmt.Errorf("load host config: %w", err)
	}
	if strings.TrimSpace(host.SiteURL()) == "" && cfg.SiteURL != "" {
		host = siteconfig.WithSiteURL(cfg.SiteURL)
	}
	siteURL := siteconfig.ResolveBaseURL(host)

	serviceURL := siteconfig.ServiceURL(siteURL, cfg.PluginID)
	opts := []followapi.Option{
		followapi.WithTimeout(cfg.RequestTimeout),
		followapi.WithHeader(userIDHeader, cfg.ViewerID),
	}
	var cookieSrc cookies.Source
	cookieMode := "configured"
	if strings.TrimSpace(cfg.CookieHeader) == "" && strings.TrimSpace(cfg.CookieFile) == "" {
		// Without configured cookies the endpoint's own Set-Cookie responses
		// (MMCSRF included) are kept in a jar shared with the transport.
		jar, err := cookies.NewJar(serviceURL + "/")
		if err != nil {
			return nil, fmt.Errorf("cookie jar: %w", err)
		}
		cookieSrc, cookieMode = jar, "jar"
		opts = append(opts, followapi.WithCookieJar(jar.Jar))
	} else {
		cookieSrc = cookies.NewSource(cfg.CookieHeader, cfg.CookieFile)
		opts = append(opts, followapi.WithCookies(cookieSrc))
	}
	api := followapi.New(serviceURL, opts...)
	log.InfoObj("follow client configured", "client_config", map[string]any{
		"site_url":           siteURL,
		"endpoint":           api.Endpoint(),
		"request_timeout_ms": cfg.RequestTimeout.Milliseconds(),
		"cookie_file":        cfg.CookieFile,
		"cookie_mode":        cookieMode,
		"viewer_id":          cfg.ViewerID,
	})

	return &Client{
		siteURL:   siteURL,
		transport: api,
		tokens:    cookies.CSRF{Source: cookieSrc},
		log:       log,
	}, nil
}

// SiteURL is the resolved base URL.
func (c *Client) SiteURL() string { return c.siteURL }

// Mount starts a session for actorID with an empty cache.
func (c *Client) Mount(actorID string) *Session {
	cache := querycache.New(querycache.FollowedUsersKey)
	return &Session{
		actorID: actorID,
		cache:   cache,
		ctrl:    toggle.New(actorID, cache, c.transport, c.tokens, c.log),
		log:     c.log,
	}
}

// Session is one mounted follow button: its cache lives exactly as long as the session.
type Session struct {
	actorID string
	cache   *querycache.Cache
	ctrl    *toggle.Controller
	log     logger.Logger
}

func (s *Session) ActorID() string { return s.actorID }

// Load fetches the followed ids on first use.
func (s *Session) Load(ctx context.Context) toggle.State { return s.ctrl.Load(ctx) }

// State is the controller state without triggering a fetch.
func (s *Session) State() toggle.State { return s.ctrl.State() }

// Followed returns a copy of the cached set, nil until loaded.
func (s *Session) Followed() domain.RelationshipSet { return s.cache.Get().Set }

// View renders the current state; clicking the button toggles.
func (s *Session) View() present.View {
	return present.Render(s.ctrl.State(), s.click)
}

// Click performs the offered action and reports its outcome.
func (s *Session) Click(ctx context.Context) (domain.MutationOutcome, error) {
	return s.ctrl.Toggle(ctx)
}

// Follow follows an arbitrary target on behalf of the actor.
func (s *Session) Follow(ctx context.Context, targetID string) (domain.MutationOutcome, error) {
	return s.ctrl.SubmitFollow(ctx, targetID)
}

// Unfollow unfollows an arbitrary target on behalf of the actor.
func (s *Session) Unfollow(ctx context.Context, targetID string) (domain.MutationOutcome, error) {
	return s.ctrl.SubmitUnfollow(ctx, targetID)
}

// Unmount discards the session cache.
func (s *Session) Unmount() {
	s.cache.Discard()
	s.log.DebugObj("follow session unmounted", "actor_id", s.actorID)
}

func (s *Session) click(ctx context.Context) error {
	out, err := s.ctrl.Toggle(ctx)
	if err != nil {
		return err
	}
	if !out.OK {
		return fmt.Errorf("follow toggle: %s", out.Reason)
	}
	return nil
}
