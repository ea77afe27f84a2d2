package clientbuilder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/IgKnight-client/internal/adapter/framepresenter"
	"github.com/park285/IgKnight-client/internal/config"
	"github.com/park285/IgKnight-client/internal/gameapi"
	"github.com/park285/IgKnight-client/internal/gameview"
	"github.com/park285/IgKnight-client/internal/identity"
	"github.com/park285/IgKnight-client/internal/livefeed"
	"github.com/park285/IgKnight-client/internal/msgcat"
	"github.com/park285/IgKnight-client/internal/render"
	"github.com/park285/IgKnight-client/internal/session"
)

type Deps struct {
	Config    *config.AppConfig
	User      identity.User
	API       *gameapi.Client
	Feed      *livefeed.Manager
	Cache     session.Cache
	Catalog   *msgcat.Catalog
	Formatter *framepresenter.Formatter
	Renderer  *render.Renderer
	Logger    *zap.Logger

	redis *session.RedisCache
}

func New(cfg *config.AppConfig, logger *zap.Logger) (*Deps, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	// Identity: unknown user is a spectator, not an error
	user, err := identity.Resolve(cfg.UserID, cfg.Token)
	if err != nil {
		if !errors.Is(err, identity.ErrUnknownUser) {
			logger.Warn("identity_unresolved", zap.Error(err))
		}
		user = identity.User{}
	}

	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	token := cfg.Token
	api := gameapi.NewClient(cfg.APIURL,
		gameapi.WithTimeout(cfg.HTTPTimeout),
		gameapi.WithRetry(cfg.HTTPRetry),
		gameapi.WithTokenProvider(func() string { return token }),
		gameapi.WithLogger(logger.Named("gameapi")),
	)

	feedCfg := livefeed.DefaultConfig()
	feedCfg.ReconnectDelay = cfg.ReconnectDelay
	feedCfg.Heartbeat = cfg.Heartbeat
	feed := livefeed.NewManager(livefeed.WSTransport{URL: cfg.WSURL},
		livefeed.WithConfig(feedCfg),
		livefeed.WithLogger(logger.Named("livefeed")),
	)

	d := &Deps{
		Config:    cfg,
		User:      user,
		API:       api,
		Feed:      feed,
		Catalog:   cat,
		Formatter: framepresenter.NewFormatter(cat),
		Renderer:  render.New(),
		Logger:    logger,
	}

	// Cache (Redis optional)
	if strings.TrimSpace(cfg.RedisURL) != "" {
		rc, err := session.NewRedisCache(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("init cache: %w", err)
		}
		d.redis = rc
		d.Cache = rc
	} else {
		d.Cache = session.NewMemoryCache()
	}
	return d, nil
}

// ViewConfig maps application settings onto one session view.
func (d *Deps) ViewConfig(sessionID string) gameview.Config {
	return gameview.Config{
		SessionID:      sessionID,
		User:           d.User,
		Credential:     d.Config.Token,
		Tick:           d.Config.ClockTick,
		EgressMode:     d.Config.EgressMode,
		AutoJoin:       d.Config.AutoJoin,
		AbandonWaiting: d.Config.AbandonWaiting,
		RequestTimeout: d.Config.HTTPTimeout,
	}
}

func (d *Deps) NewView(sessionID string) (*gameview.View, error) {
	return gameview.New(d.ViewConfig(sessionID), gameview.Deps{
		API:     d.API,
		Feed:    d.Feed,
		Cache:   d.Cache,
		Catalog: d.Catalog,
		Logger:  d.Logger.Named("gameview"),
	})
}

// NewSnapshotView builds a REST-only view that never joins or abandons.
func (d *Deps) NewSnapshotView(sessionID string) (*gameview.View, error) {
	cfg := d.ViewConfig(sessionID)
	cfg.AutoJoin = false
	cfg.AbandonWaiting = false
	cfg.EgressMode = "http"
	return gameview.New(cfg, gameview.Deps{
		API:     d.API,
		Cache:   d.Cache,
		Catalog: d.Catalog,
		Logger:  d.Logger.Named("snapshot"),
	})
}

func (d *Deps) Presenter(sendText func(string) error, sendImage func([]byte) error) *framepresenter.Presenter {
	return framepresenter.NewPresenter(d.Formatter, d.Renderer, sendText, sendImage)
}

func (d *Deps) Close(ctx context.Context) error {
	var errs []error
	if d.Feed != nil {
		errs = append(errs, d.Feed.Close(ctx))
	}
	if d.redis != nil {
		errs = append(errs, d.redis.Close())
	}
	return errors.Join(errs...)
}
