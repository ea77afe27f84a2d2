package config

import (
	"errors"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	APIURL string
	WSURL  string

	Token  string
	UserID string

	RedisURL    string
	MessagesDir string

	ReconnectDelay time.Duration
	Heartbeat      time.Duration
	ClockTick      time.Duration
	HTTPTimeout    time.Duration
	HTTPRetry      int

	EgressMode     string
	AutoJoin       bool
	AbandonWaiting bool
}

// Load reads IGK_* variables. A .env file in the working directory is
// applied first without overriding variables that are already set.
func Load() (*AppConfig, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, err
		}
	}

	cfg := &AppConfig{
		ReconnectDelay: 5 * time.Second,
		Heartbeat:      4 * time.Second,
		ClockTick:      500 * time.Millisecond,
		HTTPTimeout:    10 * time.Second,
		HTTPRetry:      3,
		EgressMode:     "auto",
		AutoJoin:       true,
		AbandonWaiting: true,
	}

	cfg.APIURL = strings.TrimRight(strings.TrimSpace(os.Getenv("IGK_API_URL")), "/")
	cfg.WSURL = strings.TrimSpace(os.Getenv("IGK_WS_URL"))
	cfg.Token = strings.TrimSpace(os.Getenv("IGK_TOKEN"))
	cfg.UserID = strings.TrimSpace(os.Getenv("IGK_USER_ID"))
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("IGK_MESSAGES_DIR"))

	if d, ok := envDuration("IGK_RECONNECT_DELAY"); ok && d > 0 {
		cfg.ReconnectDelay = d
	}
	// 0 끄기 허용
	if d, ok := envDuration("IGK_HEARTBEAT"); ok && d >= 0 {
		cfg.Heartbeat = d
	}
	if d, ok := envDuration("IGK_CLOCK_TICK"); ok && d > 0 {
		cfg.ClockTick = d
	}
	if d, ok := envDuration("IGK_HTTP_TIMEOUT"); ok && d > 0 {
		cfg.HTTPTimeout = d
	}
	if v := strings.TrimSpace(os.Getenv("IGK_HTTP_RETRY")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HTTPRetry = n
		}
	}
	if v := strings.ToLower(strings.TrimSpace(os.Getenv("IGK_EGRESS_MODE"))); v == "auto" || v == "ws" || v == "http" {
		cfg.EgressMode = v
	}
	if v := strings.TrimSpace(os.Getenv("IGK_AUTO_JOIN")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.AutoJoin = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("IGK_ABANDON_WAITING")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.AbandonWaiting = b
		}
	}

	if cfg.APIURL == "" {
		return nil, errors.New("IGK_API_URL is required")
	}
	if cfg.WSURL == "" {
		ws, err := deriveWSURL(cfg.APIURL)
		if err != nil {
			return nil, err
		}
		cfg.WSURL = ws
	}
	return cfg, nil
}

// envDuration accepts Go durations ("5s") or bare integers as seconds.
func envDuration(key string) (time.Duration, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d, true
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, true
	}
	return 0, false
}

// deriveWSURL maps http://host/api/chess to ws://host/ws/chess/websocket,
// the raw WebSocket transport behind the server's SockJS endpoint.
func deriveWSURL(apiURL string) (string, error) {
	u, err := url.Parse(apiURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return "", errors.New("IGK_API_URL must be http or https")
	}
	u.Path = "/ws/chess/websocket"
	u.RawQuery = ""
	return u.String(), nil
}
