package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Backend selects the persistence/sync model.
const (
	BackendBlob     = "blob"     // local store + whole-file remote (github, cnb, local)
	BackendRealtime = "realtime" // Firestore-style document store with live subscription
)

// Store selects the Local Store key-value backend.
const (
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s
	HTTPTimeout     time.Duration // per-request timeout of the API

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	Backend string // "blob" | "realtime"
	Store   string // "redis" | "memory"

	// Local Store keys (one per partition + sync config)
	PrivateKey string
	PublicKey  string
	ConfigKey  string

	// Blob sync
	PullInterval    time.Duration // periodic pull, 0 disables
	RemoteTimeout   time.Duration // http client timeout for the git content API, 0 = none
	GitHubAPIURL    string        // override for GitHub Enterprise
	CNBAPIURL       string        // override for self-hosted CNB
	LocalRemoteRoot string        // root directory of the "local" provider
	WatchLocal      bool          // watch the local provider file and pull on change
	SyncSeedFile    string        // optional YAML/JSON SyncConfig stored at startup

	// Realtime
	FirebaseConfigFile string // YAML/JSON firebase web config
	AppID              string // namespace of the collections
	Principal          string // static principal id, skips anonymous sign-in when set

	// Suggestions
	GeminiAPIKey string
	GeminiModel  string

	// Redis
	RedisAddr             string
	RedisUser             string
	RedisPassword         string
	RedisPasswordRequired bool
	RedisDB               int
	RedisDT               time.Duration // dial timeout
	RedisRT               time.Duration // read timeout
	RedisWT               time.Duration // write timeout
	RedisMaxWait          time.Duration // max wait between retries
	RedisPingTimeout      time.Duration // timeout for each ping attempt
	RedisPoolSize         int
	RedisConnectTimeout   time.Duration // total time to retry connecting
	RedisRetryInterval    time.Duration // initial wait between retries, grows exponentially
	RedisWarnThreshold    int           // warn after this many attempts

	AllowedHosts []string // optional, restrict access to specific Host headers
	AllowedCIDRS []string // optional, restrict mutating routes to specific IPs/CIDRs
	TrustProxy   bool     // true => trust X-Forwarded-For headers

	RateLimitBurst     int // mutating requests allowed in a burst per IP
	RateLimitPerMinute int // refill rate per IP
}

// Load reads the configuration from the environment. Invalid combinations
// are returned as errors so the CLI can report them.
func Load() (*Config, error) {
	cfg := &Config{
		ListenPort:      getenv("HAJIMI_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("HAJIMI_SHUTDOWN_TIMEOUT", 5*time.Second),
		HTTPTimeout:     mustDuration("HAJIMI_HTTP_TIMEOUT", 30*time.Second),

		LogLevel:  getenv("HAJIMI_LOG_LEVEL", "info"),
		PrettyLog: mustBool("HAJIMI_PRETTY_LOG", true),

		Backend: strings.ToLower(getenv("HAJIMI_BACKEND", BackendBlob)),
		Store:   strings.ToLower(getenv("HAJIMI_STORE", StoreRedis)),

		PrivateKey: getenv("HAJIMI_KEY_PRIVATE", "hajimi_bookmarks_private"),
		PublicKey:  getenv("HAJIMI_KEY_PUBLIC", "hajimi_bookmarks_public"),
		ConfigKey:  getenv("HAJIMI_KEY_SYNC_CONFIG", "hajimi_sync_config"),

		PullInterval:    mustDuration("HAJIMI_PULL_INTERVAL", 0),
		RemoteTimeout:   mustDuration("HAJIMI_REMOTE_TIMEOUT", 0),
		GitHubAPIURL:    getenv("HAJIMI_GITHUB_API_URL", ""),
		CNBAPIURL:       getenv("HAJIMI_CNB_API_URL", ""),
		LocalRemoteRoot: getenv("HAJIMI_LOCAL_REMOTE_ROOT", ""),
		WatchLocal:      mustBool("HAJIMI_WATCH_LOCAL", false),
		SyncSeedFile:    getenv("HAJIMI_SYNC_CONFIG_FILE", ""),

		FirebaseConfigFile: getenv("HAJIMI_FIREBASE_CONFIG", ""),
		AppID:              getenv("HAJIMI_APP_ID", "default-app-id"),
		Principal:          getenv("HAJIMI_PRINCIPAL", ""),

		GeminiAPIKey: getenv("HAJIMI_GEMINI_API_KEY", ""),
		GeminiModel:  getenv("HAJIMI_GEMINI_MODEL", "gemini-2.5-flash"),

		RedisAddr:             getenv("HAJIMI_REDIS_ADDR", "localhost:6379"),
		RedisUser:             getenv("HAJIMI_REDIS_USERNAME", ""),
		RedisPassword:         getenv("HAJIMI_REDIS_PASSWORD", ""),
		RedisPasswordRequired: mustBool("HAJIMI_REDIS_PASSWORD_REQUIRED", false),
		RedisDB:               getenvInt("HAJIMI_REDIS_DB", 0),
		RedisDT:               mustDuration("HAJIMI_REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("HAJIMI_REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("HAJIMI_REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("HAJIMI_REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("HAJIMI_REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("HAJIMI_REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("HAJIMI_REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("HAJIMI_REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("HAJIMI_REDIS_WARN_THRESHOLD", 3),

		AllowedHosts: splitAndTrim(getenv("HAJIMI_ALLOWED_HOSTS", "")),
		AllowedCIDRS: splitAndTrim(getenv("HAJIMI_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("HAJIMI_TRUST_PROXY", false),

		RateLimitBurst:     getenvInt("HAJIMI_RATE_LIMIT_BURST", 30),
		RateLimitPerMinute: getenvInt("HAJIMI_RATE_LIMIT_PER_MINUTE", 60),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		log.Printf("[DEBUG] cfg: %+v\n", cfg.redacted())
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendBlob, BackendRealtime:
	default:
		return fmt.Errorf("HAJIMI_BACKEND must be %q or %q, got %q", BackendBlob, BackendRealtime, c.Backend)
	}
	switch c.Store {
	case StoreRedis, StoreMemory:
	default:
		return fmt.Errorf("HAJIMI_STORE must be %q or %q, got %q", StoreRedis, StoreMemory, c.Store)
	}
	if c.PrivateKey == c.PublicKey {
		return fmt.Errorf("partition keys must differ, both are %q", c.PrivateKey)
	}
	if c.Store == StoreRedis && c.RedisPasswordRequired && c.RedisPassword == "" {
		return fmt.Errorf("HAJIMI_REDIS_PASSWORD is required when HAJIMI_REDIS_PASSWORD_REQUIRED=true")
	}
	if c.WatchLocal && c.LocalRemoteRoot == "" {
		return fmt.Errorf("HAJIMI_WATCH_LOCAL requires HAJIMI_LOCAL_REMOTE_ROOT")
	}
	if c.Backend == BackendRealtime && c.FirebaseConfigFile == "" && c.Principal == "" {
		return fmt.Errorf("realtime backend needs HAJIMI_FIREBASE_CONFIG or HAJIMI_PRINCIPAL")
	}
	return nil
}

func (c *Config) redacted() Config {
	cp := *c
	if cp.RedisPassword != "" {
		cp.RedisPassword = "***REDACTED***"
	}
	if cp.GeminiAPIKey != "" {
		cp.GeminiAPIKey = "***REDACTED***"
	}
	return cp
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
