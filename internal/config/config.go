package config

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Report  ReportConfig  `yaml:"report"`
	Auth    AuthConfig    `yaml:"auth"`
	Publish PublishConfig `yaml:"publish"`
	Sources SourcesConfig `yaml:"sources"`
	Match   MatchConfig   `yaml:"match"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Cache   CacheConfig   `yaml:"cache"`
	Logging LoggingConfig `yaml:"logging"`
	App     AppConfig     `yaml:"app"`
}

type ServerConfig struct {
	Address      string        `yaml:"address"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

type StoreConfig struct {
	Path      string `yaml:"path"`
	TermsFile string `yaml:"terms_file"`
}

type ReportConfig struct {
	Directory string `yaml:"directory"`
}

type AuthConfig struct {
	SessionSecret  string `yaml:"session_secret"` // #nosec G117 -- configuration secret field.
	AdminTokenHash string `yaml:"admin_token_hash"`
	BcryptCost     int    `yaml:"bcrypt_cost"`
}

type PublishConfig struct {
	Method string             `yaml:"method"`
	Local  PublishLocalConfig `yaml:"local"`
	S3     PublishS3Config    `yaml:"s3"`
}

type PublishLocalConfig struct {
	Directory string `yaml:"directory"`
}

type PublishS3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PublicURL       string `yaml:"public_url"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"` // #nosec G117 -- configuration secret field.
	Prefix          string `yaml:"prefix"`
	PathStyle       bool   `yaml:"path_style"`
}

type SourcesConfig struct {
	Gumtree    GumtreeConfig    `yaml:"gumtree"`
	AutoTrader AutoTraderConfig `yaml:"autotrader"`
	WeBuyCars  WeBuyCarsConfig  `yaml:"webuycars"`
}

type GumtreeConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Threshold float64 `yaml:"threshold"`
	BaseURL   string  `yaml:"base_url"`
}

type AutoTraderConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Threshold float64 `yaml:"threshold"`
	BaseURL   string  `yaml:"base_url"`
}

type WeBuyCarsConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Threshold float64 `yaml:"threshold"`
	BaseURL   string  `yaml:"base_url"`
	APIFilter string  `yaml:"api_filter"`
}

type MatchConfig struct {
	JaccardWeight    float64 `yaml:"jaccard_weight"`
	SequenceWeight   float64 `yaml:"sequence_weight"`
	DefaultThreshold float64 `yaml:"default_threshold"`
}

type FetchConfig struct {
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
	SleepMin  time.Duration `yaml:"sleep_min"`
	SleepMax  time.Duration `yaml:"sleep_max"`
	Workers   int           `yaml:"workers"`
}

type CacheConfig struct {
	Provider  string           `yaml:"provider"`
	Directory string           `yaml:"directory"`
	TTL       CacheTTLConfig   `yaml:"ttl"`
	Redis     CacheRedisConfig `yaml:"redis"`
}

type CacheTTLConfig struct {
	Default  time.Duration `yaml:"default"`
	Snapshot time.Duration `yaml:"snapshot"`
}

type CacheRedisConfig struct {
	URL      string `yaml:"url"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"` // #nosec G117 -- configuration secret field.
	DB       int    `yaml:"db"`
	UseTLS   bool   `yaml:"tls"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type AppConfig struct {
	Name string `yaml:"name"`
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0 Safari/537.36"

func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Address:      ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Store: StoreConfig{
			Path:      "data/listings.json",
			TermsFile: "bikes.txt",
		},
		Report: ReportConfig{
			Directory: "data/site",
		},
		Auth: AuthConfig{
			SessionSecret: "change-me-in-production",
			BcryptCost:    12,
		},
		Publish: PublishConfig{
			Method: "local",
			Local: PublishLocalConfig{
				Directory: "data/site",
			},
		},
		Sources: SourcesConfig{
			Gumtree: GumtreeConfig{
				Enabled:   true,
				Threshold: 0.435,
				BaseURL:   "https://www.gumtree.co.za/s-motorcycles-scooters/v1c9027p1",
			},
			AutoTrader: AutoTraderConfig{
				Enabled:   true,
				Threshold: 0.50,
				BaseURL:   "https://www.autotrader.co.za/bikes-for-sale",
			},
			WeBuyCars: WeBuyCarsConfig{
				Enabled:   true,
				Threshold: 0.4575,
				BaseURL:   `https://www.webuycars.co.za/buy-a-car?activeTypeSearch=["Motorbike"]`,
				APIFilter: "website-elastic-backend/api/search",
			},
		},
		Match: MatchConfig{
			JaccardWeight:    0.6,
			SequenceWeight:   0.4,
			DefaultThreshold: 0.5,
		},
		Fetch: FetchConfig{
			UserAgent: defaultUserAgent,
			Timeout:   10 * time.Second,
			SleepMin:  2 * time.Second,
			SleepMax:  4 * time.Second,
			Workers:   6,
		},
		Cache: CacheConfig{
			Provider: "sqlite",
			TTL: CacheTTLConfig{
				Default:  24 * time.Hour,
				Snapshot: 7 * 24 * time.Hour,
			},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		App: AppConfig{
			Name: "Motorcycle Listings Tracker",
		},
	}

	root, err := os.OpenRoot(filepath.Dir(path))
	if err == nil {
		defer root.Close()
		if _, err := root.Stat(filepath.Base(path)); err == nil {
			file, err := root.Open(filepath.Base(path))
			if err != nil {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
			defer file.Close()
			data, err := io.ReadAll(file)
			if err != nil {
				return nil, fmt.Errorf("reading config file: %w", err)
			}

			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, fmt.Errorf("applying env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

type Overrides struct {
	ServerAddress       *string
	ServerReadTimeout   *time.Duration
	ServerWriteTimeout  *time.Duration
	ServerIdleTimeout   *time.Duration
	StorePath           *string
	TermsFile           *string
	ReportDirectory     *string
	AuthSessionSecret   *string
	AuthAdminTokenHash  *string
	AuthBcryptCost      *int
	PublishMethod       *string
	PublishLocalDir     *string
	PublishS3Bucket     *string
	PublishS3Region     *string
	PublishS3Endpoint   *string
	PublishS3PublicURL  *string
	PublishS3AccessKey  *string
	PublishS3SecretKey  *string
	PublishS3Session    *string
	PublishS3Prefix     *string
	PublishS3PathStyle  *bool
	GumtreeEnabled      *bool
	GumtreeThreshold    *float64
	AutoTraderEnabled   *bool
	AutoTraderThreshold *float64
	WeBuyCarsEnabled    *bool
	WeBuyCarsThreshold  *float64
	MatchJaccardWeight  *float64
	MatchSequenceWeight *float64
	MatchThreshold      *float64
	FetchUserAgent      *string
	FetchTimeout        *time.Duration
	FetchSleepMin       *time.Duration
	FetchSleepMax       *time.Duration
	FetchWorkers        *int
	CacheProvider       *string
	CacheDirectory      *string
	CacheTTLDefault     *time.Duration
	CacheTTLSnapshot    *time.Duration
	CacheRedisURL       *string
	CacheRedisAddr      *string
	CacheRedisPassword  *string
	CacheRedisDB        *int
	CacheRedisTLS       *bool
	LogLevel            *string
	LogFile             *string
	AppName             *string
}

func (c *Config) ApplyOverrides(overrides Overrides) error {
	if overrides.ServerAddress != nil {
		c.Server.Address = *overrides.ServerAddress
	}
	if overrides.ServerReadTimeout != nil {
		c.Server.ReadTimeout = *overrides.ServerReadTimeout
	}
	if overrides.ServerWriteTimeout != nil {
		c.Server.WriteTimeout = *overrides.ServerWriteTimeout
	}
	if overrides.ServerIdleTimeout != nil {
		c.Server.IdleTimeout = *overrides.ServerIdleTimeout
	}
	if overrides.StorePath != nil {
		c.Store.Path = *overrides.StorePath
	}
	if overrides.TermsFile != nil {
		c.Store.TermsFile = *overrides.TermsFile
	}
	if overrides.ReportDirectory != nil {
		c.Report.Directory = *overrides.ReportDirectory
	}
	if overrides.AuthSessionSecret != nil {
		c.Auth.SessionSecret = *overrides.AuthSessionSecret
	}
	if overrides.AuthAdminTokenHash != nil {
		c.Auth.AdminTokenHash = *overrides.AuthAdminTokenHash
	}
	if overrides.AuthBcryptCost != nil {
		c.Auth.BcryptCost = *overrides.AuthBcryptCost
	}
	if overrides.PublishMethod != nil {
		c.Publish.Method = *overrides.PublishMethod
	}
	if overrides.PublishLocalDir != nil {
		c.Publish.Local.Directory = *overrides.PublishLocalDir
	}
	if overrides.PublishS3Bucket != nil {
		c.Publish.S3.Bucket = *overrides.PublishS3Bucket
	}
	if overrides.PublishS3Region != nil {
		c.Publish.S3.Region = *overrides.PublishS3Region
	}
	if overrides.PublishS3Endpoint != nil {
		c.Publish.S3.Endpoint = *overrides.PublishS3Endpoint
	}
	if overrides.PublishS3PublicURL != nil {
		c.Publish.S3.PublicURL = *overrides.PublishS3PublicURL
	}
	if overrides.PublishS3AccessKey != nil {
		c.Publish.S3.AccessKeyID = *overrides.PublishS3AccessKey
	}
	if overrides.PublishS3SecretKey != nil {
		c.Publish.S3.SecretAccessKey = *overrides.PublishS3SecretKey
	}
	if overrides.PublishS3Session != nil {
		c.Publish.S3.SessionToken = *overrides.PublishS3Session
	}
	if overrides.PublishS3Prefix != nil {
		c.Publish.S3.Prefix = *overrides.PublishS3Prefix
	}
	if overrides.PublishS3PathStyle != nil {
		c.Publish.S3.PathStyle = *overrides.PublishS3PathStyle
	}
	if overrides.GumtreeEnabled != nil {
		c.Sources.Gumtree.Enabled = *overrides.GumtreeEnabled
	}
	if overrides.GumtreeThreshold != nil {
		c.Sources.Gumtree.Threshold = *overrides.GumtreeThreshold
	}
	if overrides.AutoTraderEnabled != nil {
		c.Sources.AutoTrader.Enabled = *overrides.AutoTraderEnabled
	}
	if overrides.AutoTraderThreshold != nil {
		c.Sources.AutoTrader.Threshold = *overrides.AutoTraderThreshold
	}
	if overrides.WeBuyCarsEnabled != nil {
		c.Sources.WeBuyCars.Enabled = *overrides.WeBuyCarsEnabled
	}
	if overrides.WeBuyCarsThreshold != nil {
		c.Sources.WeBuyCars.Threshold = *overrides.WeBuyCarsThreshold
	}
	if overrides.MatchJaccardWeight != nil {
		c.Match.JaccardWeight = *overrides.MatchJaccardWeight
	}
	if overrides.MatchSequenceWeight != nil {
		c.Match.SequenceWeight = *overrides.MatchSequenceWeight
	}
	if overrides.MatchThreshold != nil {
		c.Match.DefaultThreshold = *overrides.MatchThreshold
	}
	if overrides.FetchUserAgent != nil {
		c.Fetch.UserAgent = *overrides.FetchUserAgent
	}
	if overrides.FetchTimeout != nil {
		c.Fetch.Timeout = *overrides.FetchTimeout
	}
	if overrides.FetchSleepMin != nil {
		c.Fetch.SleepMin = *overrides.FetchSleepMin
	}
	if overrides.FetchSleepMax != nil {
		c.Fetch.SleepMax = *overrides.FetchSleepMax
	}
	if overrides.FetchWorkers != nil {
		c.Fetch.Workers = *overrides.FetchWorkers
	}
	if overrides.CacheProvider != nil {
		c.Cache.Provider = *overrides.CacheProvider
	}
	if overrides.CacheDirectory != nil {
		c.Cache.Directory = *overrides.CacheDirectory
	}
	if overrides.CacheTTLDefault != nil {
		c.Cache.TTL.Default = *overrides.CacheTTLDefault
	}
	if overrides.CacheTTLSnapshot != nil {
		c.Cache.TTL.Snapshot = *overrides.CacheTTLSnapshot
	}
	if overrides.CacheRedisURL != nil {
		c.Cache.Redis.URL = *overrides.CacheRedisURL
	}
	if overrides.CacheRedisAddr != nil {
		c.Cache.Redis.Addr = *overrides.CacheRedisAddr
	}
	if overrides.CacheRedisPassword != nil {
		c.Cache.Redis.Password = *overrides.CacheRedisPassword
	}
	if overrides.CacheRedisDB != nil {
		c.Cache.Redis.DB = *overrides.CacheRedisDB
	}
	if overrides.CacheRedisTLS != nil {
		c.Cache.Redis.UseTLS = *overrides.CacheRedisTLS
	}
	if overrides.LogLevel != nil {
		c.Logging.Level = *overrides.LogLevel
	}
	if overrides.LogFile != nil {
		c.Logging.File = *overrides.LogFile
	}
	if overrides.AppName != nil {
		c.App.Name = *overrides.AppName
	}

	return c.validate()
}

func (c *Config) applyEnv() error {
	addressSet := false
	if value, ok := lookupEnv("TRACKER_SERVER_ADDRESS"); ok {
		c.Server.Address = value
		addressSet = true
	}
	serverHost, hostSet := lookupEnv("TRACKER_SERVER_HOST")
	serverPort, portSet := lookupEnv("TRACKER_SERVER_PORT")
	if value, ok := lookupEnv("HOST"); ok && !hostSet {
		serverHost = value
		hostSet = true
	}
	if value, ok := lookupEnv("PORT"); ok && !portSet {
		serverPort = value
		portSet = true
	}
	if !addressSet && (hostSet || portSet) {
		if serverHost == "" {
			serverHost = "0.0.0.0"
		}
		if serverPort == "" {
			serverPort = "8080"
		}
		c.Server.Address = fmt.Sprintf("%s:%s", serverHost, serverPort)
	}
	if value, ok := lookupEnv("TRACKER_SERVER_READ_TIMEOUT"); ok {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("TRACKER_SERVER_READ_TIMEOUT: %w", err)
		}
		c.Server.ReadTimeout = duration
	}
	if value, ok := lookupEnv("TRACKER_SERVER_WRITE_TIMEOUT"); ok {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("TRACKER_SERVER_WRITE_TIMEOUT: %w", err)
		}
		c.Server.WriteTimeout = duration
	}
	if value, ok := lookupEnv("TRACKER_SERVER_IDLE_TIMEOUT"); ok {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("TRACKER_SERVER_IDLE_TIMEOUT: %w", err)
		}
		c.Server.IdleTimeout = duration
	}
	if value, ok := lookupEnv("TRACKER_STORE_PATH"); ok {
		c.Store.Path = value
	}
	if value, ok := lookupEnv("TRACKER_TERMS_FILE"); ok {
		c.Store.TermsFile = value
	}
	if value, ok := lookupEnv("TRACKER_REPORT_DIRECTORY"); ok {
		c.Report.Directory = value
	}
	if value, ok := lookupEnv("TRACKER_AUTH_SESSION_SECRET"); ok {
		c.Auth.SessionSecret = value
	}
	if value, ok := lookupEnv("TRACKER_AUTH_ADMIN_TOKEN_HASH"); ok {
		c.Auth.AdminTokenHash = value
	}
	if value, ok := lookupEnv("TRACKER_AUTH_BCRYPT_COST"); ok {
		parsed, err := parseInt(value)
		if err != nil {
			return fmt.Errorf("TRACKER_AUTH_BCRYPT_COST: %w", err)
		}
		c.Auth.BcryptCost = parsed
	}
	if value, ok := lookupEnv("TRACKER_PUBLISH_METHOD"); ok {
		c.Publish.Method = value
	}
	if value, ok := lookupEnv("TRACKER_PUBLISH_LOCAL_DIRECTORY"); ok {
		c.Publish.Local.Directory = value
	}
	if value, ok := lookupEnv("TRACKER_PUBLISH_S3_BUCKET"); ok {
		c.Publish.S3.Bucket = value
	}
	if value, ok := lookupEnv("TRACKER_PUBLISH_S3_REGION"); ok {
		c.Publish.S3.Region = value
	}
	if value, ok := lookupEnv("TRACKER_PUBLISH_S3_ENDPOINT"); ok {
		c.Publish.S3.Endpoint = value
	}
	if value, ok := lookupEnv("TRACKER_PUBLISH_S3_PUBLIC_URL"); ok {
		c.Publish.S3.PublicURL = value
	}
	if value, ok := lookupEnv("TRACKER_PUBLISH_S3_ACCESS_KEY_ID"); ok {
		c.Publish.S3.AccessKeyID = value
	}
	if value, ok := lookupEnv("TRACKER_PUBLISH_S3_SECRET_ACCESS_KEY"); ok {
		c.Publish.S3.SecretAccessKey = value
	}
	if value, ok := lookupEnv("TRACKER_PUBLISH_S3_SESSION_TOKEN"); ok {
		c.Publish.S3.SessionToken = value
	}
	if value, ok := lookupEnv("TRACKER_PUBLISH_S3_PREFIX"); ok {
		c.Publish.S3.Prefix = value
	}
	if value, ok := lookupEnv("TRACKER_PUBLISH_S3_PATH_STYLE"); ok {
		parsed, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("TRACKER_PUBLISH_S3_PATH_STYLE: %w", err)
		}
		c.Publish.S3.PathStyle = parsed
	}
	if value, ok := lookupEnv("TRACKER_SOURCE_GUMTREE_ENABLED"); ok {
		parsed, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("TRACKER_SOURCE_GUMTREE_ENABLED: %w", err)
		}
		c.Sources.Gumtree.Enabled = parsed
	}
	if value, ok := lookupEnv("TRACKER_SOURCE_GUMTREE_THRESHOLD"); ok {
		parsed, err := parseFloat(value)
		if err != nil {
			return fmt.Errorf("TRACKER_SOURCE_GUMTREE_THRESHOLD: %w", err)
		}
		c.Sources.Gumtree.Threshold = parsed
	}
	if value, ok := lookupEnv("TRACKER_SOURCE_AUTOTRADER_ENABLED"); ok {
		parsed, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("TRACKER_SOURCE_AUTOTRADER_ENABLED: %w", err)
		}
		c.Sources.AutoTrader.Enabled = parsed
	}
	if value, ok := lookupEnv("TRACKER_SOURCE_AUTOTRADER_THRESHOLD"); ok {
		parsed, err := parseFloat(value)
		if err != nil {
			return fmt.Errorf("TRACKER_SOURCE_AUTOTRADER_THRESHOLD: %w", err)
		}
		c.Sources.AutoTrader.Threshold = parsed
	}
	if value, ok := lookupEnv("TRACKER_SOURCE_WEBUYCARS_ENABLED"); ok {
		parsed, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("TRACKER_SOURCE_WEBUYCARS_ENABLED: %w", err)
		}
		c.Sources.WeBuyCars.Enabled = parsed
	}
	if value, ok := lookupEnv("TRACKER_SOURCE_WEBUYCARS_THRESHOLD"); ok {
		parsed, err := parseFloat(value)
		if err != nil {
			return fmt.Errorf("TRACKER_SOURCE_WEBUYCARS_THRESHOLD: %w", err)
		}
		c.Sources.WeBuyCars.Threshold = parsed
	}
	if value, ok := lookupEnv("TRACKER_MATCH_JACCARD_WEIGHT"); ok {
		parsed, err := parseFloat(value)
		if err != nil {
			return fmt.Errorf("TRACKER_MATCH_JACCARD_WEIGHT: %w", err)
		}
		c.Match.JaccardWeight = parsed
	}
	if value, ok := lookupEnv("TRACKER_MATCH_SEQUENCE_WEIGHT"); ok {
		parsed, err := parseFloat(value)
		if err != nil {
			return fmt.Errorf("TRACKER_MATCH_SEQUENCE_WEIGHT: %w", err)
		}
		c.Match.SequenceWeight = parsed
	}
	if value, ok := lookupEnv("TRACKER_MATCH_DEFAULT_THRESHOLD"); ok {
		parsed, err := parseFloat(value)
		if err != nil {
			return fmt.Errorf("TRACKER_MATCH_DEFAULT_THRESHOLD: %w", err)
		}
		c.Match.DefaultThreshold = parsed
	}
	if value, ok := lookupEnv("TRACKER_FETCH_USER_AGENT"); ok {
		c.Fetch.UserAgent = value
	}
	if value, ok := lookupEnv("TRACKER_FETCH_TIMEOUT"); ok {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("TRACKER_FETCH_TIMEOUT: %w", err)
		}
		c.Fetch.Timeout = duration
	}
	if value, ok := lookupEnv("TRACKER_FETCH_SLEEP_MIN"); ok {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("TRACKER_FETCH_SLEEP_MIN: %w", err)
		}
		c.Fetch.SleepMin = duration
	}
	if value, ok := lookupEnv("TRACKER_FETCH_SLEEP_MAX"); ok {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("TRACKER_FETCH_SLEEP_MAX: %w", err)
		}
		c.Fetch.SleepMax = duration
	}
	if value, ok := lookupEnv("TRACKER_FETCH_WORKERS"); ok {
		parsed, err := parseInt(value)
		if err != nil {
			return fmt.Errorf("TRACKER_FETCH_WORKERS: %w", err)
		}
		c.Fetch.Workers = parsed
	}
	if value, ok := lookupEnv("TRACKER_CACHE_PROVIDER"); ok {
		c.Cache.Provider = value
	}
	if value, ok := lookupEnv("TRACKER_CACHE_DIRECTORY"); ok {
		c.Cache.Directory = value
	}
	if value, ok := lookupEnv("TRACKER_CACHE_TTL_DEFAULT"); ok {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("TRACKER_CACHE_TTL_DEFAULT: %w", err)
		}
		c.Cache.TTL.Default = duration
	}
	if value, ok := lookupEnv("TRACKER_CACHE_TTL_SNAPSHOT"); ok {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("TRACKER_CACHE_TTL_SNAPSHOT: %w", err)
		}
		c.Cache.TTL.Snapshot = duration
	}
	if value, ok := lookupEnv("TRACKER_CACHE_REDIS_URL"); ok {
		c.Cache.Redis.URL = value
	} else if value, ok := lookupEnv("REDIS_URL"); ok {
		c.Cache.Redis.URL = value
	}
	if value, ok := lookupEnv("TRACKER_CACHE_REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = value
	}
	if value, ok := lookupEnv("TRACKER_CACHE_REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = value
	}
	if value, ok := lookupEnv("TRACKER_CACHE_REDIS_DB"); ok {
		parsed, err := parseInt(value)
		if err != nil {
			return fmt.Errorf("TRACKER_CACHE_REDIS_DB: %w", err)
		}
		c.Cache.Redis.DB = parsed
	}
	if value, ok := lookupEnv("TRACKER_CACHE_REDIS_TLS"); ok {
		parsed, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("TRACKER_CACHE_REDIS_TLS: %w", err)
		}
		c.Cache.Redis.UseTLS = parsed
	}
	if value, ok := lookupEnv("TRACKER_LOG_LEVEL"); ok {
		c.Logging.Level = value
	}
	if value, ok := lookupEnv("TRACKER_LOG_FILE"); ok {
		c.Logging.File = value
	}
	if value, ok := lookupEnv("TRACKER_APP_NAME"); ok {
		c.App.Name = value
	}
	if strings.TrimSpace(c.Cache.Redis.URL) != "" {
		if err := applyRedisURL(&c.Cache.Redis); err != nil {
			return err
		}
	}

	return nil
}

func lookupEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

func parseInt(value string) (int, error) {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func parseFloat(value string) (float64, error) {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func parseBool(value string) (bool, error) {
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, err
	}
	return parsed, nil
}

func applyRedisURL(cfg *CacheRedisConfig) error {
	if cfg == nil {
		return nil
	}
	raw := strings.TrimSpace(cfg.URL)
	if raw == "" {
		return nil
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("cache redis url: %w", err)
	}
	if parsed.Host == "" {
		return fmt.Errorf("cache redis url: missing host")
	}
	if parsed.User != nil {
		password, ok := parsed.User.Password()
		if ok {
			cfg.Password = password
		}
	}
	path := strings.Trim(parsed.Path, "/")
	if path != "" {
		if dbIndex, err := strconv.Atoi(path); err == nil {
			cfg.DB = dbIndex
		} else {
			return fmt.Errorf("cache redis url: invalid db index")
		}
	}
	query := parsed.Query()
	if value := strings.TrimSpace(query.Get("db")); value != "" {
		if dbIndex, err := strconv.Atoi(value); err == nil {
			cfg.DB = dbIndex
		} else {
			return fmt.Errorf("cache redis url: invalid db query param")
		}
	}
	if value := strings.ToLower(strings.TrimSpace(query.Get("tls"))); value != "" {
		parsedBool, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("cache redis url: invalid tls query param")
		}
		cfg.UseTLS = parsedBool
	}
	if value := strings.ToLower(strings.TrimSpace(query.Get("ssl"))); value != "" {
		parsedBool, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("cache redis url: invalid ssl query param")
		}
		cfg.UseTLS = parsedBool
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme == "rediss" {
		cfg.UseTLS = true
	}
	if cfg.Addr == "" {
		cfg.Addr = parsed.Host
	}
	return nil
}

func (c *Config) validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server address is required")
	}

	if c.Store.Path == "" {
		return fmt.Errorf("store path is required")
	}
	if c.Store.TermsFile == "" {
		return fmt.Errorf("terms file is required")
	}
	if c.Report.Directory == "" {
		return fmt.Errorf("report directory is required")
	}

	if c.Auth.SessionSecret == "" || c.Auth.SessionSecret == "change-me-in-production" {
		if os.Getenv("TRACKER_ENV") == "production" {
			return fmt.Errorf("session secret must be set in production")
		}
	}

	method := strings.ToLower(strings.TrimSpace(c.Publish.Method))
	if method == "" {
		method = "local"
		c.Publish.Method = method
	}
	if method != "local" && method != "s3" {
		return fmt.Errorf("publish method must be local or s3")
	}
	if method == "local" {
		if c.Publish.Local.Directory == "" {
			return fmt.Errorf("publish local directory is required")
		}
	}
	if method == "s3" {
		if strings.TrimSpace(c.Publish.S3.Bucket) == "" {
			return fmt.Errorf("publish s3 bucket is required")
		}
		if strings.TrimSpace(c.Publish.S3.Region) == "" {
			return fmt.Errorf("publish s3 region is required")
		}
		if strings.TrimSpace(c.Publish.S3.PublicURL) != "" {
			parsed, err := url.Parse(c.Publish.S3.PublicURL)
			if err != nil || parsed.Host == "" {
				return fmt.Errorf("publish s3 public url must be a valid url")
			}
			scheme := strings.ToLower(parsed.Scheme)
			if scheme != "http" && scheme != "https" {
				return fmt.Errorf("publish s3 public url must use http or https")
			}
		}
	}

	if err := validateThreshold("gumtree", &c.Sources.Gumtree.Threshold, 0.435); err != nil {
		return err
	}
	if err := validateThreshold("autotrader", &c.Sources.AutoTrader.Threshold, 0.50); err != nil {
		return err
	}
	if err := validateThreshold("webuycars", &c.Sources.WeBuyCars.Threshold, 0.4575); err != nil {
		return err
	}
	if err := validateThreshold("default match", &c.Match.DefaultThreshold, 0.5); err != nil {
		return err
	}

	if c.Match.JaccardWeight <= 0 {
		c.Match.JaccardWeight = 0.6
	}
	if c.Match.SequenceWeight <= 0 {
		c.Match.SequenceWeight = 0.4
	}

	if c.Fetch.Timeout <= 0 {
		c.Fetch.Timeout = 10 * time.Second
	}
	if c.Fetch.SleepMin < 0 || c.Fetch.SleepMax < 0 {
		return fmt.Errorf("fetch sleep intervals must not be negative")
	}
	if c.Fetch.SleepMax < c.Fetch.SleepMin {
		return fmt.Errorf("fetch sleep max must not be below sleep min")
	}
	if c.Fetch.Workers <= 0 {
		c.Fetch.Workers = 6
	}

	cacheProvider := strings.ToLower(strings.TrimSpace(c.Cache.Provider))
	if cacheProvider == "" {
		cacheProvider = "sqlite"
		c.Cache.Provider = cacheProvider
	}
	if cacheProvider != "sqlite" && cacheProvider != "redis" {
		return fmt.Errorf("cache provider must be sqlite or redis")
	}
	if cacheProvider == "redis" {
		if strings.TrimSpace(c.Cache.Redis.Addr) == "" {
			return fmt.Errorf("cache redis addr is required")
		}
	}
	if c.Cache.TTL.Default <= 0 {
		c.Cache.TTL.Default = 24 * time.Hour
	}
	if c.Cache.TTL.Snapshot <= 0 {
		c.Cache.TTL.Snapshot = 7 * 24 * time.Hour
	}

	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = "info"
	}
	switch level {
	case "debug", "info", "warn", "error":
		c.Logging.Level = level
	default:
		return fmt.Errorf("log level must be debug, info, warn or error")
	}

	return nil
}

func validateThreshold(name string, value *float64, fallback float64) error {
	if *value <= 0 {
		*value = fallback
		return nil
	}
	if *value > 1 {
		return fmt.Errorf("%s threshold must be between 0 and 1", name)
	}
	return nil
}
