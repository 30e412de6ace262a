package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"smartsession/internal/codec"
	"smartsession/internal/domain"
	"smartsession/internal/relay"
	"smartsession/internal/store"
)

// EnvPrefix prefixes every environment variable Load reads.
const EnvPrefix = "SMARTSESSION_"

// ConfigFileName is looked up in the home directory when no path is given.
const ConfigFileName = "config.yaml"

// Config holds runtime wiring options for building the app.
type Config struct {
	Home      string           `yaml:"home"`      // data directory, e.g. $HOME/.smartsession
	Namespace domain.Namespace `yaml:"namespace"` // profile the persisted records belong to
	Codec     string           `yaml:"codec"`     // "legacy" or "tagged"
	LogLevel  string           `yaml:"log_level"`

	// CodeSource is where deployment is checked: "relay" or "rpc".
	CodeSource string `yaml:"code_source"`

	Store StoreConfig  `yaml:"store"`
	Chain domain.Chain `yaml:"chain"`
	Relay RelayConfig  `yaml:"relay"`
	Owner OwnerConfig  `yaml:"owner"`
}

// StoreConfig selects the persistence driver.
type StoreConfig struct {
	Driver     store.Driver `yaml:"driver"`
	SQLitePath string       `yaml:"sqlite_path"`
	RedisURL   string       `yaml:"redis_url"`

	// Passphrase seals stored values. Only read from the environment.
	Passphrase string `yaml:"-"`
}

// RelayConfig points at the account-abstraction relay.
type RelayConfig struct {
	URL          string        `yaml:"url"`
	APIKey       string        `yaml:"-"`
	SponsorURL   string        `yaml:"sponsor_url"`
	GasTank      string        `yaml:"gas_tank"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// OwnerConfig locates the wallet signer. Secrets are only read from the
// environment.
type OwnerConfig struct {
	Keystore   string `yaml:"keystore"`
	Password   string `yaml:"-"`
	PrivateKey string `yaml:"-"`
}

// Code sources.
const (
	CodeFromRelay = "relay"
	CodeFromRPC   = "rpc"
)

// SophonTestnet is the default chain.
var SophonTestnet = domain.Chain{
	ID:       531050204,
	Name:     "Sophon Testnet",
	RPCURL:   "https://rpc.testnet.sophon.xyz",
	Explorer: "https://explorer.testnet.sophon.xyz",
}

// Default returns the configuration used before any file or variable is
// applied.
func Default() Config {
	home := ".smartsession"
	if dir, err := os.UserHomeDir(); err == nil {
		home = filepath.Join(dir, ".smartsession")
	}
	return Config{
		Home:      home,
		Namespace: "default",
		Codec:     codec.FormatLegacy,
		LogLevel:  "warn",

		CodeSource: CodeFromRelay,
		Store:     StoreConfig{Driver: store.DriverFile},
		Chain:     SophonTestnet,
		Relay: RelayConfig{
			URL:          "http://127.0.0.1:8080",
			PollInterval: relay.DefaultPollInterval,
		},
	}
}

// Load builds the configuration in layers: defaults, a .env file in the
// working directory, the YAML file at path (or <home>/config.yaml when it
// exists), then SMARTSESSION_* variables. A non-empty home overrides every
// other source and is resolved before the file lookup.
func Load(path, home string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if v := env("HOME"); v != "" {
		cfg.Home = v
	}
	if home != "" {
		cfg.Home = home
	}
	cfg.Home = expandHome(cfg.Home)
	if path == "" {
		path = env("CONFIG")
	}
	explicit := path != ""
	if !explicit {
		path = filepath.Join(cfg.Home, ConfigFileName)
	}
	if err := cfg.loadFile(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if home != "" {
		cfg.Home = home
	}
	cfg.expandPaths()
	return cfg, cfg.Validate()
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func env(name string) string { return os.Getenv(EnvPrefix + name) }

func (c *Config) applyEnv() error {
	strs := []struct {
		name string
		dst  *string
	}{
		{"HOME", &c.Home},
		{"CODEC", &c.Codec},
		{"LOG_LEVEL", &c.LogLevel},
		{"CODE_SOURCE", &c.CodeSource},
		{"SQLITE_PATH", &c.Store.SQLitePath},
		{"REDIS_URL", &c.Store.RedisURL},
		{"STORE_PASSPHRASE", &c.Store.Passphrase},
		{"CHAIN_NAME", &c.Chain.Name},
		{"RPC_URL", &c.Chain.RPCURL},
		{"EXPLORER", &c.Chain.Explorer},
		{"RELAY_URL", &c.Relay.URL},
		{"API_KEY", &c.Relay.APIKey},
		{"SPONSOR_URL", &c.Relay.SponsorURL},
		{"GAS_TANK", &c.Relay.GasTank},
		{"OWNER_KEYSTORE", &c.Owner.Keystore},
		{"OWNER_PASSWORD", &c.Owner.Password},
		{"OWNER_KEY", &c.Owner.PrivateKey},
	}
	for _, s := range strs {
		if v := env(s.name); v != "" {
			*s.dst = v
		}
	}
	if v := env("NAMESPACE"); v != "" {
		c.Namespace = domain.Namespace(v)
	}
	if v := env("STORE"); v != "" {
		c.Store.Driver = store.Driver(v)
	}
	if v := env("CHAIN_ID"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sCHAIN_ID: %w", EnvPrefix, err)
		}
		c.Chain.ID = id
	}
	if v := env("POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sPOLL_INTERVAL: %w", EnvPrefix, err)
		}
		c.Relay.PollInterval = d
	}
	return nil
}

func (c *Config) expandPaths() {
	c.Home = expandHome(c.Home)
	c.Owner.Keystore = expandHome(c.Owner.Keystore)
	c.Store.SQLitePath = expandHome(c.Store.SQLitePath)
}

func expandHome(p string) string {
	rest, ok := strings.CutPrefix(p, "~/")
	if !ok {
		return p
	}
	dir, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(dir, rest)
}

// Validate reports the first setting that cannot be used.
func (c Config) Validate() error {
	if c.Home == "" {
		return errors.New("config: home directory is empty")
	}
	if c.Namespace == "" {
		return errors.New("config: namespace is empty")
	}
	if _, err := codec.New(c.Codec); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch c.CodeSource {
	case CodeFromRelay:
	case CodeFromRPC:
		if c.Chain.RPCURL == "" {
			return errors.New("config: code_source rpc needs chain.rpc_url")
		}
	default:
		return fmt.Errorf("config: unknown code source %q", c.CodeSource)
	}
	switch c.Store.Driver {
	case store.DriverFile, store.DriverMemory, store.DriverSQLite:
	case store.DriverRedis:
		if c.Store.RedisURL == "" {
			return errors.New("config: redis store needs redis_url")
		}
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if c.Relay.GasTank != "" && !common.IsHexAddress(c.Relay.GasTank) {
		return fmt.Errorf("config: gas tank %q is not an address", c.Relay.GasTank)
	}
	if c.Relay.PollInterval <= 0 {
		return errors.New("config: poll interval must be positive")
	}
	return nil
}

// Sponsorship returns the gas tank settings sent with every execution.
func (c Config) Sponsorship() domain.Sponsorship {
	sp := domain.Sponsorship{URL: c.Relay.SponsorURL}
	if sp.URL == "" {
		sp.URL = c.Relay.URL
	}
	if c.Relay.GasTank != "" {
		sp.GasTank = common.HexToAddress(c.Relay.GasTank)
	}
	return sp
}

// StoreOptions maps the store settings onto store.Open.
func (c Config) StoreOptions() store.Options {
	return store.Options{
		Driver:     c.Store.Driver,
		Namespace:  c.Namespace,
		Dir:        c.Home,
		SQLitePath: c.Store.SQLitePath,
		RedisURL:   c.Store.RedisURL,
		Passphrase: c.Store.Passphrase,
	}
}
