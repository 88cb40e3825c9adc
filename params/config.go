package params

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"time"

	validator "gopkg.in/go-playground/validator.v9"

	"github.com/status-im/connector-bridge/logutils"
)

const (
	// DefaultListenAddr is where the background process accepts content scripts and the wallet UI.
	DefaultListenAddr = "127.0.0.1:8545"

	// DefaultRequestTimeout bounds a page-side round trip. It is long because a
	// human has to approve most requests.
	DefaultRequestTimeout = time.Hour

	// DefaultSessionTTL is how long an idle tab session keeps its account and chain.
	DefaultSessionTTL = 24 * time.Hour
)

// Network describes a chain the wallet can connect dApps to.
type Network struct {
	ChainID          uint64 `json:"chainId" validate:"required"`
	ChainName        string `json:"chainName"`
	RPCURL           string `json:"rpcUrl" validate:"required,url"`
	BlockExplorerURL string `json:"blockExplorerUrl,omitempty"`
	IsTest           bool   `json:"isTest"`
	Layer            uint64 `json:"layer"`
	Enabled          bool   `json:"enabled"`
}

// RateLimitConfig bounds how fast a single tab may push requests into the approval queue.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate; 0 disables limiting.
	RequestsPerSecond float64 `json:"RequestsPerSecond" validate:"min=0"`
	// Burst is the bucket size.
	Burst int `json:"Burst" validate:"min=0"`
}

// Config holds everything the background connector process needs.
type Config struct {
	// ListenAddr is the host:port of the HTTP server (extension websocket, signals, JSON-RPC).
	ListenAddr string `json:"ListenAddr" validate:"required,hostname_port"`

	// Networks is the list of chains dApps may connect to. The first enabled one is the default.
	Networks []Network `json:"Networks" validate:"required,min=1,dive"`

	// RequestTimeout is the page-side round-trip timeout.
	RequestTimeout Duration `json:"RequestTimeout"`

	// SessionTTL is the idle expiry of per-tab sessions.
	SessionTTL Duration `json:"SessionTTL"`

	// RateLimit applies per connected tab.
	RateLimit RateLimitConfig `json:"RateLimit"`

	// MetricsEnabled exposes /metrics and /health.
	MetricsEnabled bool `json:"MetricsEnabled"`

	// KeyStoreDir is the geth keystore used by the built-in signer.
	KeyStoreDir string `json:"KeyStoreDir"`

	// Log configures the process-wide logger.
	Log logutils.LogSettings `json:"Log"`
}

// Duration is a time.Duration that reads "1h30m" style strings from JSON.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch value := raw.(type) {
	case float64:
		d.Duration = time.Duration(value)
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		d.Duration = parsed
	default:
		return fmt.Errorf("invalid duration %s", string(data))
	}
	return nil
}

// NewConfigWithDefaults returns a config usable for local development against mainnet.
func NewConfigWithDefaults() *Config {
	return &Config{
		ListenAddr:     DefaultListenAddr,
		RequestTimeout: Duration{DefaultRequestTimeout},
		SessionTTL:     Duration{DefaultSessionTTL},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 5,
			Burst:             10,
		},
		Networks: []Network{
			{
				ChainID:   1,
				ChainName: "Ethereum Mainnet",
				RPCURL:    "https://ethereum-rpc.publicnode.com",
				Layer:     1,
				Enabled:   true,
			},
		},
		Log: logutils.LogSettings{
			Enabled: true,
			Level:   "INFO",
		},
	}
}

// NewConfigFromJSON applies configJSON on top of the defaults and validates the result.
func NewConfigFromJSON(configJSON string) (*Config, error) {
	config := NewConfigWithDefaults()
	if err := loadConfigFromJSON(configJSON, config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadConfigFromFile reads a JSON config file and applies it on top of the defaults.
func LoadConfigFromFile(path string) (*Config, error) {
	configJSON, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewConfigFromJSON(string(configJSON))
}

func loadConfigFromJSON(configJSON string, config *Config) error {
	// networks from the file replace the defaults instead of being merged into them
	config.Networks = nil
	if err := json.Unmarshal([]byte(configJSON), config); err != nil {
		return err
	}
	if config.Networks == nil {
		config.Networks = NewConfigWithDefaults().Networks
	}
	return nil
}

// NewValidator returns a validator the config structs understand.
func NewValidator() *validator.Validate {
	return validator.New()
}

// Validate checks if Config fields have valid values.
//
// A single error for a struct:
//
//	type TestStruct struct {
//	    TestField string `validate:"required"`
//	}
//
// has the following format:
//
//	Key: 'TestStruct.TestField' Error:Field validation for 'TestField' failed on the 'required' tag
func (c *Config) Validate() error {
	validate := NewValidator()

	if err := validate.Struct(c); err != nil {
		return err
	}

	if c.RequestTimeout.Duration <= 0 {
		return fmt.Errorf("RequestTimeout must be positive, got %s", c.RequestTimeout)
	}

	seen := make(map[uint64]struct{}, len(c.Networks))
	enabled := 0
	for _, network := range c.Networks {
		if _, ok := seen[network.ChainID]; ok {
			return fmt.Errorf("network %d is configured twice", network.ChainID)
		}
		seen[network.ChainID] = struct{}{}

		if _, err := url.ParseRequestURI(network.RPCURL); err != nil {
			return fmt.Errorf("Network.RPCURL '%s' is invalid: %v", network.RPCURL, err.Error())
		}
		if network.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("at least one network must be enabled")
	}

	return nil
}

// String dumps config object as nicely indented JSON
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "    ")
	return string(data)
}
