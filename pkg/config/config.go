package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultEntryLimit         = 100000
	defaultTransactionTimeout = 3 * time.Second
	defaultDNSTimeout         = 5 * time.Second
	defaultNameserver         = "8.8.8.8:53"

	PoolingDefault = "default"
	PoolingNull    = "null"
)

// Config is the burrow configuration file
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
	Storage StorageConfig `yaml:"storage"`
	MDNS    MDNSConfig    `yaml:"mdns"`
	DNS     DNSConfig     `yaml:"dns"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type MetricsConfig struct {
	// Addr serves /metrics and /health when set
	Addr string `yaml:"addr"`
}

type StorageConfig struct {
	// DataDir holds the record journal; empty disables it
	DataDir string `yaml:"data_dir"`
}

type MDNSConfig struct {
	EntryLimit         int           `yaml:"entry_limit"`
	TransactionTimeout time.Duration `yaml:"transaction_timeout"`
	IPv4               bool          `yaml:"ipv4"`
	IPv6               bool          `yaml:"ipv6"`
	Interfaces         []string      `yaml:"interfaces"`
}

type DNSConfig struct {
	Nameservers []string      `yaml:"nameservers"`
	Pooling     string        `yaml:"pooling"`
	Timeout     time.Duration `yaml:"timeout"`
	TCPFallback bool          `yaml:"tcp_fallback"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		MDNS: MDNSConfig{
			EntryLimit:         defaultEntryLimit,
			TransactionTimeout: defaultTransactionTimeout,
			IPv4:               true,
			IPv6:               true,
		},
		DNS: DNSConfig{
			Nameservers: []string{defaultNameserver},
			Pooling:     PoolingDefault,
			Timeout:     defaultDNSTimeout,
			TCPFallback: true,
		},
	}
}

// Load reads a YAML file over the defaults and validates the result.
// Keys missing from the file keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the engines cannot run with
func (c *Config) Validate() error {
	var errs []error

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}

	if c.MDNS.EntryLimit <= 0 {
		errs = append(errs, errors.New("mdns.entry_limit must be positive"))
	}
	if c.MDNS.TransactionTimeout <= 0 {
		errs = append(errs, errors.New("mdns.transaction_timeout must be positive"))
	}
	if !c.MDNS.IPv4 && !c.MDNS.IPv6 {
		errs = append(errs, errors.New("mdns: at least one of ipv4 and ipv6 must be enabled"))
	}

	if len(c.DNS.Nameservers) == 0 {
		errs = append(errs, errors.New("dns.nameservers must not be empty"))
	}
	if _, err := c.Nameservers(); err != nil {
		errs = append(errs, err)
	}
	switch c.DNS.Pooling {
	case PoolingDefault, PoolingNull:
	default:
		errs = append(errs, fmt.Errorf("dns.pooling: unknown policy %q", c.DNS.Pooling))
	}
	if c.DNS.Timeout <= 0 {
		errs = append(errs, errors.New("dns.timeout must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Nameservers parses the configured nameserver addresses. An entry
// without a port gets port 53.
func (c *Config) Nameservers() ([]netip.AddrPort, error) {
	servers := make([]netip.AddrPort, 0, len(c.DNS.Nameservers))
	for _, s := range c.DNS.Nameservers {
		addr, err := ParseNameserver(s)
		if err != nil {
			return nil, err
		}
		servers = append(servers, addr)
	}
	return servers, nil
}

// ParseNameserver parses "host:port" or a bare IP address
func ParseNameserver(s string) (netip.AddrPort, error) {
	if addr, err := netip.ParseAddrPort(s); err == nil {
		return addr, nil
	}
	ip, err := netip.ParseAddr(s)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("dns.nameservers: invalid address %q", s)
	}
	return netip.AddrPortFrom(ip, 53), nil
}
