package config

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Address string `yaml:"address"`
		Port    int    `yaml:"port"`
		TLS     struct {
			CertFile string `yaml:"cert_file"`
			KeyFile  string `yaml:"key_file"`
		} `yaml:"tls"`
	} `yaml:"server"`
	Storage struct {
		DBPath string `yaml:"db_path"`
	} `yaml:"storage"`
	Backend struct {
		// Provider is the generation backend name; only "gemini" is wired.
		Provider string `yaml:"provider"`
		Model    string `yaml:"model"`
		// APIKey is normally supplied via GEMINI_API_KEY instead.
		APIKey string `yaml:"api_key"`
	} `yaml:"backend"`
	Queue struct {
		MaxConcurrent int `yaml:"max_concurrent"`
	} `yaml:"queue"`
	Resummary struct {
		Enabled bool   `yaml:"enabled"`
		Cron    string `yaml:"cron"`
	} `yaml:"resummary"`
	Security struct {
		RateLimit struct {
			RPS   float64 `yaml:"rps"`
			Burst int     `yaml:"burst"`
		} `yaml:"rate_limit"`
	} `yaml:"security"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// Addr returns the listen address in host:port form.
func (c *Config) Addr() string {
	host := c.Server.Address
	if host == "" {
		host = "127.0.0.1"
	}
	port := c.Server.Port
	if port == 0 {
		port = 8080
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Load reads and parses the YAML config at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &c, nil
}

// LoadEffective merges the config file (optional) with environment
// variables. Env wins over file; flags are applied by the caller and win
// over both. The second return reports whether any env override was used.
func LoadEffective(path string) (*Config, bool, error) {
	var c *Config
	if path != "" {
		loaded, err := Load(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, false, err
			}
			c = &Config{}
		} else {
			c = loaded
		}
	} else {
		c = &Config{}
	}

	envUsed := false
	if v := os.Getenv("GPTREE_ADDR"); v != "" {
		host, port, err := net.SplitHostPort(v)
		if err == nil {
			c.Server.Address = host
			if p, perr := strconv.Atoi(port); perr == nil {
				c.Server.Port = p
			}
			envUsed = true
		}
	}
	if v := os.Getenv("GPTREE_DB_PATH"); v != "" {
		c.Storage.DBPath = v
		envUsed = true
	}
	if v := os.Getenv("GPTREE_QUEUE_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Queue.MaxConcurrent = n
			envUsed = true
		}
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Backend.APIKey = v
		envUsed = true
	}
	if v := os.Getenv("GPTREE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
		envUsed = true
	}

	applyDefaults(c)
	return c, envUsed, nil
}

func applyDefaults(c *Config) {
	if c.Storage.DBPath == "" {
		c.Storage.DBPath = "./data/gptree-db"
	}
	if c.Queue.MaxConcurrent <= 0 {
		c.Queue.MaxConcurrent = 3
	}
	if c.Backend.Provider == "" {
		c.Backend.Provider = "gemini"
	}
	if c.Backend.Model == "" {
		c.Backend.Model = "gemini-2.0-flash"
	}
	if c.Resummary.Cron == "" {
		c.Resummary.Cron = "0 * * * *"
	}
}

// ParseCommandFlags parses server command-line flags and reports which were
// explicitly set so callers can let flags win over env/config.
func ParseCommandFlags() (addr, db, cfg string, set map[string]bool) {
	addrFlag := flag.String("addr", "", "listen address (host:port)")
	dbFlag := flag.String("db", "", "path to pebble database directory")
	cfgFlag := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	set = map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return *addrFlag, *dbFlag, *cfgFlag, set
}

// ResolveConfigPath picks the config path from flag or env, flag winning.
func ResolveConfigPath(flagVal string, flagSet bool) string {
	if flagSet && strings.TrimSpace(flagVal) != "" {
		return flagVal
	}
	if v := os.Getenv("GPTREE_CONFIG"); v != "" {
		return v
	}
	return flagVal
}
