package app

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/agentstation/rirstats/internal/pipeline"
	"github.com/agentstation/rirstats/internal/retriever"
	"github.com/agentstation/rirstats/internal/writer"
	"github.com/agentstation/rirstats/pkg/errors"
	"github.com/agentstation/rirstats/pkg/merger"
	"github.com/agentstation/rirstats/pkg/records"
	"github.com/agentstation/rirstats/pkg/resolver"
)

const envPrefix = "RIRSTATS"

// DefaultRIR lists the published delegated stats of each registry.
var DefaultRIR = map[string]string{
	"afrinic": "https://ftp.afrinic.net/pub/stats/afrinic/delegated-afrinic-extended-latest",
	"apnic":   "https://ftp.apnic.net/stats/apnic/delegated-apnic-extended-latest",
	"arin":    "https://ftp.arin.net/pub/stats/arin/delegated-arin-extended-latest",
	"lacnic":  "https://ftp.lacnic.net/pub/stats/lacnic/delegated-lacnic-extended-latest",
	"ripencc": "https://ftp.ripe.net/pub/stats/ripencc/delegated-ripencc-extended-latest",
}

// DefaultIANA is the IANA delegated stats file.
const DefaultIANA = "https://ftp.apnic.net/stats/iana/delegated-iana-latest"

// Config holds the application configuration loaded from flags,
// environment, .env files and the config file.
type Config struct {
	// Global flags
	Verbose bool
	Quiet   bool
	NoColor bool
	Format  string

	ConfigFile string

	// Merge
	Identifier        string
	Version           string
	Priority          []string
	SourceOrder       []string
	SuppressConflicts []string
	ResolverFile      string

	Inputs pipeline.Inputs

	// Output
	OutputFolder       string
	OutputFile         string
	OutputBackup       bool
	OutputBackupFormat string
	Previous           string
	MetricsFile        string

	// HTTP
	HTTPTimeout time.Duration
	CacheTTL    time.Duration
	CacheFile   string

	// Logging
	LogLevel  string
	LogFormat string
	LogOutput string
}

// LoadConfig loads configuration from all sources in order of precedence:
//  1. Command-line flags (applied later by UpdateFromFlags)
//  2. RIRSTATS_* environment variables
//  3. .env and .env.local
//  4. Config file (~/.rirstats.yaml or ./.rirstats.yaml)
//  5. Defaults
func LoadConfig() (*Config, error) {
	return loadConfig(viper.GetViper(), "")
}

// LoadConfigFile is LoadConfig with an explicit config file.
func LoadConfigFile(path string) (*Config, error) {
	return loadConfig(viper.New(), path)
}

func loadConfig(v *viper.Viper, configFile string) (*Config, error) {
	loadEnvFiles()

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	setDefaults(v)

	if configFile == "" {
		configFile = v.GetString("config")
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewConfigError("config", "cannot read "+configFile, err)
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".rirstats")
		// A missing config file is fine.
		_ = v.ReadInConfig()
	}

	rir := v.GetStringMapString("input.rir")
	if len(rir) == 0 {
		rir = make(map[string]string, len(DefaultRIR))
		for name, uri := range DefaultRIR {
			rir[name] = uri
		}
	}

	config := &Config{
		Verbose: v.GetBool("verbose"),
		Quiet:   v.GetBool("quiet"),
		NoColor: v.GetBool("no-color"),
		Format:  v.GetString("format"),

		ConfigFile: v.ConfigFileUsed(),

		Identifier:        v.GetString("identifier"),
		Version:           v.GetString("version"),
		Priority:          stringList(v, "priority"),
		SourceOrder:       stringList(v, "source_order"),
		SuppressConflicts: stringList(v, "suppress_conflicts"),
		ResolverFile:      v.GetString("resolver.file"),

		Inputs: pipeline.Inputs{
			RIR:   rir,
			IANA:  v.GetString("input.iana"),
			Swaps: v.GetString("input.swaps"),
		},

		OutputFolder:       v.GetString("output.folder"),
		OutputFile:         v.GetString("output.file"),
		OutputBackup:       v.GetBool("output.backup"),
		OutputBackupFormat: v.GetString("output.backup_format"),
		Previous:           v.GetString("output.previous"),
		MetricsFile:        v.GetString("output.metrics_file"),

		HTTPTimeout: v.GetDuration("http.timeout"),
		CacheTTL:    v.GetDuration("http.cache_ttl"),
		CacheFile:   v.GetString("http.cache_file"),

		LogLevel:  os.Getenv("LOG_LEVEL"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "auto"),
		LogOutput: getEnvOrDefault("LOG_OUTPUT", "stderr"),
	}
	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("identifier", merger.DefaultIdentifier)
	v.SetDefault("version", records.DefaultVersion)
	v.SetDefault("input.iana", DefaultIANA)
	v.SetDefault("output.folder", ".")
	v.SetDefault("output.file", writer.DefaultFile)
	v.SetDefault("output.backup_format", writer.DefaultBackupFormat)
	v.SetDefault("http.timeout", retriever.DefaultTimeout)
	v.SetDefault("http.cache_ttl", retriever.DefaultCacheTTL)
}

// stringList reads a list that may also be given as a comma separated
// string, as environment variables are.
func stringList(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}
	var out []string
	for _, item := range v.GetStringSlice(key) {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// ResolverConfig returns the resolver settings: the resolver file if one
// is configured, overridden by any list set in the main configuration.
func (c *Config) ResolverConfig() (resolver.Config, error) {
	cfg := resolver.DefaultConfig()
	if c.ResolverFile != "" {
		loaded, err := resolver.LoadConfig(c.ResolverFile)
		if err != nil {
			return resolver.Config{}, err
		}
		if len(loaded.Priority) > 0 {
			cfg.Priority = loaded.Priority
		}
		if loaded.SourceOrder != nil {
			cfg.SourceOrder = loaded.SourceOrder
		}
		if loaded.SuppressConflicts != nil {
			cfg.SuppressConflicts = loaded.SuppressConflicts
		}
	}
	if len(c.Priority) > 0 {
		cfg.Priority = c.Priority
	}
	if len(c.SourceOrder) > 0 {
		cfg.SourceOrder = c.SourceOrder
	}
	if c.SuppressConflicts != nil {
		cfg.SuppressConflicts = c.SuppressConflicts
	}
	return cfg, nil
}

// UpdateFromFlags applies parsed global flags, which take precedence over
// every other source. Unset flags keep the loaded values.
func (c *Config) UpdateFromFlags(verbose, quiet, noColor bool, format, logLevel string) {
	c.Verbose = c.Verbose || verbose
	c.Quiet = c.Quiet || quiet
	c.NoColor = c.NoColor || noColor
	if format != "" {
		c.Format = format
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
}

// loadEnvFiles loads .env files; .env.local does not override .env
// because godotenv never overwrites variables already set.
func loadEnvFiles() {
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Load(envFile)
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
