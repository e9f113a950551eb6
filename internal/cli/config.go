package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/linkgraph/internal/logging"
	"github.com/mesh-intelligence/linkgraph/internal/sweep"
	"github.com/mesh-intelligence/linkgraph/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
	envPrefix      = "LINKGRAPH"

	cfgKeyBackend       = "backend"
	cfgKeyDataDir       = "data_dir"
	cfgKeyDSN           = "dsn"
	cfgKeyScope         = "scope"
	cfgKeyLogLevel      = "log_level"
	cfgKeyLogFormat     = "log_format"
	cfgKeySweepSchedule = "sweep_schedule"
	cfgKeyMetricsAddr   = "metrics_addr"

	defaultScope       = "default"
	defaultLogLevel    = "warn"
	defaultMetricsAddr = "127.0.0.1:9464"
)

// flagKeys binds global flags onto config keys so a set flag beats the
// file and the environment.
var flagKeys = map[string]string{
	"backend":   cfgKeyBackend,
	"dsn":       cfgKeyDSN,
	"log-level": cfgKeyLogLevel,
}

// configFile is the structure written to config.yaml by init.
type configFile struct {
	Backend       string `yaml:"backend"`
	DataDir       string `yaml:"data_dir,omitempty"`
	DSN           string `yaml:"dsn,omitempty"`
	Scope         string `yaml:"scope,omitempty"`
	LogLevel      string `yaml:"log_level,omitempty"`
	LogFormat     string `yaml:"log_format,omitempty"`
	SweepSchedule string `yaml:"sweep_schedule,omitempty"`
	MetricsAddr   string `yaml:"metrics_addr,omitempty"`
}

func defaultConfigFile() configFile {
	return configFile{
		Backend:       types.BackendSQLite,
		Scope:         defaultScope,
		LogLevel:      defaultLogLevel,
		LogFormat:     logging.FormatConsole,
		SweepSchedule: sweep.DefaultSchedule,
		MetricsAddr:   defaultMetricsAddr,
	}
}

// loadConfig reads config.yaml from configDir, then layers LINKGRAPH_*
// environment variables and set flags on top. A missing config.yaml is not
// an error.
func loadConfig(configDir string, fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	d := defaultConfigFile()
	v.SetDefault(cfgKeyBackend, d.Backend)
	v.SetDefault(cfgKeyScope, d.Scope)
	v.SetDefault(cfgKeyLogLevel, d.LogLevel)
	v.SetDefault(cfgKeyLogFormat, d.LogFormat)
	v.SetDefault(cfgKeySweepSchedule, d.SweepSchedule)
	v.SetDefault(cfgKeyMetricsAddr, d.MetricsAddr)
	v.SetDefault(cfgKeyDataDir, "")
	v.SetDefault(cfgKeyDSN, "")

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for name, key := range flagKeys {
		if f := fs.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// writeConfigIfMissing creates config.yaml with default values. An existing
// file is left untouched. It reports whether a file was written.
func writeConfigIfMissing(configDir string, cfg configFile) (bool, error) {
	path := filepath.Join(configDir, configFileExt)
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat config file: %w", err)
	}

	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return false, fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	header := []byte("# linkgraph configuration. LINKGRAPH_* environment variables override these keys.\n")
	return true, os.WriteFile(path, append(header, data...), 0o644)
}
