package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/sheetform/internal/form"
	"github.com/mesh-intelligence/sheetform/internal/paths"
	"github.com/mesh-intelligence/sheetform/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "SHEETFORM"

	cfgKeyBackend         = "backend"
	cfgKeyDataDir         = "data_dir"
	cfgKeyWorkbookFile    = "workbook_file"
	cfgKeySyncStrategy    = "sync_strategy"
	cfgKeyBatchSize       = "batch_size"
	cfgKeyBatchInterval   = "batch_interval"
	cfgKeyCacheTTL        = "cache_ttl"
	cfgKeyLogLevel        = "log_level"
	cfgKeyIdentityTable   = "identity_table"
	cfgKeySummaryPaths    = "summary_paths"
	cfgKeyStrictUnflatten = "features.strict_unflatten"
	cfgKeyDebugTree       = "features.debug_tree"
	cfgKeyRenderTitle     = "render.title"
	cfgKeyRenderLang      = "render.lang"
	cfgKeyRenderByID      = "render.export_by_id"
)

// configFile is the structure written to a fresh config.yaml.
type configFile struct {
	Backend       string            `yaml:"backend"`
	DataDir       string            `yaml:"data_dir,omitempty"`
	SyncStrategy  string            `yaml:"sync_strategy"`
	CacheTTL      string            `yaml:"cache_ttl"`
	LogLevel      string            `yaml:"log_level"`
	IdentityTable string            `yaml:"identity_table"`
	Features      map[string]string `yaml:"features"`
}

func defaultConfigFile(dataDir string) configFile {
	return configFile{
		Backend:       types.BackendSQLite,
		DataDir:       dataDir,
		SyncStrategy:  types.SyncImmediate,
		CacheTTL:      form.DefaultCacheTTL.String(),
		LogLevel:      "warn",
		IdentityTable: types.RecordsTable,
		Features: map[string]string{
			"strict_unflatten": "false",
			"debug_tree":       "false",
		},
	}
}

// settings is the resolved CLI configuration.
type settings struct {
	ConfigDir       string
	Backend         string
	DataDir         string
	WorkbookFile    string
	SyncStrategy    string
	BatchSize       int
	BatchInterval   time.Duration
	CacheTTL        time.Duration
	LogLevel        string
	IdentityTable   string
	SummaryPaths    []types.Path
	StrictUnflatten bool
	DebugTree       bool
	Render          form.RenderOptions
}

// workbookConfig returns the types.Config used to attach the backend.
func (s settings) workbookConfig() types.Config {
	return types.Config{
		Backend:       s.Backend,
		DataDir:       s.DataDir,
		WorkbookFile:  s.WorkbookFile,
		SyncStrategy:  s.SyncStrategy,
		BatchSize:     s.BatchSize,
		BatchInterval: s.BatchInterval,
	}
}

// loadSettings resolves directories, writes a default config.yaml on first
// run and reads it with Viper. SHEETFORM_* environment variables override
// file values; flags override both.
func loadSettings() (settings, error) {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return settings{}, sysErr(fmt.Errorf("resolve config dir: %w", err))
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return settings{}, sysErr(fmt.Errorf("create config directory: %w", err))
	}
	if err := writeConfigIfMissing(paths.ConfigFile(configDir), ""); err != nil {
		return settings{}, sysErr(fmt.Errorf("write config: %w", err))
	}

	v := viper.New()
	d := defaultConfigFile("")
	v.SetDefault(cfgKeyBackend, d.Backend)
	v.SetDefault(cfgKeySyncStrategy, d.SyncStrategy)
	v.SetDefault(cfgKeyBatchSize, types.DefaultBatchSize)
	v.SetDefault(cfgKeyBatchInterval, types.DefaultBatchInterval)
	v.SetDefault(cfgKeyCacheTTL, form.DefaultCacheTTL)
	v.SetDefault(cfgKeyLogLevel, d.LogLevel)
	v.SetDefault(cfgKeyIdentityTable, d.IdentityTable)
	v.SetDefault(cfgKeyStrictUnflatten, "false")
	v.SetDefault(cfgKeyDebugTree, "false")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return settings{}, fmt.Errorf("read config: %w", err)
		}
	}

	dataDir, err := paths.ResolveDataDir(flags.dataDir, v.GetString(cfgKeyDataDir))
	if err != nil {
		return settings{}, sysErr(fmt.Errorf("resolve data dir: %w", err))
	}

	s := settings{
		ConfigDir:       configDir,
		Backend:         v.GetString(cfgKeyBackend),
		DataDir:         dataDir,
		WorkbookFile:    v.GetString(cfgKeyWorkbookFile),
		SyncStrategy:    v.GetString(cfgKeySyncStrategy),
		BatchSize:       v.GetInt(cfgKeyBatchSize),
		BatchInterval:   v.GetDuration(cfgKeyBatchInterval),
		CacheTTL:        v.GetDuration(cfgKeyCacheTTL),
		LogLevel:        v.GetString(cfgKeyLogLevel),
		IdentityTable:   v.GetString(cfgKeyIdentityTable),
		StrictUnflatten: types.ParseFlag(v.GetString(cfgKeyStrictUnflatten), false),
		DebugTree:       types.ParseFlag(v.GetString(cfgKeyDebugTree), false),
		Render: form.RenderOptions{
			Title:      v.GetString(cfgKeyRenderTitle),
			Lang:       v.GetString(cfgKeyRenderLang),
			ExportByID: types.ParseFlag(v.GetString(cfgKeyRenderByID), false),
		},
	}
	if flags.backend != "" {
		s.Backend = flags.backend
	}
	for _, p := range v.GetStringSlice(cfgKeySummaryPaths) {
		if p = strings.TrimSpace(p); p != "" {
			s.SummaryPaths = append(s.SummaryPaths, types.Path(strings.Split(p, ".")))
		}
	}
	if err := s.workbookConfig().Validate(); err != nil {
		return settings{}, fmt.Errorf("config %s: %w", paths.ConfigFile(configDir), err)
	}
	return s, nil
}

// writeConfigIfMissing creates config.yaml with default values if the file
// does not exist. An existing file is left untouched.
func writeConfigIfMissing(path, dataDir string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	data, err := yaml.Marshal(defaultConfigFile(dataDir))
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	header := []byte("# sheetform configuration\n")
	return os.WriteFile(path, append(header, data...), 0o644)
}
