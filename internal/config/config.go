// Package config resolves httpwatch's runtime configuration: CLI flags
// bound through viper, an optional `~/.httpwatchrc` file, and change
// notifications when that file is edited.
package config

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configFileName = ".httpwatchrc"

	keyInterface       = "interface"
	keyPort            = "port"
	keyBPFFilter       = "bpf_filter"
	keyExportPath      = "export_path"
	keyLogPath         = "log_path"
	keyIdleFlowTimeout = "idle_flow_timeout"
	keyDebug           = "debug"

	// DefaultPort is the build-time default observation port, overridable
	// via --port or the config file.
	DefaultPort = 80
)

// Config is the resolved, typed view of httpwatch's runtime settings.
type Config struct {
	Interface       string
	Port            int
	BPFFilter       string
	ExportPath      string
	LogPath         string
	IdleFlowTimeout int // seconds; 0 disables idle-flow eviction
	Debug           bool
}

// Loader owns the viper instance so config.Watch can push live updates
// back to the same object that produced the initial Config.
type Loader struct {
	v *viper.Viper
}

// RegisterFlags declares the flags New expects to find on flags.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("interface", "", "capture interface name (e.g. eth0, lo0)")
	flags.Int("port", DefaultPort, "observation port")
	flags.String("bpf-filter", "", "BPF filter override (default derived from --port)")
	flags.String("export", "", "path to write a plain-text transaction export")
	flags.String("log-file", "", "optional append-mode log file")
	flags.Int("idle-timeout", 0, "seconds of inactivity before an unfinished flow is evicted (0 disables)")
	flags.Bool("debug", false, "enable debug-level logging")
}

// New binds flags and config-file/env sources and returns a Loader. flags
// is expected to be the root command's *pflag.FlagSet: one CLI
// flag/argument selects the interface name, and the rest configure the
// ambient settings (ports, paths, timeouts).
func New(flags *pflag.FlagSet) (*Loader, error) {
	v := viper.New()

	v.SetDefault(keyPort, DefaultPort)
	v.SetDefault(keyBPFFilter, "")
	v.SetDefault(keyIdleFlowTimeout, 0)

	if err := v.BindPFlag(keyInterface, flags.Lookup("interface")); err != nil {
		return nil, errors.Wrap(err, "bind --interface")
	}
	if err := v.BindPFlag(keyPort, flags.Lookup("port")); err != nil {
		return nil, errors.Wrap(err, "bind --port")
	}
	if err := v.BindPFlag(keyBPFFilter, flags.Lookup("bpf-filter")); err != nil {
		return nil, errors.Wrap(err, "bind --bpf-filter")
	}
	if err := v.BindPFlag(keyExportPath, flags.Lookup("export")); err != nil {
		return nil, errors.Wrap(err, "bind --export")
	}
	if err := v.BindPFlag(keyLogPath, flags.Lookup("log-file")); err != nil {
		return nil, errors.Wrap(err, "bind --log-file")
	}
	if err := v.BindPFlag(keyIdleFlowTimeout, flags.Lookup("idle-timeout")); err != nil {
		return nil, errors.Wrap(err, "bind --idle-timeout")
	}
	if err := v.BindPFlag(keyDebug, flags.Lookup("debug")); err != nil {
		return nil, errors.Wrap(err, "bind --debug")
	}

	v.SetEnvPrefix("HTTPWATCH")
	v.AutomaticEnv()

	home, err := homedir.Dir()
	if err == nil {
		v.SetConfigName(configFileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(home)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrapf(err, "read config file %s", filepath.Join(home, configFileName))
		}
	}

	return &Loader{v: v}, nil
}

// Current snapshots the loader's present values into a Config.
func (l *Loader) Current() Config {
	return Config{
		Interface:       l.v.GetString(keyInterface),
		Port:            l.v.GetInt(keyPort),
		BPFFilter:       l.v.GetString(keyBPFFilter),
		ExportPath:      l.v.GetString(keyExportPath),
		LogPath:         l.v.GetString(keyLogPath),
		IdleFlowTimeout: l.v.GetInt(keyIdleFlowTimeout),
		Debug:           l.v.GetBool(keyDebug),
	}
}

// Watch invokes onChange with a fresh snapshot of every field whenever
// the config file changes on disk. It applies nothing itself: an active
// capture session keeps the settings it was started with.
func (l *Loader) Watch(onChange func(Config)) {
	l.v.OnConfigChange(func(fsnotify.Event) {
		onChange(l.Current())
	})
	l.v.WatchConfig()
}
