// Copyright 2026 The Govisor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads topovisord settings from flags, environment
// variables and an optional config file, in that order of precedence.
//
// The container-level variables PORT, APP_ENV and OTEL_ENABLED are read
// without a prefix, since they are usually set by the hosting platform.
// Everything else uses the TOPOVISOR_ prefix, e.g. TOPOVISOR_WORKER_IDLE.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "TOPOVISOR"

// Keys.
const (
	KeyConfigFile        = "config"
	KeyAddr              = "addr"
	KeyPort              = "port"
	KeyEnv               = "env"
	KeyName              = "name"
	KeyOtelEnabled       = "otel_enabled"
	KeyTraceExporter     = "trace_exporter"
	KeyOTLPEndpoint      = "otlp_endpoint"
	KeyMetricsEnabled    = "metrics_enabled"
	KeySupervisorctl     = "supervisorctl"
	KeySupervisorConf    = "supervisor_conf"
	KeyPs                = "ps"
	KeyCommandTimeout    = "command_timeout"
	KeyWorkerEnabled     = "worker_enabled"
	KeyWorkerIdle        = "worker_idle"
	KeyWorkerRecovery    = "worker_recovery"
	KeyWorkerHealthEvery = "worker_health_every"
	KeyMaxConns          = "max_conns"
	KeyLogRecords        = "log_records"
	KeyAuthUser          = "auth_user"
	KeyAuthHash          = "auth_hash"
)

var ErrInvalid = errors.New("Invalid configuration")

type Config struct {
	Addr              string
	Port              int
	Env               string
	Name              string
	OtelEnabled       bool
	TraceExporter     string
	OTLPEndpoint      string
	MetricsEnabled    bool
	Supervisorctl     string
	SupervisorConf    string
	Ps                string
	CommandTimeout    time.Duration
	WorkerEnabled     bool
	WorkerIdle        time.Duration
	WorkerRecovery    time.Duration
	WorkerHealthEvery int
	MaxConns          int
	LogRecords        int
	AuthUser          string
	AuthHash          string // bcrypt hash of the basic auth password
}

// ListenAddr is the host:port to listen on.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.Addr, strconv.Itoa(c.Port))
}

// Development is true when running with APP_ENV=development.
func (c *Config) Development() bool {
	return c.Env == "development"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyAddr, "0.0.0.0")
	v.SetDefault(KeyPort, 8080)
	v.SetDefault(KeyEnv, "development")
	v.SetDefault(KeyName, "topovisord")
	v.SetDefault(KeyOtelEnabled, false)
	v.SetDefault(KeyTraceExporter, "stdout")
	v.SetDefault(KeyOTLPEndpoint, "localhost:4317")
	v.SetDefault(KeyMetricsEnabled, true)
	v.SetDefault(KeySupervisorctl, "supervisorctl")
	v.SetDefault(KeySupervisorConf, "/etc/supervisor/conf.d/supervisord.conf")
	v.SetDefault(KeyPs, "ps")
	v.SetDefault(KeyCommandTimeout, "5s")
	v.SetDefault(KeyWorkerEnabled, true)
	v.SetDefault(KeyWorkerIdle, "30s")
	v.SetDefault(KeyWorkerRecovery, "5s")
	v.SetDefault(KeyWorkerHealthEvery, 10)
	v.SetDefault(KeyMaxConns, 0)
	v.SetDefault(KeyLogRecords, 1000)
	v.SetDefault(KeyAuthUser, "")
	v.SetDefault(KeyAuthHash, "")
}

func bindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	// Platform conventions, shared with the rest of the container.
	for key, env := range map[string]string{
		KeyPort:         "PORT",
		KeyEnv:          "APP_ENV",
		KeyOtelEnabled:  "OTEL_ENABLED",
		KeyOTLPEndpoint: "OTEL_EXPORTER_OTLP_ENDPOINT",
	} {
		if e := v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(key), env); e != nil {
			return e
		}
	}
	return nil
}

// Flags registers the command line flags understood by Load.
func Flags(fs *pflag.FlagSet) {
	fs.StringP(KeyConfigFile, "c", "", "config file (yaml, json or toml)")
	fs.StringP(KeyAddr, "a", "0.0.0.0", "listen address")
	fs.IntP(KeyPort, "p", 8080, "listen port")
	fs.StringP(KeyName, "n", "topovisord", "service name")
	fs.String(KeySupervisorctl, "supervisorctl", "path of supervisorctl")
	fs.String(KeySupervisorConf, "/etc/supervisor/conf.d/supervisord.conf", "supervisord config passed to supervisorctl")
	fs.Duration(KeyCommandTimeout, 5*time.Second, "timeout for each ps/supervisorctl run")
	fs.Bool(KeyWorkerEnabled, true, "run the background worker")
	fs.Int(KeyMaxConns, 0, "maximum concurrent connections (0 = unlimited)")
}

// Load reads the configuration.  Flags that were not set on the command
// line do not override environment or file values.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if e := bindEnv(v); e != nil {
		return nil, e
	}
	if fs != nil {
		if e := v.BindPFlags(fs); e != nil {
			return nil, e
		}
	}
	if file := v.GetString(KeyConfigFile); file != "" {
		v.SetConfigFile(file)
		if e := v.ReadInConfig(); e != nil {
			return nil, fmt.Errorf("read config %s: %w", file, e)
		}
	}

	c := &Config{
		Addr:              v.GetString(KeyAddr),
		Port:              v.GetInt(KeyPort),
		Env:               v.GetString(KeyEnv),
		Name:              v.GetString(KeyName),
		OtelEnabled:       v.GetBool(KeyOtelEnabled),
		TraceExporter:     v.GetString(KeyTraceExporter),
		OTLPEndpoint:      v.GetString(KeyOTLPEndpoint),
		MetricsEnabled:    v.GetBool(KeyMetricsEnabled),
		Supervisorctl:     v.GetString(KeySupervisorctl),
		SupervisorConf:    v.GetString(KeySupervisorConf),
		Ps:                v.GetString(KeyPs),
		CommandTimeout:    v.GetDuration(KeyCommandTimeout),
		WorkerEnabled:     v.GetBool(KeyWorkerEnabled),
		WorkerIdle:        v.GetDuration(KeyWorkerIdle),
		WorkerRecovery:    v.GetDuration(KeyWorkerRecovery),
		WorkerHealthEvery: v.GetInt(KeyWorkerHealthEvery),
		MaxConns:          v.GetInt(KeyMaxConns),
		LogRecords:        v.GetInt(KeyLogRecords),
		AuthUser:          v.GetString(KeyAuthUser),
		AuthHash:          v.GetString(KeyAuthHash),
	}
	if e := c.validate(); e != nil {
		return nil, e
	}
	return c, nil
}

func (c *Config) validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("%w: port %d", ErrInvalid, c.Port)
	case c.WorkerIdle <= 0:
		return fmt.Errorf("%w: worker_idle must be positive", ErrInvalid)
	case c.WorkerRecovery <= 0:
		return fmt.Errorf("%w: worker_recovery must be positive", ErrInvalid)
	case c.CommandTimeout <= 0:
		return fmt.Errorf("%w: command_timeout must be positive", ErrInvalid)
	case (c.AuthUser == "") != (c.AuthHash == ""):
		return fmt.Errorf("%w: auth_user and auth_hash go together", ErrInvalid)
	}
	switch c.TraceExporter {
	case "stdout", "otlp", "none":
	default:
		return fmt.Errorf("%w: trace_exporter %q", ErrInvalid, c.TraceExporter)
	}
	return nil
}
