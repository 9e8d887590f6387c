package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. SAFT_SOURCE_PATH.
const EnvPrefix = "SAFT"

var defaults = map[string]any{
	"job":                         "saft",
	"source.path":                 "",
	"source.sheet":                "",
	"source.delimiter":            ",",
	"source.timeout":              "30s",
	"source.retries":              3,
	"source.insecure_skip_verify": false,
	"transform.prefix":            "ns1:",
	"transform.date_column":       "InvoiceDate",
	"transform.amount_column":     "CreditAmount",
	"transform.types":             []string{},
	"transform.full":              true,
	"transform.sparse_threshold":  0.7,
	"transform.normalize":         false,
	"quality.dataset":             "SAF-T Processed",
	"quality.skip":                false,
	"output.path":                 "dados_limpos.xlsx",
	"output.format":               "",
	"output.reports_dir":          "relatorios",
	"output.yaml":                 false,
	"storage.kind":                "",
	"storage.dsn":                 "",
	"storage.table":               "saft_sales",
	"storage.batch_size":          5000,
	"storage.auto_create_table":   true,
	"storage.truncate":            false,
	"metrics.backend":             "",
	"metrics.pushgateway_url":     "",
	"metrics.datadog_addr":        "",
	"metrics.namespace":           "saftetl.",
	"metrics.tags":                []string{},
	"log.level":                   "info",
	"log.encoding":                "console",
	"watch.debounce":              "500ms",
}

// Default returns the configuration used when no file or environment
// override is present.
func Default() Pipeline {
	p, err := decode(newViper())
	if err != nil {
		// Defaults are static; a decode failure is a programming error.
		panic(err)
	}
	return p
}

func newViper() *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (Pipeline, error) {
	var p Pipeline
	if err := v.Unmarshal(&p); err != nil {
		return Pipeline{}, fmt.Errorf("decode config: %w", err)
	}
	return p, nil
}

// Load builds the configuration from defaults, the optional file at path
// (yaml, yml or json) and SAFT_* environment variables. A .env file in the
// working directory, when present, is loaded into the environment first.
func Load(path string) (Pipeline, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Pipeline{}, fmt.Errorf("load .env: %w", err)
	}
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Pipeline{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return decode(v)
}
