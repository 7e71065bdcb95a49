package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// envPrefix задаёт префикс переменных окружения, SHEETFILL_TEMPLATE → template.
const envPrefix = "SHEETFILL_"

// Config: параметры команды render.
type Config struct {
	Template string   `koanf:"template"`
	Output   string   `koanf:"output"`
	Data     []string `koanf:"data"`
	Set      []string `koanf:"set"`
	Verbose  bool     `koanf:"verbose"`
}

// findConfigFile: явный путь > sheetfill.yaml > sheetfill.yml.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"sheetfill.yaml", "sheetfill.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// LoadConfig читает конфигурацию. Приоритет (от высшего): флаги > переменные
// окружения > файл конфигурации > значения по умолчанию.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"data":    []string{},
		"set":     []string{},
		"verbose": false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("значения по умолчанию: %w", err)
	}

	if path := findConfigFile(cfgFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("чтение конфигурации %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("переменные окружения: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed || f.Name == "config" {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			if f.Value.Type() == "stringArray" {
				v, _ := flags.GetStringArray(f.Name)
				return key, v
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("флаги: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("разбор конфигурации: %w", err)
	}
	cfg.Data = splitList(cfg.Data)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет обязательные параметры.
func (c *Config) Validate() error {
	var errs []error
	if c.Template == "" {
		errs = append(errs, errors.New("не задан шаблон (--template)"))
	}
	if c.Output == "" {
		errs = append(errs, errors.New("не задан файл результата (--output)"))
	}
	return errors.Join(errs...)
}

// splitList раскрывает элементы через запятую: из окружения список
// файлов приходит одной строкой.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
