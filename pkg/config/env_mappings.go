package config

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
)

// EnvMapping represents a mapping between environment variable and config path
type EnvMapping struct {
	EnvVar     string
	ConfigPath string
	Sensitive  bool
}

var (
	cachedMappings []EnvMapping
	mappingsOnce   sync.Once
)

// GenerateEnvMappings derives environment variable mappings from the `env` struct tags.
func GenerateEnvMappings() []EnvMapping {
	mappingsOnce.Do(func() {
		cachedMappings = extractMappings(reflect.TypeOf(Config{}), "")
	})
	return cachedMappings
}

func extractMappings(t reflect.Type, prefix string) []EnvMapping {
	var mappings []EnvMapping
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		koanfTag := field.Tag.Get("koanf")
		if koanfTag == "" || koanfTag == "-" {
			continue
		}
		path := koanfTag
		if prefix != "" {
			path = prefix + "." + koanfTag
		}
		if envTag := field.Tag.Get("env"); envTag != "" && envTag != "-" {
			mappings = append(mappings, EnvMapping{
				EnvVar:     envTag,
				ConfigPath: path,
				Sensitive:  isSensitiveField(field),
			})
		}
		if field.Type.Kind() == reflect.Struct && field.Type.PkgPath() != "time" {
			mappings = append(mappings, extractMappings(field.Type, path)...)
		}
	}
	return mappings
}

func isSensitiveField(field reflect.StructField) bool {
	if field.Type == reflect.TypeOf(SensitiveString("")) {
		return true
	}
	return field.Tag.Get("sensitive") == "true"
}

// GenerateEnvToConfigMap generates a map from env var to config path
func GenerateEnvToConfigMap() map[string]string {
	mappings := GenerateEnvMappings()
	result := make(map[string]string, len(mappings))
	for _, m := range mappings {
		result[m.EnvVar] = m.ConfigPath
	}
	return result
}

// GetEnvVarForConfigPath returns the environment variable for a given config path
func GetEnvVarForConfigPath(configPath string) string {
	for _, m := range GenerateEnvMappings() {
		if m.ConfigPath == configPath {
			return m.EnvVar
		}
	}
	return ""
}

// IsSensitiveConfigPath checks if a config path is marked as sensitive
func IsSensitiveConfigPath(configPath string) bool {
	for _, m := range GenerateEnvMappings() {
		if m.ConfigPath == configPath {
			return m.Sensitive
		}
	}
	return false
}

// Summary lists every env-mapped setting as "path=value" with secrets redacted.
func Summary(cfg *Config) []string {
	if cfg == nil {
		return nil
	}
	root := reflect.ValueOf(*cfg)
	var out []string
	for _, m := range GenerateEnvMappings() {
		v, ok := lookupPath(root, strings.Split(m.ConfigPath, "."))
		if !ok {
			continue
		}
		value := fmt.Sprint(v.Interface())
		if m.Sensitive && value != "" {
			value = redactedValue
		}
		out = append(out, m.ConfigPath+"="+value)
	}
	sort.Strings(out)
	return out
}

func lookupPath(v reflect.Value, parts []string) (reflect.Value, bool) {
	for _, part := range parts {
		if v.Kind() != reflect.Struct {
			return reflect.Value{}, false
		}
		found := false
		for i := 0; i < v.NumField(); i++ {
			if v.Type().Field(i).Tag.Get("koanf") == part {
				v = v.Field(i)
				found = true
				break
			}
		}
		if !found {
			return reflect.Value{}, false
		}
	}
	return v, true
}
