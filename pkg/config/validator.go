package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RegisterCustomValidators registers custom validation functions
func RegisterCustomValidators(v *validator.Validate) error {
	return v.RegisterValidation("url_path", validateURLPath)
}

// validateURLPath accepts an absolute path without query or trailing slash.
func validateURLPath(fl validator.FieldLevel) bool {
	path := fl.Field().String()
	if path == "/" {
		return true
	}
	if !strings.HasPrefix(path, "/") || strings.HasSuffix(path, "/") {
		return false
	}
	return !strings.ContainsAny(path, "?#")
}

func validateCustom(config *Config) error {
	if root := config.Server.RootPath; root != "" {
		if !strings.HasPrefix(root, "/") {
			return fmt.Errorf("server root_path must start with '/': got %s", root)
		}
	}
	if strings.HasPrefix(config.Monitoring.Path, config.Server.APIPrefix+"/") {
		return fmt.Errorf("monitoring path cannot be under %s", config.Server.APIPrefix)
	}
	if raw := config.Auth.OpenIDServerURL; raw != "" {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("auth open_id_server_url must be an absolute URL: got %q", raw)
		}
	}
	return nil
}
