package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	resourceNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	sshGitPattern       = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+:[a-zA-Z0-9._/~-]+$`)
)

// Validator configures and returns the shared validator instance used across
// the application.
func Validator() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("resource_name", func(fl validator.FieldLevel) bool {
			return resourceNamePattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("git_url", func(fl validator.FieldLevel) bool {
			urlStr := fl.Field().String()
			if strings.TrimSpace(urlStr) == "" {
				return false
			}

			if parsedURL, err := url.Parse(urlStr); err == nil {
				scheme := strings.ToLower(parsedURL.Scheme)
				if (scheme == "http" || scheme == "https" || scheme == "file" || scheme == "ssh") && parsedURL.Host != "" {
					return true
				}
			}

			if sshGitPattern.MatchString(urlStr) {
				return true
			}

			// Local repository paths are valid clone sources.
			return !strings.ContainsAny(urlStr, "\n\t")
		})

		validateInst = v
	})

	return validateInst
}

// CheckName validates a project, pipeline, deployment or package name.
// Valid names contain only alphanumeric, underscore and dash characters.
func CheckName(name string) error {
	if err := Validator().Var(name, "required,resource_name"); err != nil {
		return fmt.Errorf("invalid name %q: only alphanumeric, underscore and dash characters are allowed", name)
	}
	return nil
}
