package http

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateName accepts the short alphanumeric identifiers used for channel
// and resource names in paths.
func ValidateName(s string) error {
	return validate.Var(s, "required,alphanum,max=64")
}

// PathSegments splits the remainder of path after prefix into its non-empty
// segments. ok is false when path does not start with prefix.
func PathSegments(path, prefix string) ([]string, bool) {
	if !strings.HasPrefix(path, prefix) {
		return nil, false
	}
	var out []string
	for _, part := range strings.Split(strings.TrimPrefix(path, prefix), "/") {
		if part != "" {
			out = append(out, part)
		}
	}
	return out, true
}
