package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// maxNameLength bounds experiment, library and layout group names.
const maxNameLength = 128

// nameRegex matches identifiers that are safe as file names and cache keys.
var nameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateName validates an experiment, library or layout group name.
// Names end up in output file names, cache keys and HTTP routes, so the
// rules are conservative:
//   - No empty names
//   - No control characters
//   - No path separators or traversal sequences
//   - Must start with a letter or digit
//   - Maximum length of 128 characters
func ValidateName(kind, name string) error {
	if name == "" {
		return New(ErrCodeInvalidName, "%s name cannot be empty", kind)
	}

	if len(name) > maxNameLength {
		return New(ErrCodeInvalidName, "%s name too long (max %d characters)", kind, maxNameLength)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidName, "%s name contains invalid control characters", kind)
		}
	}

	if strings.Contains(name, "..") {
		return New(ErrCodeInvalidName, "%s name contains invalid characters: %q", kind, "..")
	}

	if !nameRegex.MatchString(name) {
		return New(ErrCodeInvalidName, "invalid %s name: %q", kind, name)
	}

	return nil
}

// ValidatePath validates an input file path from a configuration file.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}

// ValidateStoreURL validates a layout store connection URL.
// Redis stores use redis:// or rediss://, Mongo stores use mongodb:// or
// mongodb+srv://.
func ValidateStoreURL(kind, rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidConfig, "%s store URL cannot be empty", kind)
	}

	var schemes []string
	switch kind {
	case "redis":
		schemes = []string{"redis://", "rediss://"}
	case "mongo":
		schemes = []string{"mongodb://", "mongodb+srv://"}
	default:
		return New(ErrCodeInvalidConfig, "store kind %q does not take a URL", kind)
	}

	for _, s := range schemes {
		if strings.HasPrefix(rawURL, s) {
			return nil
		}
	}
	return New(ErrCodeInvalidConfig, "%s store URL must start with one of %s", kind, strings.Join(schemes, ", "))
}
