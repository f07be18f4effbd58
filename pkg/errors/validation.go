package errors

import (
	"strings"
	"unicode"
)

// maxNameLength bounds module and resource names.
const maxNameLength = 128

// ValidateName validates a module or resource name used as a store partition.
//
// The rules keep names usable inside "module.resource" references:
//   - No empty names
//   - No control characters or whitespace
//   - No "." (the module/resource separator)
//   - No "[]" (the array relation suffix)
//   - Maximum length of 128 characters
func ValidateName(kind, name string) error {
	if name == "" {
		return New(ErrCodeInvalidName, "%s name cannot be empty", kind)
	}

	if len(name) > maxNameLength {
		return New(ErrCodeInvalidName, "%s name too long (max %d characters)", kind, maxNameLength)
	}

	for _, r := range name {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidName, "%s name %q contains whitespace or control characters", kind, name)
		}
	}

	if strings.Contains(name, ".") {
		return New(ErrCodeInvalidName, "%s name %q cannot contain %q", kind, name, ".")
	}
	if strings.Contains(name, "[]") {
		return New(ErrCodeInvalidName, "%s name %q cannot contain %q", kind, name, "[]")
	}

	return nil
}
