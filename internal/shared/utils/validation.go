package utils

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bytedance/sonic"
)

// Size limits for client supplied values (in bytes)
const (
	MaxMessageSize  = 16 * 1024 // single UI log message
	MaxContextSize  = 64 * 1024 // encoded UI log context map
	MaxContextDepth = 8
	MaxPasswordSize = 1024
)

// ValidateString checks a required or optional string against a byte limit
func ValidateString(value, fieldName string, maxLen int, required bool) error {
	if strings.TrimSpace(value) == "" {
		if required {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
	if len(value) > maxLen {
		return fmt.Errorf("%s exceeds %d bytes", fieldName, maxLen)
	}
	if !utf8.ValidString(value) {
		return fmt.Errorf("%s is not valid UTF-8", fieldName)
	}
	return nil
}

// ValidatePassword bounds a folder password attempt. Empty attempts are
// allowed and simply fail the comparison.
func ValidatePassword(password string) error {
	if len(password) > MaxPasswordSize {
		return fmt.Errorf("password exceeds %d bytes", MaxPasswordSize)
	}
	return nil
}

// ValidateContext checks the size and nesting of a UI log context map
func ValidateContext(context map[string]interface{}) error {
	if len(context) == 0 {
		return nil
	}
	data, err := sonic.Marshal(context)
	if err != nil {
		return fmt.Errorf("invalid context: %w", err)
	}
	if len(data) > MaxContextSize {
		return fmt.Errorf("context size %d bytes exceeds maximum %d bytes", len(data), MaxContextSize)
	}
	return ValidateJSONDepth(context, MaxContextDepth)
}

// ValidateJSONDepth checks if decoded JSON nesting depth is within limits
func ValidateJSONDepth(data interface{}, maxDepth int) error {
	return checkDepth(data, 0, maxDepth)
}

func checkDepth(data interface{}, currentDepth int, maxDepth int) error {
	if currentDepth > maxDepth {
		return fmt.Errorf("JSON nesting depth %d exceeds maximum %d", currentDepth, maxDepth)
	}

	switch v := data.(type) {
	case map[string]interface{}:
		for _, value := range v {
			if err := checkDepth(value, currentDepth+1, maxDepth); err != nil {
				return err
			}
		}
	case []interface{}:
		for _, value := range v {
			if err := checkDepth(value, currentDepth+1, maxDepth); err != nil {
				return err
			}
		}
	}

	return nil
}
