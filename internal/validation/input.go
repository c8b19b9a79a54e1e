package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Input limits enforced before a request is built.
const (
	MaxQueryLength      = 512
	MaxScreenNameLength = 32
	MaxCaptchaKeyLength = 32
	MaxMethodLength     = 64
)

var (
	screenNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.]+$`)
	methodPattern     = regexp.MustCompile(`^[A-Za-z]+(\.[A-Za-z]+)?$`)
)

// ParsePositiveInt parses a string as a positive integer.
// Returns error if the value is not a positive integer or exceeds int32 range.
func ParsePositiveInt(s string, fieldName string) (int, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", fieldName, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", fieldName)
	}
	return int(n), nil
}

// ParseID parses a positive 64-bit user, community or message id.
func ParseID(s string, fieldName string) (int64, error) {
	s = strings.TrimSpace(s)
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: not a number", fieldName, s)
	}
	if id <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer, got %d", fieldName, id)
	}
	return id, nil
}

// ParseIDList parses ids separated by commas or whitespace. Duplicates are
// kept in order; callers that need a set must dedupe.
func ParseIDList(s string, fieldName string) ([]int64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	if len(fields) == 0 {
		return nil, fmt.Errorf("invalid %s: at least one id is required", fieldName)
	}
	ids := make([]int64, 0, len(fields))
	for _, f := range fields {
		id, err := ParseID(f, fieldName)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ValidateScreenName checks a vk.com short address such as "apiclub" or "durov".
func ValidateScreenName(name string) error {
	if name == "" {
		return fmt.Errorf("screen name cannot be empty")
	}
	if len(name) > MaxScreenNameLength {
		return fmt.Errorf("screen name exceeds maximum length of %d characters (got %d)", MaxScreenNameLength, len(name))
	}
	if !screenNamePattern.MatchString(name) {
		return fmt.Errorf("invalid screen name %q: only letters, digits, '_' and '.' are allowed", name)
	}
	return nil
}

// ValidateQuery checks a free-text search query.
func ValidateQuery(q string) error {
	if strings.TrimSpace(q) == "" {
		return fmt.Errorf("search query cannot be empty")
	}
	length := utf8.RuneCountInString(q)
	if length > MaxQueryLength {
		return fmt.Errorf("search query exceeds maximum length of %d characters (got %d)", MaxQueryLength, length)
	}
	return nil
}

// ValidateMethodName checks an API method name such as "users.get" or
// "isAppUser" before it is used as a URL path segment.
func ValidateMethodName(method string) error {
	if method == "" {
		return fmt.Errorf("method name cannot be empty")
	}
	if len(method) > MaxMethodLength {
		return fmt.Errorf("method name exceeds maximum length of %d characters", MaxMethodLength)
	}
	if !methodPattern.MatchString(method) {
		return fmt.Errorf("invalid method name %q: expected section.method", method)
	}
	return nil
}

// ValidateCaptchaKey checks a user-typed captcha answer.
func ValidateCaptchaKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("captcha answer cannot be empty")
	}
	if utf8.RuneCountInString(key) > MaxCaptchaKeyLength {
		return fmt.Errorf("captcha answer exceeds maximum length of %d characters", MaxCaptchaKeyLength)
	}
	return nil
}
