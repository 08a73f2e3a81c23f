package validate

import (
	"errors"
	"fmt"
	"regexp"
	"unicode/utf8"
)

const (
	SlugMinLength        = 3
	SlugMaxLength        = 50
	DisplayNameMaxLength = 100
	BioMaxLength         = 1000
)

var slugPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Slug is a public profile handle: 3 to 50 letters, digits, '-' or '_'
func Slug(slug string) error {
	if err := Length(slug, SlugMinLength, SlugMaxLength); err != nil {
		return err
	}

	if !slugPattern.MatchString(slug) {
		return errors.New("only latin letters, digits, '-' and '_' are allowed")
	}

	return nil
}

// Check string length in runes, max <= 0 means no upper limit
func Length(value string, minLen int, maxLen int) error {
	n := utf8.RuneCountInString(value)

	switch {
	case n < minLen:
		return fmt.Errorf("too short, minimum %d characters", minLen)
	case maxLen > 0 && n > maxLen:
		return fmt.Errorf("too long, maximum %d characters", maxLen)
	default:
		return nil
	}
}
