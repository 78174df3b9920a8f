package settings

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"geo-redirector/internal/common/errors"
)

const maxTextLength = 1000

var (
	// E.164-like: digits only, 7-15 of them, no leading zero.
	phonePattern = regexp.MustCompile(`^[1-9][0-9]{6,14}$`)
	// Channel identifiers: word characters, 5-32 long.
	channelPattern = regexp.MustCompile(`^[A-Za-z0-9_]{5,32}$`)
	// HTTP/HTTPS URL with a dot-separated host label and optional path/query.
	urlPattern = regexp.MustCompile(`^https?://[A-Za-z0-9-]+(\.[A-Za-z0-9-]+)+(:[0-9]+)?(/[^\s]*)?(\?[^\s]*)?$`)
)

var presentationModes = []string{"immediate", "delayed", "custom"}

// normalized returns the record with case-insensitive inputs folded to their
// canonical form.
func (c Config) normalized() Config {
	c.RedirectPresentationMode = strings.ToLower(strings.TrimSpace(c.RedirectPresentationMode))
	return c
}

// Validate checks every field of the record against its shape and returns all
// violations, not just the first.
func Validate(cfg Config) []errors.FieldError {
	var fields []errors.FieldError

	checkPhone := func(name, value string) {
		if !phonePattern.MatchString(value) {
			fields = append(fields, errors.FieldError{
				Field:  name,
				Reason: "must be 7-15 digits and must not start with 0",
			})
		}
	}
	checkChannel := func(name, value string) {
		if !channelPattern.MatchString(value) {
			fields = append(fields, errors.FieldError{
				Field:  name,
				Reason: "must be 5-32 letters, digits or underscores",
			})
		}
	}
	checkURL := func(name, value string) {
		if !urlPattern.MatchString(value) {
			fields = append(fields, errors.FieldError{
				Field:  name,
				Reason: "must be an http(s) URL with a valid host",
			})
		}
	}
	checkText := func(name, value string) {
		if utf8.RuneCountInString(value) > maxTextLength {
			fields = append(fields, errors.FieldError{
				Field:  name,
				Reason: fmt.Sprintf("must be at most %d characters", maxTextLength),
			})
		}
	}

	checkPhone("default_destination_number", cfg.DefaultDestinationNumber)
	checkPhone("turkey_destination_number", cfg.TurkeyDestinationNumber)
	checkText("default_text", cfg.DefaultText)
	checkText("turkey_text", cfg.TurkeyText)
	checkChannel("default_channel_name", cfg.DefaultChannelName)
	checkChannel("turkey_channel_name", cfg.TurkeyChannelName)
	checkURL("default_website_url", cfg.DefaultWebsiteURL)
	checkURL("turkey_website_url", cfg.TurkeyWebsiteURL)

	validMode := false
	for _, mode := range presentationModes {
		if cfg.RedirectPresentationMode == mode {
			validMode = true
			break
		}
	}
	if !validMode {
		fields = append(fields, errors.FieldError{
			Field:  "redirect_presentation_mode",
			Reason: "must be one of: " + strings.Join(presentationModes, ", "),
		})
	}

	if cfg.RedirectDelayMs < 0 || cfg.RedirectDelayMs > 30000 {
		fields = append(fields, errors.FieldError{
			Field:  "redirect_delay_ms",
			Reason: "must be between 0 and 30000",
		})
	}

	return fields
}
