package dealroom

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

const (
	// MaxBlurbLength bounds the investment blurb.
	MaxBlurbLength = 500
	// MaxSummaryLength bounds the investment summary.
	MaxSummaryLength = 10000
)

const (
	blurbViolation   = "investmentBlurb must not exceed 500 characters"
	summaryViolation = "investmentSummary must not exceed 10,000 characters"
)

// ValidationResult collects every violation found in a draft payload.
type ValidationResult struct {
	IsValid bool
	Errors  []string
}

// IsValidURL reports whether raw parses as an absolute URL. Acceptance
// mirrors the browser URL constructor: any scheme passes ("ftp://..." is
// fine) but scheme-less strings like "example.com" are rejected.
func IsValidURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return parsed.Scheme != ""
}

// ValidateDraftInput checks a draft save request. All violations are
// collected and returned together rather than failing fast; array violations
// carry a 1-based item index.
func ValidateDraftInput(projectID, sessionID string, data DraftData) ValidationResult {
	var violations []string

	if strings.TrimSpace(projectID) == "" {
		violations = append(violations, "projectId is required")
	}
	if strings.TrimSpace(sessionID) == "" {
		violations = append(violations, "sessionId is required")
	}
	violations = append(violations, collectDataViolations(data)...)

	return ValidationResult{IsValid: len(violations) == 0, Errors: violations}
}

// ValidatePatch checks a sparse deal room update payload with the same field
// rules as draft validation, without the project/session requirements.
func ValidatePatch(data DraftData) ValidationResult {
	violations := collectDataViolations(data)
	return ValidationResult{IsValid: len(violations) == 0, Errors: violations}
}

func collectDataViolations(data DraftData) []string {
	var violations []string

	if data.InvestmentBlurb != nil && utf8.RuneCountInString(*data.InvestmentBlurb) > MaxBlurbLength {
		violations = append(violations, blurbViolation)
	}
	if data.InvestmentSummary != nil && utf8.RuneCountInString(*data.InvestmentSummary) > MaxSummaryLength {
		violations = append(violations, summaryViolation)
	}
	if data.KeyInfo != nil {
		for i, item := range *data.KeyInfo {
			violations = append(violations, linkItemViolations("keyInfo", "link", i, item.Name, item.Link, item.Order)...)
		}
	}
	if data.ExternalLinks != nil {
		for i, item := range *data.ExternalLinks {
			violations = append(violations, linkItemViolations("externalLinks", "url", i, item.Name, item.URL, item.Order)...)
		}
	}

	return violations
}

func linkItemViolations(list, target string, index int, name, link string, order *float64) []string {
	var violations []string
	position := index + 1

	if strings.TrimSpace(name) == "" {
		violations = append(violations, fmt.Sprintf("%s item %d: name is required", list, position))
	}
	if strings.TrimSpace(link) == "" || !IsValidURL(link) {
		violations = append(violations, fmt.Sprintf("%s item %d: %s must be a valid URL", list, position, target))
	}
	if order == nil || *order < 0 {
		violations = append(violations, fmt.Sprintf("%s item %d: order must be a non-negative number", list, position))
	}

	return violations
}

// ValidateInvestmentBlurb checks a single blurb value for the field-level
// update path.
func ValidateInvestmentBlurb(text string) error {
	if utf8.RuneCountInString(text) > MaxBlurbLength {
		return NewValidationError(blurbViolation)
	}
	return nil
}

// ValidateInvestmentSummary checks a single summary value for the
// field-level update path.
func ValidateInvestmentSummary(text string) error {
	if utf8.RuneCountInString(text) > MaxSummaryLength {
		return NewValidationError(summaryViolation)
	}
	return nil
}

// ValidateKeyInfo checks a full key info list for the field-level update
// path.
func ValidateKeyInfo(items []KeyInfoItem) error {
	var violations []string
	for i, item := range items {
		violations = append(violations, linkItemViolations("keyInfo", "link", i, item.Name, item.Link, item.Order)...)
	}
	if len(violations) > 0 {
		return NewValidationError(violations...)
	}
	return nil
}

// ValidateExternalLinks checks a full external links list for the
// field-level update path.
func ValidateExternalLinks(items []ExternalLinkItem) error {
	var violations []string
	for i, item := range items {
		violations = append(violations, linkItemViolations("externalLinks", "url", i, item.Name, item.URL, item.Order)...)
	}
	if len(violations) > 0 {
		return NewValidationError(violations...)
	}
	return nil
}
