package dealroom

import (
	"strings"
	"testing"
)

func strPtr(v string) *string { return &v }

func floatPtr(v float64) *float64 { return &v }

func itemsPtr(v []KeyInfoItem) *[]KeyInfoItem { return &v }

func linksPtr(v []ExternalLinkItem) *[]ExternalLinkItem { return &v }

func TestIsValidURL(t *testing.T) {
	cases := []struct {
		raw  string
		want bool
	}{
		{"https://example.com", true},
		{"http://example.com/path?q=1", true},
		{"ftp://example.com/file", true},
		{"example.com", false},
		{"", false},
		{"not a url", false},
		{"/relative/path", false},
	}
	for _, tc := range cases {
		if got := IsValidURL(tc.raw); got != tc.want {
			t.Errorf("IsValidURL(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestValidateDraftInputBlurbLimit(t *testing.T) {
	atLimit := ValidateDraftInput("p1", "s1", DraftData{InvestmentBlurb: strPtr(strings.Repeat("a", 500))})
	if !atLimit.IsValid {
		t.Fatalf("expected 500-character blurb to be valid, got %v", atLimit.Errors)
	}

	over := ValidateDraftInput("p1", "s1", DraftData{InvestmentBlurb: strPtr(strings.Repeat("a", 501))})
	if over.IsValid {
		t.Fatal("expected 501-character blurb to be rejected")
	}
	if len(over.Errors) != 1 || !strings.Contains(over.Errors[0], "500 characters") {
		t.Fatalf("unexpected violations: %v", over.Errors)
	}
}

func TestValidateDraftInputSummaryLimit(t *testing.T) {
	over := ValidateDraftInput("p1", "s1", DraftData{InvestmentSummary: strPtr(strings.Repeat("b", 10001))})
	if over.IsValid {
		t.Fatal("expected over-length summary to be rejected")
	}
	if !strings.Contains(over.Errors[0], "10,000 characters") {
		t.Fatalf("unexpected violations: %v", over.Errors)
	}
}

func TestValidateDraftInputCountsRunesNotBytes(t *testing.T) {
	// 500 multi-byte runes are within the limit even though the byte length
	// is far larger.
	result := ValidateDraftInput("p1", "s1", DraftData{InvestmentBlurb: strPtr(strings.Repeat("é", 500))})
	if !result.IsValid {
		t.Fatalf("expected 500-rune blurb to be valid, got %v", result.Errors)
	}
}

func TestValidateDraftInputRequiredKeys(t *testing.T) {
	result := ValidateDraftInput("", "  ", DraftData{})
	if result.IsValid {
		t.Fatal("expected missing keys to be rejected")
	}
	joined := strings.Join(result.Errors, "; ")
	if !strings.Contains(joined, "projectId is required") {
		t.Errorf("missing projectId violation: %v", result.Errors)
	}
	if !strings.Contains(joined, "sessionId is required") {
		t.Errorf("missing sessionId violation: %v", result.Errors)
	}
}

func TestValidateDraftInputKeyInfoItems(t *testing.T) {
	data := DraftData{KeyInfo: itemsPtr([]KeyInfoItem{
		{Name: "Pitch Deck", Link: "https://example.com/deck.pdf", Order: floatPtr(0)},
		{Name: "", Link: "example.com", Order: nil},
	})}

	result := ValidateDraftInput("p1", "s1", data)
	if result.IsValid {
		t.Fatal("expected second item to be rejected")
	}
	joined := strings.Join(result.Errors, "; ")
	if !strings.Contains(joined, "keyInfo item 2: name is required") {
		t.Errorf("missing name violation: %v", result.Errors)
	}
	if !strings.Contains(joined, "keyInfo item 2: link must be a valid URL") {
		t.Errorf("missing link violation: %v", result.Errors)
	}
	if !strings.Contains(joined, "keyInfo item 2: order must be a non-negative number") {
		t.Errorf("missing order violation: %v", result.Errors)
	}
}

func TestValidateDraftInputExternalLinkItems(t *testing.T) {
	data := DraftData{ExternalLinks: linksPtr([]ExternalLinkItem{
		{Name: "Site", URL: "no-scheme.example", Order: floatPtr(-1)},
	})}

	result := ValidateDraftInput("p1", "s1", data)
	if result.IsValid {
		t.Fatal("expected item to be rejected")
	}
	joined := strings.Join(result.Errors, "; ")
	if !strings.Contains(joined, "externalLinks item 1: url must be a valid URL") {
		t.Errorf("missing url violation: %v", result.Errors)
	}
	if !strings.Contains(joined, "externalLinks item 1: order must be a non-negative number") {
		t.Errorf("missing order violation: %v", result.Errors)
	}
}

func TestValidateDraftInputCollectsAllViolations(t *testing.T) {
	data := DraftData{
		InvestmentBlurb:   strPtr(strings.Repeat("x", 501)),
		InvestmentSummary: strPtr(strings.Repeat("y", 10001)),
	}
	result := ValidateDraftInput("", "", data)
	if len(result.Errors) != 4 {
		t.Fatalf("expected 4 violations, got %d: %v", len(result.Errors), result.Errors)
	}
}

func TestValidatePatchSkipsKeyRequirements(t *testing.T) {
	result := ValidatePatch(DraftData{InvestmentBlurb: strPtr("fine")})
	if !result.IsValid {
		t.Fatalf("expected patch to be valid, got %v", result.Errors)
	}
}

func TestFieldLevelValidators(t *testing.T) {
	if err := ValidateInvestmentBlurb(strings.Repeat("a", 501)); err == nil {
		t.Error("expected blurb error")
	} else if !strings.Contains(err.Error(), "500 characters") {
		t.Errorf("unexpected blurb error: %v", err)
	}

	if err := ValidateInvestmentSummary(strings.Repeat("a", 10001)); err == nil {
		t.Error("expected summary error")
	}

	err := ValidateKeyInfo([]KeyInfoItem{{Name: "ok", Link: "bad", Order: floatPtr(0)}})
	if err == nil || !strings.Contains(err.Error(), "valid URL") {
		t.Errorf("unexpected key info error: %v", err)
	}

	if err := ValidateExternalLinks([]ExternalLinkItem{{Name: "ok", URL: "https://example.com", Order: floatPtr(2)}}); err != nil {
		t.Errorf("expected valid external links, got %v", err)
	}
}
