package dealroom

import (
	"bytes"
	"encoding/json"
)

// Draft payload field names in declaration order; conflict lists preserve
// this order.
const (
	FieldInvestmentBlurb   = "investmentBlurb"
	FieldInvestmentSummary = "investmentSummary"
	FieldKeyInfo           = "keyInfo"
	FieldExternalLinks     = "externalLinks"
	FieldShowcasePhoto     = "showcasePhoto"
)

// DetectFieldConflicts compares two sparse payloads and returns the names of
// fields both sides define with differing values. A field set on only one
// side is never a conflict: the silent side has no opinion.
func DetectFieldConflicts(local, server DraftData) []string {
	conflicts := make([]string, 0, 5)

	if local.InvestmentBlurb != nil && server.InvestmentBlurb != nil &&
		*local.InvestmentBlurb != *server.InvestmentBlurb {
		conflicts = append(conflicts, FieldInvestmentBlurb)
	}
	if local.InvestmentSummary != nil && server.InvestmentSummary != nil &&
		*local.InvestmentSummary != *server.InvestmentSummary {
		conflicts = append(conflicts, FieldInvestmentSummary)
	}
	if local.KeyInfo != nil && server.KeyInfo != nil &&
		!canonicallyEqual(*local.KeyInfo, *server.KeyInfo) {
		conflicts = append(conflicts, FieldKeyInfo)
	}
	if local.ExternalLinks != nil && server.ExternalLinks != nil &&
		!canonicallyEqual(*local.ExternalLinks, *server.ExternalLinks) {
		conflicts = append(conflicts, FieldExternalLinks)
	}
	if local.ShowcasePhoto != nil && server.ShowcasePhoto != nil &&
		!canonicallyEqual(*local.ShowcasePhoto, *server.ShowcasePhoto) {
		conflicts = append(conflicts, FieldShowcasePhoto)
	}

	return conflicts
}

// MergeDraftData combines two sparse payloads according to the chosen
// resolution. "use_local" and "use_server" return one side verbatim; "merge"
// prefers the local value wherever local defines the field and falls back to
// the server value elsewhere (local-wins preference, not a three-way merge).
// Any unrecognized resolution, including "manual", behaves as "use_local".
func MergeDraftData(local, server DraftData, resolution Resolution) DraftData {
	switch resolution {
	case ResolutionUseServer:
		return server
	case ResolutionMerge:
		merged := server
		if local.InvestmentBlurb != nil {
			merged.InvestmentBlurb = local.InvestmentBlurb
		}
		if local.InvestmentSummary != nil {
			merged.InvestmentSummary = local.InvestmentSummary
		}
		if local.KeyInfo != nil {
			merged.KeyInfo = local.KeyInfo
		}
		if local.ExternalLinks != nil {
			merged.ExternalLinks = local.ExternalLinks
		}
		if local.ShowcasePhoto != nil {
			merged.ShowcasePhoto = local.ShowcasePhoto
		}
		return merged
	default:
		return local
	}
}

// canonicallyEqual compares two values through their canonical JSON
// serialization, giving structural equality for arrays and objects.
func canonicallyEqual(a, b any) bool {
	left, errLeft := json.Marshal(a)
	right, errRight := json.Marshal(b)
	if errLeft != nil || errRight != nil {
		return false
	}
	return bytes.Equal(left, right)
}
