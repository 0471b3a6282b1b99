package dealroom

import (
	"reflect"
	"testing"
)

func TestDetectFieldConflictsDisjointFields(t *testing.T) {
	local := DraftData{InvestmentBlurb: strPtr("local blurb")}
	server := DraftData{InvestmentSummary: strPtr("server summary")}

	if fields := DetectFieldConflicts(local, server); len(fields) != 0 {
		t.Fatalf("expected no conflicts for disjoint fields, got %v", fields)
	}
}

func TestDetectFieldConflictsEqualValues(t *testing.T) {
	local := DraftData{
		InvestmentBlurb: strPtr("same"),
		KeyInfo:         itemsPtr([]KeyInfoItem{{ID: "k1", Name: "Deck", Link: "https://a", Order: floatPtr(0)}}),
	}
	server := DraftData{
		InvestmentBlurb: strPtr("same"),
		KeyInfo:         itemsPtr([]KeyInfoItem{{ID: "k1", Name: "Deck", Link: "https://a", Order: floatPtr(0)}}),
	}

	if fields := DetectFieldConflicts(local, server); len(fields) != 0 {
		t.Fatalf("expected no conflicts for equal values, got %v", fields)
	}
}

func TestDetectFieldConflictsDifferingValues(t *testing.T) {
	local := DraftData{
		InvestmentBlurb:   strPtr("ours"),
		InvestmentSummary: strPtr("shared"),
		ExternalLinks:     linksPtr([]ExternalLinkItem{{ID: "e1", Name: "Site", URL: "https://a", Order: floatPtr(0)}}),
	}
	server := DraftData{
		InvestmentBlurb:   strPtr("theirs"),
		InvestmentSummary: strPtr("shared"),
		ExternalLinks:     linksPtr([]ExternalLinkItem{{ID: "e1", Name: "Site", URL: "https://b", Order: floatPtr(0)}}),
	}

	fields := DetectFieldConflicts(local, server)
	want := []string{FieldInvestmentBlurb, FieldExternalLinks}
	if !reflect.DeepEqual(fields, want) {
		t.Fatalf("conflict fields = %v, want %v", fields, want)
	}
}

func TestMergeDraftDataUseLocal(t *testing.T) {
	local := DraftData{InvestmentBlurb: strPtr("local")}
	server := DraftData{InvestmentBlurb: strPtr("server"), InvestmentSummary: strPtr("server summary")}

	merged := MergeDraftData(local, server, ResolutionUseLocal)
	if !reflect.DeepEqual(merged, local) {
		t.Fatalf("use_local merged = %+v, want local verbatim", merged)
	}
}

func TestMergeDraftDataUseServer(t *testing.T) {
	local := DraftData{InvestmentBlurb: strPtr("local")}
	server := DraftData{InvestmentBlurb: strPtr("server")}

	merged := MergeDraftData(local, server, ResolutionUseServer)
	if !reflect.DeepEqual(merged, server) {
		t.Fatalf("use_server merged = %+v, want server verbatim", merged)
	}
}

func TestMergeDraftDataMergePrefersLocalWhereSet(t *testing.T) {
	local := DraftData{InvestmentBlurb: strPtr("local blurb")}
	server := DraftData{
		InvestmentBlurb:   strPtr("server blurb"),
		InvestmentSummary: strPtr("server summary"),
		KeyInfo:           itemsPtr([]KeyInfoItem{{ID: "k1", Name: "Deck", Link: "https://a", Order: floatPtr(0)}}),
	}

	merged := MergeDraftData(local, server, ResolutionMerge)
	if merged.InvestmentBlurb == nil || *merged.InvestmentBlurb != "local blurb" {
		t.Errorf("merge should keep the local blurb, got %v", merged.InvestmentBlurb)
	}
	if merged.InvestmentSummary == nil || *merged.InvestmentSummary != "server summary" {
		t.Errorf("merge should fall back to the server summary, got %v", merged.InvestmentSummary)
	}
	if merged.KeyInfo == nil || len(*merged.KeyInfo) != 1 {
		t.Errorf("merge should fall back to the server key info, got %v", merged.KeyInfo)
	}
}

func TestMergeDraftDataUnknownResolutionBehavesAsLocal(t *testing.T) {
	local := DraftData{InvestmentBlurb: strPtr("local")}
	server := DraftData{InvestmentBlurb: strPtr("server")}

	for _, resolution := range []Resolution{ResolutionManual, Resolution("bogus")} {
		merged := MergeDraftData(local, server, resolution)
		if !reflect.DeepEqual(merged, local) {
			t.Errorf("resolution %q merged = %+v, want local", resolution, merged)
		}
	}
}
