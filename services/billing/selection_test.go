package billing

import "testing"

func TestNormalizeTwoSlotEncoding(t *testing.T) {
	set := SelectionSet{FirstPeriod: "Art", SecondPeriod: "Music"}
	got := set.Normalize()
	if len(got) != 2 || got[0].Academy != "Art" || got[1].Academy != "Music" {
		t.Fatalf("unexpected selections: %+v", got)
	}
}

func TestNormalizeDropsPlaceholders(t *testing.T) {
	set := SelectionSet{FirstPeriod: "Art", SecondPeriod: "N/A"}
	got := set.Normalize()
	if len(got) != 1 || got[0].Academy != "Art" {
		t.Fatalf("unexpected selections: %+v", got)
	}
}

func TestNormalizeListEncodingWins(t *testing.T) {
	set := SelectionSet{
		FirstPeriod:  "Chess",
		SecondPeriod: "Theater",
		SelectedAcademies: []Selection{
			{Academy: "Ballet", Level: "Inicial"},
			{Academy: "Art"},
			{Academy: "ballet", Level: "INICIAL"}, // duplicate after normalization
		},
	}
	got := set.Normalize()
	if len(got) != 2 {
		t.Fatalf("expected 2 selections, got %+v", got)
	}
	if got[0].Academy != "Ballet" || got[1].Academy != "Art" {
		t.Fatalf("unexpected selections: %+v", got)
	}
}

func TestBuildLinesSkipsCoveredKeys(t *testing.T) {
	r := NewResolver(map[string]int64{"Art": 10000, "Music": 12000})
	covered := map[string]bool{CoverageKey("Art", ""): true}

	lines := BuildLines([]Selection{{Academy: "Art"}, {Academy: "Music"}}, covered, r)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0].Academy != "Music" || lines[0].AmountMinor != 12000 {
		t.Fatalf("unexpected line: %+v", lines[0])
	}
}

func TestCoverageKeySurvivesNamingVariance(t *testing.T) {
	if CoverageKey("  BALLET ", "Inicial") != CoverageKey("ballet", " inicial") {
		t.Error("coverage keys must normalize naming variance")
	}
}
