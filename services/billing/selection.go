package billing

// Selection is one chosen academy (optionally a level) for a student. Both
// enrollment encodings normalize into it before any billing logic runs.
type Selection struct {
	Academy string `json:"academy"`
	Level   string `json:"level,omitempty"`
}

// SelectionSet accepts both enrollment encodings on the wire: the legacy
// two-slot form {firstPeriod, secondPeriod} and the current unbounded
// {selectedAcademies} list. Registrations may carry either; Normalize folds
// them into one canonical slice.
type SelectionSet struct {
	FirstPeriod       string      `json:"firstPeriod,omitempty"`
	SecondPeriod      string      `json:"secondPeriod,omitempty"`
	SelectedAcademies []Selection `json:"selectedAcademies,omitempty"`
}

// Normalize returns the canonical selection list: the list encoding wins when
// present, otherwise the two slots are used. Placeholder slots ("N/A") are
// dropped, as are duplicate academy+level pairs.
func (s SelectionSet) Normalize() []Selection {
	var raw []Selection
	if len(s.SelectedAcademies) > 0 {
		raw = s.SelectedAcademies
	} else {
		raw = []Selection{{Academy: s.FirstPeriod}, {Academy: s.SecondPeriod}}
	}

	seen := make(map[string]bool, len(raw))
	out := make([]Selection, 0, len(raw))
	for _, sel := range raw {
		if IsPlaceholderName(sel.Academy) {
			continue
		}
		key := CoverageKey(sel.Academy, sel.Level)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, sel)
	}
	return out
}
