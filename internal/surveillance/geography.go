package surveillance

import "strings"

// State is one surveyed jurisdiction: a U.S. state or the District of
// Columbia.
type State struct {
	Name string `json:"name"`
	Abbr string `json:"abbr"`
}

// stateTable lists the 51 surveyed jurisdictions in name order. This is the
// canonical set: coverage checks count against it and normalization resolves
// into it.
var stateTable = []State{
	{"Alabama", "AL"},
	{"Alaska", "AK"},
	{"Arizona", "AZ"},
	{"Arkansas", "AR"},
	{"California", "CA"},
	{"Colorado", "CO"},
	{"Connecticut", "CT"},
	{"Delaware", "DE"},
	{"District of Columbia", "DC"},
	{"Florida", "FL"},
	{"Georgia", "GA"},
	{"Hawaii", "HI"},
	{"Idaho", "ID"},
	{"Illinois", "IL"},
	{"Indiana", "IN"},
	{"Iowa", "IA"},
	{"Kansas", "KS"},
	{"Kentucky", "KY"},
	{"Louisiana", "LA"},
	{"Maine", "ME"},
	{"Maryland", "MD"},
	{"Massachusetts", "MA"},
	{"Michigan", "MI"},
	{"Minnesota", "MN"},
	{"Mississippi", "MS"},
	{"Missouri", "MO"},
	{"Montana", "MT"},
	{"Nebraska", "NE"},
	{"Nevada", "NV"},
	{"New Hampshire", "NH"},
	{"New Jersey", "NJ"},
	{"New Mexico", "NM"},
	{"New York", "NY"},
	{"North Carolina", "NC"},
	{"North Dakota", "ND"},
	{"Ohio", "OH"},
	{"Oklahoma", "OK"},
	{"Oregon", "OR"},
	{"Pennsylvania", "PA"},
	{"Rhode Island", "RI"},
	{"South Carolina", "SC"},
	{"South Dakota", "SD"},
	{"Tennessee", "TN"},
	{"Texas", "TX"},
	{"Utah", "UT"},
	{"Vermont", "VT"},
	{"Virginia", "VA"},
	{"Washington", "WA"},
	{"West Virginia", "WV"},
	{"Wisconsin", "WI"},
	{"Wyoming", "WY"},
}

// stateIndex resolves lower-cased names and abbreviations to canonical
// entries.
var stateIndex = buildStateIndex()

func buildStateIndex() map[string]State {
	idx := make(map[string]State, len(stateTable)*2)
	for _, s := range stateTable {
		idx[strings.ToLower(s.Name)] = s
		idx[strings.ToLower(s.Abbr)] = s
	}
	return idx
}

// States returns the canonical jurisdiction list in name order.
func States() []State {
	out := make([]State, len(stateTable))
	copy(out, stateTable)
	return out
}

// StateCount is the number of surveyed jurisdictions (50 states + DC).
const StateCount = 51

// CanonicalState resolves a raw state value to its canonical entry. Lookup
// tolerates surrounding whitespace and case differences and accepts USPS
// abbreviations.
func CanonicalState(s string) (State, bool) {
	st, ok := stateIndex[strings.ToLower(strings.TrimSpace(s))]
	return st, ok
}
