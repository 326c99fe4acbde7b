// Package model holds the data types every other package produces or
// consumes: per-function detection rows and call-graph edges.
package model

// Row is one wrapper-detection result for a single (file, function,
// api_called) triple.
type Row struct {
	File              string   `json:"file"`
	Function          string   `json:"function"`
	FunctionKey       string   `json:"function_key"`
	ApiCalled         string   `json:"api_called"`
	Category          string   `json:"category"`
	TotalTargetCalls  int      `json:"total_target_calls"`
	HitLocs           []string `json:"hit_locs"`
	PerPathSingle     bool     `json:"per_path_single"`
	DerivedFromParams bool     `json:"derived_from_params"`
	DerivationTrace   []string `json:"derivation_trace"`
	ArgPass           string   `json:"arg_pass"`
	RetPass           string   `json:"ret_pass"`
	Reason            string   `json:"reason"`
	FunctionLoc       string   `json:"function_loc"`
	PairUsed          bool     `json:"pair_used"`
	ViaHelperHop      bool     `json:"via_helper_hop"`
	IgnoredHelpers    []string `json:"ignored_helpers"`
	FanIn             int      `json:"fan_in"`
	FanOut            int      `json:"fan_out"`
	Family            string   `json:"family"`
	IsThinAlias       bool     `json:"is_thin_alias"`
	Callees           []string `json:"callee"`
}

// NewRow returns a Row with the string defaults the original carries
// ("-" for family/arg_pass/ret_pass; empty slices rather than nil so CSV
// serialization never has to special-case nil).
func NewRow() Row {
	return Row{
		Family:          "-",
		ArgPass:         "-",
		RetPass:         "-",
		HitLocs:         []string{},
		DerivationTrace: []string{},
		IgnoredHelpers:  []string{},
		Callees:         []string{},
	}
}

// Edge is one resolved call-graph edge: a call site in Caller targeting
// Callee, keyed by the stable function keys used for fan-in/out
// aggregation.
type Edge struct {
	CallerKey string
	CalleeKey string
	Caller    string
	Callee    string
	Loc       string
}
