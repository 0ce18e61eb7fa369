// Package types defines the report records shared by the analyzer, the report cache and
// the command line.
package types

// Status classifies the outcome of analysing one function.
type Status string

const (
	// StatusOK means the summary was built and every statement was interpreted.
	StatusOK Status = "ok"
	// StatusPartial means the summary was built but some statements failed.
	StatusPartial Status = "partial"
	// StatusNotImplemented means the signature uses a type with no abstraction.
	StatusNotImplemented Status = "not_implemented"
	// StatusIneligible means a local has a type the interpreter does not handle.
	StatusIneligible Status = "ineligible"
	// StatusError covers everything else, including cancelled analyses.
	StatusError Status = "error"
)

// Statuses lists every status in report order.
var Statuses = []Status{StatusOK, StatusPartial, StatusNotImplemented, StatusIneligible, StatusError}

// StatementFailure describes one statement that could not be interpreted
type StatementFailure struct {
	Block     int    `json:"block" msgpack:"block"`
	Statement int    `json:"statement" msgpack:"statement"`
	Text      string `json:"text" msgpack:"text"`
	Kind      string `json:"kind" msgpack:"kind"`
	Message   string `json:"message" msgpack:"message"`
}

// LocalValue is the rendered abstract value of one local after interpretation
type LocalValue struct {
	Local string `json:"local" msgpack:"local"`
	Value string `json:"value" msgpack:"value"`
}

// FunctionReport is the analysis result for one function
type FunctionReport struct {
	Name       string             `json:"name" msgpack:"name"`
	Source     string             `json:"source,omitempty" msgpack:"source"`
	Status     Status             `json:"status" msgpack:"status"`
	Summary    string             `json:"summary,omitempty" msgpack:"summary"`
	Arguments  []string           `json:"arguments,omitempty" msgpack:"arguments"`
	Return     string             `json:"return,omitempty" msgpack:"return"`
	State      []LocalValue       `json:"state,omitempty" msgpack:"state"`
	Failures   []StatementFailure `json:"failures,omitempty" msgpack:"failures"`
	Error      string             `json:"error,omitempty" msgpack:"error"`
	DurationMs float64            `json:"duration_ms" msgpack:"duration_ms"`
	Cached     bool               `json:"cached,omitempty" msgpack:"-"`
}

// FileReport groups the reports of all functions found in one input file
type FileReport struct {
	Path      string           `json:"path"`
	Kind      string           `json:"kind"`
	Functions []FunctionReport `json:"functions"`
	Error     string           `json:"error,omitempty"`
}

// Counts tallies reports by status.
func Counts(reports []FunctionReport) map[Status]int {
	out := make(map[Status]int, len(Statuses))
	for _, r := range reports {
		out[r.Status]++
	}
	return out
}
