package scenario

import "github.com/solvix/draftgate/internal/model"

// Extracted holds inbound-email facts for a case. PromiseDateOffsetDays
// resolves relative to the run date so fixtures stay valid over time.
type Extracted struct {
	PromiseDate           string  `yaml:"promise_date,omitempty"`
	PromiseDateOffsetDays *int    `yaml:"promise_date_offset_days,omitempty"`
	PromiseAmount         float64 `yaml:"promise_amount,omitempty"`
	DisputeType           string  `yaml:"dispute_type,omitempty"`
	DisputeReason         string  `yaml:"dispute_reason,omitempty"`
}

// Case is one draft assertion within a scenario.
type Case struct {
	Name      string     `yaml:"name,omitempty"`
	Draft     string     `yaml:"draft"`
	Expect    string     `yaml:"expect"`
	Blocking  []string   `yaml:"blocking,omitempty"`
	Evaluated int        `yaml:"evaluated,omitempty"`
	Extracted *Extracted `yaml:"extracted,omitempty"`
}

// Scenario is a named collection of guardrail assertions sharing one
// case context. The context may be inlined or loaded from a file.
type Scenario struct {
	Name        string             `yaml:"name"`
	ContextFile string             `yaml:"context_file,omitempty"`
	Context     *model.CaseContext `yaml:"context,omitempty"`
	FailFast    bool               `yaml:"fail_fast,omitempty"`
	Cases       []Case             `yaml:"cases"`
}

// CaseResult is the outcome of evaluating one case.
type CaseResult struct {
	Index    int      `json:"index"`
	Name     string   `json:"name,omitempty"`
	Passed   bool     `json:"passed"`
	Expected string   `json:"expected"`
	Actual   string   `json:"actual"`
	Blocking []string `json:"blocking,omitempty"`
	Reason   string   `json:"reason,omitempty"`
}

// RunResult is the outcome of running all cases in one scenario file.
type RunResult struct {
	File   string       `json:"file"`
	Name   string       `json:"name"`
	Total  int          `json:"total"`
	Passed int          `json:"passed"`
	Failed int          `json:"failed"`
	Cases  []CaseResult `json:"cases"`
}
