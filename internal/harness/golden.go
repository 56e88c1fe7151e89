package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/foodstand/internal/ledger"
)

// GoldenSnapshot is what a golden file pins down: the step trace and the
// remote document left behind.
type GoldenSnapshot struct {
	ScenarioName string          `json:"scenario"`
	Trace        []TraceEvent    `json:"trace"`
	Document     ledger.Document `json:"document"`
}

// MarshalGolden renders the snapshot of result as canonical JSON with a
// trailing newline.
func MarshalGolden(scenarioName string, result *Result) ([]byte, error) {
	snapshot := GoldenSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
		Document:     result.Document.Clone(),
	}
	data, err := ledger.MarshalCanonical(snapshot)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares the trace and final
// document against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can assert on it further. Test failure
// (via goldie) occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already computed result against its golden
// file without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalGolden(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
