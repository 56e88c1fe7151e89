package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupPath(t *testing.T) {
	tree := map[string]any{
		"orderCounter": float64(3),
		"orders": []any{
			map[string]any{"orderNumber": float64(3), "completed": true},
		},
		"siteName": map[string]any{"english": "Food Stand"},
	}

	tests := []struct {
		path    string
		want    any
		wantErr string
	}{
		{path: "orderCounter", want: float64(3)},
		{path: "orders.0.completed", want: true},
		{path: "siteName.english", want: "Food Stand"},
		{path: "missing", wantErr: `no field "missing"`},
		{path: "orders.1", wantErr: `no index "1" in orders.1 (length 1)`},
		{path: "orders.x", wantErr: `no index "x"`},
		{path: "orderCounter.deeper", wantErr: `cannot descend into "deeper"`},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := lookupPath(tree, tt.path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{
		Type:     AssertOrderNumbers,
		Target:   "remote",
		Expected: "all orders [6 5]",
		Actual:   "all orders [6]",
	}
	assert.Equal(t,
		"Assertion failed: order_numbers (remote)\n  Expected: all orders [6 5]\n  Actual: all orders [6]",
		err.Error())
}

func TestEvaluateAssertions_ReportsFailures(t *testing.T) {
	scenario := &Scenario{
		Name:        "failing-assertions",
		Description: "every assertion type failing once",
		Clients:     []string{"pos"},
		Steps: []Step{
			{Client: "pos", Action: ActionAddToCart, Args: map[string]any{"item": 4}},
			{Client: "pos", Action: ActionSubmit},
			{Client: "pos", Action: ActionFlush},
			{Action: ActionForeignUpdate, Args: map[string]any{"fields": map[string]any{"currentTheme": "green"}}},
		},
		Assertions: []Assertion{
			{Type: AssertDocumentField, Field: "orderCounter", Equals: 5},
			{Type: AssertOrderNumbers, Numbers: []int{9}},
			{Type: AssertOrderNumbers, Client: "pos", Status: "completed", Numbers: []int{1}},
			{Type: AssertStatus, Client: "pos", Message: "nope"},
			{Type: AssertConverged},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 5, "errors: %v", result.Errors)

	assert.Contains(t, result.Errors[0], "assertions[0]: Assertion failed: document_field (remote)")
	assert.Contains(t, result.Errors[0], "Actual: orderCounter = 1")
	assert.Contains(t, result.Errors[1], "Actual: all orders [1]")
	assert.Contains(t, result.Errors[2], "Actual: completed orders []")
	assert.Contains(t, result.Errors[3], `Expected: "nope"`)
	assert.Contains(t, result.Errors[4], "diverged: pos")
}
