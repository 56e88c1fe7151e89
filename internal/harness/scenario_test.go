package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScenario_Valid(t *testing.T) {
	data := []byte(`
name: minimal
description: one client submits
clients: [pos]
seed:
  orderCounter: 3
steps:
  - client: pos
    action: add_to_cart
    args: { item: 1, quantity: 2 }
  - client: pos
    action: submit
    expect: { ok: true, orderNumber: 4 }
assertions:
  - type: order_numbers
    numbers: [4]
`)
	s, err := ParseScenario(data)
	require.NoError(t, err)

	assert.Equal(t, "minimal", s.Name)
	assert.Equal(t, []string{"pos"}, s.Clients)
	require.NotNil(t, s.Seed)
	require.NotNil(t, s.Seed.OrderCounter)
	assert.Equal(t, 3, *s.Seed.OrderCounter)
	require.Len(t, s.Steps, 2)
	assert.Equal(t, ActionAddToCart, s.Steps[0].Action)
	assert.Equal(t, 1, s.Steps[0].Args["item"])
	require.NotNil(t, s.Steps[1].Expect)
	assert.Equal(t, 4, *s.Steps[1].Expect.OrderNumber)
	assert.Equal(t, []int{4}, s.Assertions[0].Numbers)
}

func TestParseScenario_UnknownField(t *testing.T) {
	data := []byte(`
name: typo
description: misspelled key
clients: [pos]
steps:
  - client: pos
    action: submit
assertion:
  - type: converged
`)
	_, err := ParseScenario(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    "description: d\nclients: [a]\nsteps: [{client: a, action: submit}]",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: n\nclients: [a]\nsteps: [{client: a, action: submit}]",
			wantErr: "description is required",
		},
		{
			name:    "no clients",
			yaml:    "name: n\ndescription: d\nsteps: [{action: restore_writes}]",
			wantErr: "clients list is required",
		},
		{
			name:    "no steps",
			yaml:    "name: n\ndescription: d\nclients: [a]",
			wantErr: "steps list is required",
		},
		{
			name:    "duplicate client",
			yaml:    "name: n\ndescription: d\nclients: [a, a]\nsteps: [{client: a, action: submit}]",
			wantErr: `duplicate client "a"`,
		},
		{
			name:    "undeclared client",
			yaml:    "name: n\ndescription: d\nclients: [a]\nsteps: [{client: b, action: submit}]",
			wantErr: `unknown client "b"`,
		},
		{
			name:    "client action without client",
			yaml:    "name: n\ndescription: d\nclients: [a]\nsteps: [{action: submit}]",
			wantErr: `unknown client ""`,
		},
		{
			name:    "ledger action with client",
			yaml:    "name: n\ndescription: d\nclients: [a]\nsteps: [{client: a, action: fail_writes}]",
			wantErr: "takes no client",
		},
		{
			name:    "unknown action",
			yaml:    "name: n\ndescription: d\nclients: [a]\nsteps: [{client: a, action: refund}]",
			wantErr: `unknown action "refund"`,
		},
		{
			name:    "unknown assertion",
			yaml:    "name: n\ndescription: d\nclients: [a]\nsteps: [{client: a, action: submit}]\nassertions: [{type: trace_count}]",
			wantErr: `unknown assertion type "trace_count"`,
		},
		{
			name:    "document_field without field",
			yaml:    "name: n\ndescription: d\nclients: [a]\nsteps: [{client: a, action: submit}]\nassertions: [{type: document_field}]",
			wantErr: "field is required",
		},
		{
			name:    "bad order status",
			yaml:    "name: n\ndescription: d\nclients: [a]\nsteps: [{client: a, action: submit}]\nassertions: [{type: order_numbers, status: cooking}]",
			wantErr: "status must be",
		},
		{
			name:    "status without client",
			yaml:    "name: n\ndescription: d\nclients: [a]\nsteps: [{client: a, action: submit}]\nassertions: [{type: status, message: x}]",
			wantErr: "client is required for status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_FileNotFound(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	content := "name: file\ndescription: d\nclients: [a]\nsteps: [{client: a, action: flush}]\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, "file", s.Name)
	assert.Equal(t, ActionFlush, s.Steps[0].Action)
}
