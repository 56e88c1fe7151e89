package harness

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Scenario drives several clients over one shared in-memory ledger.
//
// Remote values are never delivered on their own: a client only sees
// another client's write when a deliver or load step says so. That makes
// interleavings such as two concurrent submits reproducible.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Clients are the engine names, in start order.
	Clients []string `yaml:"clients"`

	// Seed is written to the ledger before any client starts. Without it
	// the first client seeds the default document.
	Seed *Seed `yaml:"seed,omitempty"`

	// Steps run in order, each on one client or on the ledger itself.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final documents and statuses.
	Assertions []Assertion `yaml:"assertions"`
}

// Seed modifies the default document before it is written.
type Seed struct {
	OrderCounter *int        `yaml:"orderCounter,omitempty"`
	Theme        string      `yaml:"theme,omitempty"`
	Orders       []SeedOrder `yaml:"orders,omitempty"`
}

// SeedOrder is an order present before the scenario starts. Lines are
// priced from the default menu.
type SeedOrder struct {
	Number    int        `yaml:"number"`
	Lines     []LineArgs `yaml:"lines"`
	Completed bool       `yaml:"completed,omitempty"`
}

// Step is one action.
type Step struct {
	// Client runs the action. Ledger actions leave it empty.
	Client string `yaml:"client,omitempty"`

	// Action is one of the Action* constants.
	Action string `yaml:"action"`

	// Args are decoded into the action's argument struct. Unknown keys are
	// rejected.
	Args map[string]any `yaml:"args,omitempty"`

	// Expect checks the action's outcome. Without it any error fails the
	// scenario.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect is a subset match on a step's outcome.
type Expect struct {
	OK          *bool  `yaml:"ok,omitempty"`
	OrderNumber *int   `yaml:"orderNumber,omitempty"`
	Total       *int   `yaml:"total,omitempty"`
	Count       *int   `yaml:"count,omitempty"`
	Error       string `yaml:"error,omitempty"` // substring of the expected error
}

// Assertion validates final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Client selects a client's mirror. Empty selects the remote document.
	Client string `yaml:"client,omitempty"`

	// Field is a dotted path into the document JSON (document_field).
	Field string `yaml:"field,omitempty"`

	// Equals is the expected field value (document_field).
	Equals any `yaml:"equals,omitempty"`

	// Status filters orders: pending, completed or all (order_numbers).
	Status string `yaml:"status,omitempty"`

	// Numbers are the expected order numbers in ledger order (order_numbers).
	Numbers []int `yaml:"numbers,omitempty"`

	// Message is the expected live status message (status).
	Message string `yaml:"message,omitempty"`
}

// Client actions.
const (
	ActionLoad           = "load"
	ActionDeliver        = "deliver"
	ActionFlush          = "flush"
	ActionAddToCart      = "add_to_cart"
	ActionClearCart      = "clear_cart"
	ActionSubmit         = "submit"
	ActionComplete       = "complete"
	ActionClearCompleted = "clear_completed"
	ActionResetOrders    = "reset_orders"
	ActionResetCounter   = "reset_counter"
	ActionAddMenuItem    = "add_menu_item"
	ActionEditMenuItem   = "edit_menu_item"
	ActionDeleteMenuItem = "delete_menu_item"
	ActionSetCap         = "set_cap"
	ActionSetIdentity    = "set_identity"
	ActionSetTheme       = "set_theme"
)

// Ledger actions.
const (
	ActionForeignUpdate = "foreign_update"
	ActionFailWrites    = "fail_writes"
	ActionRestoreWrites = "restore_writes"
	ActionAdvanceClock  = "advance_clock"
)

var clientActions = []string{
	ActionLoad, ActionDeliver, ActionFlush,
	ActionAddToCart, ActionClearCart, ActionSubmit, ActionComplete,
	ActionClearCompleted, ActionResetOrders, ActionResetCounter,
	ActionAddMenuItem, ActionEditMenuItem, ActionDeleteMenuItem,
	ActionSetCap, ActionSetIdentity, ActionSetTheme,
}

var ledgerActions = []string{
	ActionForeignUpdate, ActionFailWrites, ActionRestoreWrites, ActionAdvanceClock,
}

// Assertion type constants.
const (
	AssertDocumentField = "document_field"
	AssertOrderNumbers  = "order_numbers"
	AssertStatus        = "status"
	AssertConverged     = "converged"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Clients) == 0 {
		return fmt.Errorf("clients list is required and must be non-empty")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	seen := make(map[string]bool, len(s.Clients))
	for i, name := range s.Clients {
		if name == "" {
			return fmt.Errorf("clients[%d]: name is required", i)
		}
		if seen[name] {
			return fmt.Errorf("clients[%d]: duplicate client %q", i, name)
		}
		seen[name] = true
	}

	for i, step := range s.Steps {
		switch {
		case slices.Contains(clientActions, step.Action):
			if !seen[step.Client] {
				return fmt.Errorf("steps[%d]: unknown client %q for %s", i, step.Client, step.Action)
			}
		case slices.Contains(ledgerActions, step.Action):
			if step.Client != "" {
				return fmt.Errorf("steps[%d]: %s acts on the ledger and takes no client", i, step.Action)
			}
		case step.Action == "":
			return fmt.Errorf("steps[%d]: action is required", i)
		default:
			return fmt.Errorf("steps[%d]: unknown action %q", i, step.Action)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a, seen); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, clients map[string]bool) error {
	if a.Client != "" && !clients[a.Client] {
		return fmt.Errorf("assertions[%d]: unknown client %q", index, a.Client)
	}

	switch a.Type {
	case AssertDocumentField:
		if a.Field == "" {
			return fmt.Errorf("assertions[%d]: field is required for document_field", index)
		}
	case AssertOrderNumbers:
		switch a.Status {
		case "", "all", "pending", "completed":
		default:
			return fmt.Errorf("assertions[%d]: status must be pending, completed or all", index)
		}
	case AssertStatus:
		if a.Client == "" {
			return fmt.Errorf("assertions[%d]: client is required for status", index)
		}
	case AssertConverged:
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
