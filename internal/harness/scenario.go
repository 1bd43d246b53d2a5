package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/benarmston/sequel/internal/lifecycle"
	"github.com/benarmston/sequel/internal/schema"
)

// Scenario defines a conformance test scenario: a model, a stack of hook
// layers, and a sequence of persistence operations with expected outcomes.
// Scenarios run against a fresh in-memory database and produce a
// deterministic trace for golden comparison.
type Scenario struct {
	// Name uniquely identifies this scenario; it is also the golden file
	// name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Model is the inline model definition the scenario operates on.
	Model ModelDef `yaml:"model"`

	// Layers lists hook layers in application order: the first is the base,
	// later entries are extensions applied on top.
	Layers []LayerDef `yaml:"layers,omitempty"`

	// Steps contains the operations to run, in order.
	Steps []Step `yaml:"steps"`
}

// ModelDef is an inline model definition.
type ModelDef struct {
	Name       string      `yaml:"name"`
	Table      string      `yaml:"table"`
	PrimaryKey string      `yaml:"primary_key"`
	Columns    []ColumnDef `yaml:"columns"`

	// UseTransactions defaults to true when omitted.
	UseTransactions *bool `yaml:"use_transactions,omitempty"`
}

// ColumnDef is one column of the scenario model.
type ColumnDef struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// LayerDef declares one hook layer.
type LayerDef struct {
	Name  string    `yaml:"name"`
	Hooks []HookDef `yaml:"hooks"`
}

// HookDef declares one recording hook. By default the hook proceeds; Halt
// makes it halt the operation, Fail makes it return the given error message.
type HookDef struct {
	Stage string `yaml:"stage"`
	Halt  bool   `yaml:"halt,omitempty"`
	Fail  string `yaml:"fail,omitempty"`
}

// Step is one persistence operation.
//
// Ops: create, update, destroy, validate, raw_insert, raw_update,
// raw_delete. The create/update/destroy/validate ops act on the scenario's
// current record (the one created by the most recent create step); raw ops
// act directly on the table.
type Step struct {
	Op     string         `yaml:"op"`
	Values map[string]any `yaml:"values,omitempty"`
	Where  map[string]any `yaml:"where,omitempty"`

	// Expect is the expected outcome: success, aborted, or failed.
	// Defaults to success.
	Expect string `yaml:"expect,omitempty"`

	// SkipValidation skips the validation stage for a save step.
	SkipValidation bool `yaml:"skip_validation,omitempty"`
}

// Step op constants.
const (
	OpCreate    = "create"
	OpUpdate    = "update"
	OpDestroy   = "destroy"
	OpValidate  = "validate"
	OpRawInsert = "raw_insert"
	OpRawUpdate = "raw_update"
	OpRawDelete = "raw_delete"
)

var stepOps = map[string]bool{
	OpCreate:    true,
	OpUpdate:    true,
	OpDestroy:   true,
	OpValidate:  true,
	OpRawInsert: true,
	OpRawUpdate: true,
	OpRawDelete: true,
}

var expectOutcomes = map[string]bool{
	"":        true,
	"success": true,
	"aborted": true,
	"failed":  true,
}

var hookStages = map[string]bool{
	string(lifecycle.StageAfterInitialize):  true,
	string(lifecycle.StageBeforeValidation): true,
	string(lifecycle.StageAfterValidation):  true,
	string(lifecycle.StageBeforeSave):       true,
	string(lifecycle.StageAfterSave):        true,
	string(lifecycle.StageBeforeCreate):     true,
	string(lifecycle.StageAfterCreate):      true,
	string(lifecycle.StageBeforeUpdate):     true,
	string(lifecycle.StageAfterUpdate):      true,
	string(lifecycle.StageBeforeDestroy):    true,
	string(lifecycle.StageAfterDestroy):     true,
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos surface as parse errors instead of silently ignored
// configuration.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
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

// ModelSpec converts the inline model definition to a compiled spec.
func (m *ModelDef) ModelSpec() *schema.ModelSpec {
	spec := &schema.ModelSpec{
		Name:            m.Name,
		Table:           m.Table,
		PrimaryKey:      m.PrimaryKey,
		UseTransactions: true,
	}
	for _, c := range m.Columns {
		spec.Columns = append(spec.Columns, schema.ColumnSpec{Name: c.Name, Type: c.Type})
	}
	if m.UseTransactions != nil {
		spec.UseTransactions = *m.UseTransactions
	}
	return spec
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Model.Table == "" {
		return fmt.Errorf("model.table is required")
	}
	if s.Model.PrimaryKey == "" {
		return fmt.Errorf("model.primary_key is required")
	}
	if len(s.Model.Columns) == 0 {
		return fmt.Errorf("model.columns is required and must be non-empty")
	}
	spec := s.Model.ModelSpec()
	if _, ok := spec.Column(spec.PrimaryKey); !ok {
		return fmt.Errorf("model.primary_key %q is not a declared column", spec.PrimaryKey)
	}

	for i, layer := range s.Layers {
		if layer.Name == "" {
			return fmt.Errorf("layers[%d]: name is required", i)
		}
		if len(layer.Hooks) == 0 {
			return fmt.Errorf("layers[%d]: hooks list is required and must be non-empty", i)
		}
		for j, h := range layer.Hooks {
			if !hookStages[h.Stage] {
				return fmt.Errorf("layers[%d].hooks[%d]: unknown stage %q", i, j, h.Stage)
			}
			if h.Halt && h.Fail != "" {
				return fmt.Errorf("layers[%d].hooks[%d]: halt and fail are mutually exclusive", i, j)
			}
		}
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	for i, step := range s.Steps {
		if !stepOps[step.Op] {
			return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
		}
		if !expectOutcomes[step.Expect] {
			return fmt.Errorf("steps[%d]: unknown expect %q", i, step.Expect)
		}
		switch step.Op {
		case OpCreate, OpRawInsert:
			if len(step.Values) == 0 {
				return fmt.Errorf("steps[%d]: values is required for %s", i, step.Op)
			}
		case OpUpdate:
			if len(step.Values) == 0 {
				return fmt.Errorf("steps[%d]: values is required for update", i)
			}
		case OpRawUpdate:
			if len(step.Values) == 0 || len(step.Where) == 0 {
				return fmt.Errorf("steps[%d]: values and where are required for raw_update", i)
			}
		case OpRawDelete:
			if len(step.Where) == 0 {
				return fmt.Errorf("steps[%d]: where is required for raw_delete", i)
			}
		}
	}

	return nil
}
