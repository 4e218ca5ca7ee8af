package tool

// Name identifies one tool in the fixed catalogue offered to the model.
type Name string

const (
	Read         Name = "read"
	Write        Name = "write"
	Edit         Name = "edit"
	Glob         Name = "glob"
	Grep         Name = "grep"
	NotebookEdit Name = "notebook_edit"
	Bash         Name = "bash"
	BashOutput   Name = "bash_output"
	KillShell    Name = "kill_shell"
)

// Catalogue lists every tool the dispatcher knows, in declaration order.
var Catalogue = []Name{Read, Write, Edit, Glob, Grep, NotebookEdit, Bash, BashOutput, KillShell}

// Known reports whether n is part of the catalogue.
func (n Name) Known() bool {
	for _, c := range Catalogue {
		if c == n {
			return true
		}
	}
	return false
}

// Type represents JSON Schema types.
type Type string

const (
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeInteger Type = "integer"
	TypeBoolean Type = "boolean"
	TypeArray   Type = "array"
	TypeObject  Type = "object"
)

// Schema represents a JSON Schema for tool parameters.
type Schema struct {
	Type        Type               `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
}

// Declaration declares a tool's function signature for the LLM.
type Declaration struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Parameters  *Schema `json:"parameters,omitempty"`
}

// ToolDisplay is implemented by all display types returned from tools.
// The UI uses type switches to render each type appropriately.
type ToolDisplay interface {
	isToolDisplay()
}

// StringDisplay is for simple text output (most tools).
type StringDisplay string

func (StringDisplay) isToolDisplay() {}

// DiffDisplay is for file edit operations with unified diff content.
type DiffDisplay struct {
	Path         string
	Diff         string
	AddedLines   int
	RemovedLines int
}

func (DiffDisplay) isToolDisplay() {}

// ShellDisplay summarises a finished synchronous command.
type ShellDisplay struct {
	Command    string
	WorkingDir string
	ExitCode   int
	TimedOut   bool
}

func (ShellDisplay) isToolDisplay() {}

// JobDisplay describes a background job after spawn, query or kill.
type JobDisplay struct {
	JobID   int
	Command string
	Status  string
}

func (JobDisplay) isToolDisplay() {}
