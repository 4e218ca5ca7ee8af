package notebook

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hewenyu/OperationKernel/internal/tool"
)

// Edit modes.
const (
	ModeReplace = "replace"
	ModeInsert  = "insert"
	ModeDelete  = "delete"
)

// Cell types.
const (
	CellCode     = "code"
	CellMarkdown = "markdown"
)

type EditRequest struct {
	NotebookPath string `json:"notebook_path"`
	CellID       string `json:"cell_id,omitempty"`
	CellIndex    *int   `json:"cell_index,omitempty"`
	NewSource    string `json:"new_source"`
	CellType     string `json:"cell_type,omitempty"`
	EditMode     string `json:"edit_mode,omitempty"` // default replace
}

func (r *EditRequest) Validate() error {
	if r.NotebookPath == "" {
		return ErrPathRequired
	}
	if !strings.EqualFold(filepath.Ext(r.NotebookPath), ".ipynb") {
		return ErrNotNotebook
	}
	if r.EditMode == "" {
		r.EditMode = ModeReplace
	}
	switch r.EditMode {
	case ModeReplace, ModeInsert, ModeDelete:
	default:
		return ErrInvalidEditMode
	}
	if r.CellType != "" && r.CellType != CellCode && r.CellType != CellMarkdown {
		return ErrInvalidCellType
	}
	if r.CellID != "" && r.CellIndex != nil {
		return ErrBothTargets
	}
	if r.EditMode != ModeDelete && r.NewSource == "" {
		return ErrSourceRequired
	}
	return nil
}

func (r *EditRequest) String() string {
	return fmt.Sprintf("Editing notebook %s (%s)", r.NotebookPath, r.EditMode)
}

type EditResponse struct {
	Path       string
	Mode       string
	CellID     string
	CellType   string
	Index      int
	TotalCells int
	Created    bool
}

func (r *EditResponse) LLMContent() string {
	var action string
	switch r.Mode {
	case ModeInsert:
		action = fmt.Sprintf("Inserted %s cell %s at index %d", r.CellType, r.CellID, r.Index)
	case ModeDelete:
		action = fmt.Sprintf("Deleted cell %s (index %d)", r.CellID, r.Index)
	default:
		action = fmt.Sprintf("Replaced cell %s (index %d)", r.CellID, r.Index)
	}
	if r.Created {
		action += " in new notebook"
	}
	return fmt.Sprintf("%s in %s\nNotebook now has %d cells", action, r.Path, r.TotalCells)
}

func (r *EditResponse) Display() tool.ToolDisplay {
	return tool.StringDisplay(fmt.Sprintf("%s %s cell %d", r.Path, r.Mode, r.Index))
}
