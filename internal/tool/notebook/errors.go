package notebook

import (
	"errors"
	"fmt"
)

var (
	ErrPathRequired      = errors.New("notebook_path is required")
	ErrNotNotebook       = errors.New("notebook_path must end in .ipynb")
	ErrSourceRequired    = errors.New("new_source is required")
	ErrInvalidEditMode   = errors.New("edit_mode must be replace, insert or delete")
	ErrInvalidCellType   = errors.New("cell_type must be code or markdown")
	ErrBothTargets       = errors.New("set cell_id or cell_index, not both")
	ErrEmptyNotebook     = errors.New("notebook has no cells")
	ErrNotebookMissing   = errors.New("notebook does not exist")
	ErrMalformedNotebook = errors.New("malformed notebook")
)

// CellNotFoundError is returned when cell_id or cell_index selects nothing.
type CellNotFoundError struct {
	Path  string
	ID    string
	Index int
	Count int
}

func (e *CellNotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("cell %q not found in %s", e.ID, e.Path)
	}
	return fmt.Sprintf("cell index %d out of range in %s (%d cells)", e.Index, e.Path, e.Count)
}

// MalformedError explains why a notebook could not be parsed.
type MalformedError struct {
	Path   string
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed notebook %s: %s", e.Path, e.Reason)
}

func (e *MalformedError) Unwrap() error { return ErrMalformedNotebook }

// IOError wraps a failed filesystem operation.
type IOError struct {
	Op    string
	Path  string
	Cause error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Cause)
}

func (e *IOError) Unwrap() error { return e.Cause }
