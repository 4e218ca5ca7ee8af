package notebook

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/hewenyu/OperationKernel/internal/tool"
	"github.com/hewenyu/OperationKernel/internal/tool/helper/content"
	"github.com/hewenyu/OperationKernel/internal/tool/service/sandbox"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

// emptyNotebook is the nbformat 4.5 skeleton used when insert targets a missing file.
const emptyNotebook = `{
 "cells": [],
 "metadata": {
  "kernelspec": {"display_name": "Python 3", "language": "python", "name": "python3"},
  "language_info": {"name": "python"}
 },
 "nbformat": 4,
 "nbformat_minor": 5
}`

var prettyOptions = &pretty.Options{Width: 80, Indent: " "}

type fileOps interface {
	Stat(path string) (os.FileInfo, error)
	ReadFile(path string) ([]byte, error)
	EnsureDirs(path string) error
	WriteFileAtomic(path string, content []byte, perm os.FileMode) error
}

// EditTool edits Jupyter notebook cells. The document is patched in place
// so metadata, outputs and fields this tool does not know about survive.
type EditTool struct {
	fs fileOps
}

// NewEditTool creates a new notebook EditTool.
func NewEditTool(fs fileOps) *EditTool {
	if fs == nil {
		panic("fs is required")
	}
	return &EditTool{fs: fs}
}

func (t *EditTool) Name() tool.Name {
	return tool.NotebookEdit
}

func (t *EditTool) Declaration() tool.Declaration {
	return tool.Declaration{
		Name: string(tool.NotebookEdit),
		Description: "Edit a Jupyter notebook (.ipynb). Replace, insert or delete a cell selected by cell_id or cell_index. " +
			"Without a selector, replace and delete act on the first cell and insert appends. Insert creates the notebook if missing.",
		Parameters: &tool.Schema{
			Type: tool.TypeObject,
			Properties: map[string]*tool.Schema{
				"notebook_path": {Type: tool.TypeString, Description: "Path to the .ipynb file"},
				"cell_id":       {Type: tool.TypeString, Description: "Target cell id; insert places the new cell after it"},
				"cell_index":    {Type: tool.TypeInteger, Description: "0-based target cell index; insert places the new cell at it"},
				"new_source":    {Type: tool.TypeString, Description: "Cell source for replace and insert"},
				"cell_type":     {Type: tool.TypeString, Description: "Cell type", Enum: []string{CellCode, CellMarkdown}},
				"edit_mode":     {Type: tool.TypeString, Description: "Operation (default replace)", Enum: []string{ModeReplace, ModeInsert, ModeDelete}},
			},
			Required: []string{"notebook_path"},
		},
	}
}

// Run applies one cell edit and writes the notebook atomically.
func (t *EditTool) Run(ctx context.Context, sb *sandbox.Boundary, req *EditRequest) (*EditResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	abs, err := sb.Resolve(req.NotebookPath)
	if err != nil {
		return nil, err
	}
	rel := sb.Rel(abs)

	doc, perm, created, err := t.load(abs, rel, req.EditMode == ModeInsert)
	if err != nil {
		return nil, err
	}
	cells := gjson.Get(doc, "cells").Array()

	target, err := locate(cells, req, rel)
	if err != nil {
		return nil, err
	}

	resp := &EditResponse{Path: rel, Mode: req.EditMode, Created: created}
	switch req.EditMode {
	case ModeReplace:
		doc, err = replaceCell(doc, cells, target, req)
		if target < 0 {
			target = 0
		}
		resp.CellType = gjson.Get(doc, fmt.Sprintf("cells.%d.cell_type", target)).String()
	case ModeInsert:
		doc, target, err = insertCell(doc, cells, target, req)
		resp.CellType = req.CellType
		if resp.CellType == "" {
			resp.CellType = CellCode
		}
	case ModeDelete:
		if target < 0 {
			target = 0
		}
		if len(cells) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEmptyNotebook, rel)
		}
		resp.CellType = cells[target].Get("cell_type").String()
		doc, err = sjson.Delete(doc, fmt.Sprintf("cells.%d", target))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rel, err)
	}

	resp.Index = target
	resp.TotalCells = int(gjson.Get(doc, "cells.#").Int())
	if req.EditMode == ModeDelete {
		resp.CellID = cells[target].Get("id").String()
	} else {
		resp.CellID = gjson.Get(doc, fmt.Sprintf("cells.%d.id", target)).String()
	}

	if created {
		if err := t.fs.EnsureDirs(filepath.Dir(abs)); err != nil {
			return nil, &IOError{Op: "create directories for", Path: rel, Cause: err}
		}
	}
	out := pretty.PrettyOptions([]byte(doc), prettyOptions)
	if err := t.fs.WriteFileAtomic(abs, out, perm); err != nil {
		return nil, &IOError{Op: "write", Path: rel, Cause: err}
	}
	return resp, nil
}

// load reads and sanity-checks the notebook. A missing file yields the
// empty skeleton when allowCreate is set.
func (t *EditTool) load(abs, rel string, allowCreate bool) (doc string, perm os.FileMode, created bool, err error) {
	info, err := t.fs.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if allowCreate {
				return emptyNotebook, 0o644, true, nil
			}
			return "", 0, false, fmt.Errorf("%w: %s", ErrNotebookMissing, rel)
		}
		return "", 0, false, &IOError{Op: "stat", Path: rel, Cause: err}
	}
	if info.IsDir() {
		return "", 0, false, &MalformedError{Path: rel, Reason: "path is a directory"}
	}

	data, err := t.fs.ReadFile(abs)
	if err != nil {
		return "", 0, false, &IOError{Op: "read", Path: rel, Cause: err}
	}
	text, err := content.DecodeText(data)
	if err != nil || !gjson.Valid(text) {
		return "", 0, false, &MalformedError{Path: rel, Reason: "not valid JSON"}
	}
	cells := gjson.Get(text, "cells")
	if !cells.IsArray() {
		return "", 0, false, &MalformedError{Path: rel, Reason: "missing cells array"}
	}
	for i, c := range cells.Array() {
		if !c.IsObject() || c.Get("cell_type").Type != gjson.String {
			return "", 0, false, &MalformedError{Path: rel, Reason: fmt.Sprintf("cell %d has no cell_type", i)}
		}
	}
	return text, info.Mode().Perm(), false, nil
}

// locate maps cell_id or cell_index to an index, or -1 when neither is set.
// Insert accepts an index equal to the cell count (append).
func locate(cells []gjson.Result, req *EditRequest, rel string) (int, error) {
	if req.CellID != "" {
		for i, c := range cells {
			if c.Get("id").String() == req.CellID {
				return i, nil
			}
		}
		return 0, &CellNotFoundError{Path: rel, ID: req.CellID}
	}
	if req.CellIndex != nil {
		i := *req.CellIndex
		upper := len(cells) - 1
		if req.EditMode == ModeInsert {
			upper = len(cells)
		}
		if i < 0 || i > upper {
			return 0, &CellNotFoundError{Path: rel, Index: i, Count: len(cells)}
		}
		return i, nil
	}
	return -1, nil
}

func replaceCell(doc string, cells []gjson.Result, target int, req *EditRequest) (string, error) {
	if len(cells) == 0 {
		return "", ErrEmptyNotebook
	}
	if target < 0 {
		target = 0
	}
	prefix := fmt.Sprintf("cells.%d.", target)
	doc, err := sjson.Set(doc, prefix+"source", sourceLines(req.NewSource))
	if err != nil {
		return "", err
	}
	if req.CellType == "" || req.CellType == cells[target].Get("cell_type").String() {
		return doc, nil
	}

	if doc, err = sjson.Set(doc, prefix+"cell_type", req.CellType); err != nil {
		return "", err
	}
	if req.CellType == CellMarkdown {
		if doc, err = sjson.Delete(doc, prefix+"outputs"); err != nil {
			return "", err
		}
		return sjson.Delete(doc, prefix+"execution_count")
	}
	if doc, err = sjson.SetRaw(doc, prefix+"outputs", "[]"); err != nil {
		return "", err
	}
	return sjson.SetRaw(doc, prefix+"execution_count", "null")
}

// insertCell places a new cell and returns its index. After cell_id the
// cell goes below the target; cell_index is the new cell's position.
func insertCell(doc string, cells []gjson.Result, target int, req *EditRequest) (string, int, error) {
	pos := len(cells)
	switch {
	case req.CellID != "":
		pos = target + 1
	case target >= 0:
		pos = target
	}

	cellType := req.CellType
	if cellType == "" {
		cellType = CellCode
	}
	withID := gjson.Get(doc, "nbformat").Int() > 4 || gjson.Get(doc, "nbformat_minor").Int() >= 5
	cell, err := newCell(cellType, req.NewSource, withID)
	if err != nil {
		return "", 0, err
	}

	raws := make([]string, 0, len(cells)+1)
	for _, c := range cells[:pos] {
		raws = append(raws, c.Raw)
	}
	raws = append(raws, cell)
	for _, c := range cells[pos:] {
		raws = append(raws, c.Raw)
	}
	doc, err = sjson.SetRaw(doc, "cells", "["+strings.Join(raws, ",")+"]")
	return doc, pos, err
}

func newCell(cellType, source string, withID bool) (string, error) {
	cell := `{"cell_type":"","metadata":{},"source":[]}`
	var err error
	if cell, err = sjson.Set(cell, "cell_type", cellType); err != nil {
		return "", err
	}
	if withID {
		id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
		if cell, err = sjson.Set(cell, "id", id); err != nil {
			return "", err
		}
	}
	if cell, err = sjson.Set(cell, "source", sourceLines(source)); err != nil {
		return "", err
	}
	if cellType == CellCode {
		if cell, err = sjson.SetRaw(cell, "execution_count", "null"); err != nil {
			return "", err
		}
		if cell, err = sjson.SetRaw(cell, "outputs", "[]"); err != nil {
			return "", err
		}
	}
	return cell, nil
}

// sourceLines stores source the way Jupyter does: one string per line,
// newline terminators kept.
func sourceLines(source string) []string {
	lines := content.SplitLinesInclusive(source)
	if lines == nil {
		return []string{}
	}
	return lines
}
