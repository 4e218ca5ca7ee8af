package file

import (
	"strings"

	"github.com/hewenyu/OperationKernel/internal/tool"
	"github.com/pmezard/go-difflib/difflib"
)

type diffStat struct {
	Text    string
	Added   int
	Removed int
}

func (d diffStat) display(path string) tool.DiffDisplay {
	return tool.DiffDisplay{Path: path, Diff: d.Text, AddedLines: d.Added, RemovedLines: d.Removed}
}

func computeUnifiedDiff(filename, oldContent, newContent string) diffStat {
	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(oldContent),
		B:        difflib.SplitLines(newContent),
		FromFile: "a/" + filename,
		ToFile:   "b/" + filename,
		Context:  3,
	}
	text, _ := difflib.GetUnifiedDiffString(ud)

	d := diffStat{Text: text}
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++") {
			d.Added++
		} else if strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---") {
			d.Removed++
		}
	}
	return d
}
