package tui

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/burrowtool/burrow/internal/fleet"
)

// statePane renders the preview for one instance: its state directory tree
// followed by the tail of the service log. Everything is re-read on each
// render — the directory tree IS the instance state, there is nothing else
// to consult.
func (m model) statePane(in fleet.Instance, height int) []string {
	var lines []string
	lines = append(lines, treeDirStyle.Render(in.ID)+treeLineStyle.Render("  ("+in.Dir+")"))

	treeBudget := height / 2
	lines = append(lines, renderTree(in.Dir, "", treeBudget)...)

	logPath := filepath.Join(in.Dir, m.cfg.Service.Name, "log", "postgres.log")
	tail := tailFile(logPath, height-len(lines)-1)
	if len(tail) > 0 {
		lines = append(lines, "")
		lines = append(lines, tail...)
	}

	if len(lines) > height {
		lines = lines[:height]
	}
	return lines
}

// renderTree lists dir as an indented tree, depth-first, capped at budget
// lines. Directories sort before files; postgres data directories are
// summarized rather than expanded (hundreds of entries nobody scrolls).
func renderTree(dir, prefix string, budget int) []string {
	if budget <= 0 {
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return []string{treeLineStyle.Render(prefix + "(unreadable: " + err.Error() + ")")}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return entries[i].Name() < entries[j].Name()
	})

	var lines []string
	for i, e := range entries {
		if len(lines) >= budget {
			lines = append(lines, treeLineStyle.Render(prefix+"…"))
			break
		}

		connector := "├── "
		childPrefix := prefix + "│   "
		if i == len(entries)-1 {
			connector = "└── "
			childPrefix = prefix + "    "
		}

		if e.IsDir() {
			label := treeDirStyle.Render(e.Name() + "/")
			if e.Name() == "data" {
				n := countEntries(filepath.Join(dir, e.Name()))
				lines = append(lines, treeLineStyle.Render(prefix+connector)+label+
					treeLineStyle.Render("  "+strconv.Itoa(n)+" entries"))
				continue
			}
			lines = append(lines, treeLineStyle.Render(prefix+connector)+label)
			lines = append(lines, renderTree(filepath.Join(dir, e.Name()), childPrefix, budget-len(lines))...)
		} else {
			lines = append(lines, treeLineStyle.Render(prefix+connector)+treeFileStyle.Render(e.Name()))
		}
	}
	return lines
}

func countEntries(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	return len(entries)
}

// tailFile returns up to n trailing lines of path, or nil if unreadable.
func tailFile(path string, n int) []string {
	if n <= 0 {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
