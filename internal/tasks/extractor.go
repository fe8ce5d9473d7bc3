package tasks

import (
	"fmt"
	"regexp"
	"strings"
)

// taskPattern matches "N. **Title**: Description". The description runs to the
// end of its line; [ \t]* keeps an empty description from reaching into the
// next line.
var taskPattern = regexp.MustCompile(`(\d+)\.\s+\*\*(.*?)\*\*:[ \t]*(.*)`)

// Extract parses every task line in text, in order of appearance. Text that
// does not match is ignored. The model's own numbering is discarded: IDs and
// orders come from match position. Extract never returns nil.
func Extract(text string) []Task {
	matches := taskPattern.FindAllStringSubmatch(text, -1)
	tasks := make([]Task, 0, len(matches))
	for i, m := range matches {
		tasks = append(tasks, Task{
			ID:          fmt.Sprintf("TASK-%d", i+1),
			Title:       strings.TrimSpace(m[2]),
			Description: strings.TrimSpace(m[3]),
			Order:       i,
		})
	}
	return tasks
}
