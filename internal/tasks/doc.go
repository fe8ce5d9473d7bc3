// Package tasks turns a project brief into an ordered task list.
//
// Generator renders the generate_tasks prompt template, sends it to the text
// model and hands the reply to Extract. Extract is a pure parser: it recovers
// every "N. **Title**: Description" occurrence in the reply, in order, and
// silently ignores everything else. The prompt and the extractor share that
// format, so a change to one needs a matching change to the other and to the
// golden fixtures under testdata/.
package tasks
