// Package rules embeds the per-language name-binding rule scripts used to
// build name-resolution graphs.
//
// Each <language>.risor script declares a list of rules and hands them to
// graph.apply, the shared driver in graph.risor. A rule is a map with:
//
//   - kind: "scope", "definition" or "reference"
//   - pattern: a tree-sitter query with exactly one capture
//   - capture: the capture name to record
//   - placement: "local" (default) or "parent" for definitions whose name
//     sits inside the scope the item opens
package rules

import "embed"

//go:embed *.risor
var FS embed.FS
