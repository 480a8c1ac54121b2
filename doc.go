// Package treescan walks a directory tree, parses every TypeScript, TSX,
// Rust and C# file it finds with tree-sitter, and prints an indented
// rendering of each file's concrete syntax tree.
//
// # Pipeline
//
// For every regular file below the scan root:
//
//  1. Classify: map the file extension to a [runtime.Language] through the
//     grammar registry. Files with unknown extensions are skipped.
//  2. Parse: build a tree-sitter tree with a fresh parser.
//  3. Render: in [ModeSyntax], walk the tree in pre-order and print one line
//     per named node, indented two spaces per level. Identifier nodes carry
//     their source text. In [ModeGraph], run the language's name-binding
//     rules and print the resulting scope graph instead.
//
// # Usage
//
//	s, err := treescan.New(treescan.WithOutput(os.Stdout))
//	if err != nil { ... }
//	defer s.Close()
//
//	sum, err := s.ScanDirectory(ctx, "path/to/project")
//
// A file that fails to read or parse is logged and counted in
// [Summary.Failed]; the scan carries on with the next file. A missing root
// fails the whole scan with [ErrRootNotFound].
package treescan
