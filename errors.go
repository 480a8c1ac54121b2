package treescan

import "errors"

var (
	// ErrRootNotFound is returned when the scan root does not exist.
	ErrRootNotFound = errors.New("treescan: root path does not exist")

	// ErrUnsupported is returned by ScanFile for a file whose extension has
	// no registered grammar.
	ErrUnsupported = errors.New("treescan: unsupported file type")

	// ErrNoTree is returned when the parser produced no tree or no root node.
	ErrNoTree = errors.New("treescan: parser produced no tree")
)
