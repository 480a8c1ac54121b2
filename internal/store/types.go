package store

// Node kinds.
const (
	KindRoot       = "root"
	KindScope      = "scope"
	KindDefinition = "definition"
	KindReference  = "reference"
)

// Definition placements.
const (
	// PlacementLocal binds a definition in its innermost enclosing scope.
	PlacementLocal = "local"
	// PlacementParent binds a definition in the scope around its innermost
	// enclosing scope, for items whose name sits inside the scope they open.
	PlacementParent = "parent"
)

// Edge kinds.
const (
	EdgeParent   = "parent"
	EdgeDefines  = "defines"
	EdgeResolves = "resolves"
)

type File struct {
	ID       int64
	Path     string
	Language string
}

// Node is one vertex of a file's name-resolution graph.
type Node struct {
	ID         int64
	FileID     int64
	Kind       string
	Symbol     string
	SyntaxType string
	Placement  string
	StartByte  int
	EndByte    int
	StartLine  int
	StartCol   int
	EndLine    int
	EndCol     int
	ScopeID    *int64
}

// Contains reports whether n's byte span covers other's.
func (n *Node) Contains(other *Node) bool {
	return n.StartByte <= other.StartByte && other.EndByte <= n.EndByte
}

// Width is the byte length of the node's span.
func (n *Node) Width() int {
	return n.EndByte - n.StartByte
}

type Edge struct {
	ID       int64
	FileID   int64
	SourceID int64
	SinkID   int64
	Kind     string
}
