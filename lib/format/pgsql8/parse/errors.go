package parse

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// UnsupportedNodeKindError is returned for parser nodes the normalizer
// has no rule for
type UnsupportedNodeKindError struct {
	Kind string
}

func (self *UnsupportedNodeKindError) Error() string {
	return fmt.Sprintf("unsupported node kind %s", self.Kind)
}

// MalformedNodeError is returned when a known node is missing a field it
// requires
type MalformedNodeError struct {
	Kind  string
	Field string
}

func (self *MalformedNodeError) Error() string {
	return fmt.Sprintf("malformed %s node: missing %s", self.Kind, self.Field)
}

// nodeKind names the concrete node wrapped by n, e.g. CreateStmt
func nodeKind(n *pg_query.Node) string {
	if n == nil || n.Node == nil {
		return "nil"
	}
	kind := fmt.Sprintf("%T", n.Node)
	kind = strings.TrimPrefix(kind, "*pg_query.Node_")
	return strings.TrimSuffix(kind, "_")
}

func unsupported(n *pg_query.Node) error {
	return &UnsupportedNodeKindError{Kind: nodeKind(n)}
}

func malformed(kind, field string) error {
	return &MalformedNodeError{Kind: kind, Field: field}
}
