package parse

import (
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// Comment is COMMENT ON. Object is the dotted object name; casts are
// named "source AS target". A NULL comment leaves Text empty.
type Comment struct {
	ObjectType string
	Object     string
	Text       string
}

func comment(stmt *pg_query.CommentStmt) (*Comment, error) {
	if stmt.Object == nil {
		return nil, malformed("CommentStmt", "object")
	}
	c := &Comment{
		ObjectType: objectType(stmt.Objtype),
		Text:       strings.TrimSpace(stmt.Comment),
	}
	var err error
	if items := stmt.Object.GetList().GetItems(); len(items) == 2 && items[0].GetTypeName() != nil {
		c.Object, err = castName(items)
	} else {
		c.Object, err = grantObject(stmt.Object)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func castName(items []*pg_query.Node) (string, error) {
	source, err := TypeName(items[0].GetTypeName())
	if err != nil {
		return "", err
	}
	target := items[1].GetTypeName()
	if target == nil {
		return "", unsupported(items[1])
	}
	tgt, err := TypeName(target)
	if err != nil {
		return "", err
	}
	return source + " AS " + tgt, nil
}
