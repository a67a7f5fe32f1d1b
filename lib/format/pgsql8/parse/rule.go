package parse

import (
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/dbsteward/pglifecycle/lib/ir"
)

var ruleEvents = map[pg_query.CmdType]string{
	pg_query.CmdType_CMD_SELECT: "SELECT",
	pg_query.CmdType_CMD_UPDATE: "UPDATE",
	pg_query.CmdType_CMD_INSERT: "INSERT",
	pg_query.CmdType_CMD_DELETE: "DELETE",
}

type CreateRule struct {
	Name     string
	Relation Relation
	Event    string
	Instead  bool
	Where    string
	Actions  []string
}

func createRule(stmt *pg_query.RuleStmt) (*CreateRule, error) {
	if stmt.Rulename == "" {
		return nil, malformed("RuleStmt", "rulename")
	}
	rel, err := relation(stmt.Relation)
	if err != nil {
		return nil, err
	}
	event, ok := ruleEvents[stmt.Event]
	if !ok {
		return nil, malformed("RuleStmt", "event")
	}
	rule := &CreateRule{
		Name:     stmt.Rulename,
		Relation: rel,
		Event:    event,
		Instead:  stmt.Instead,
	}
	if rule.Where, err = optionalExpression(stmt.WhereClause); err != nil {
		return nil, err
	}
	for _, action := range stmt.Actions {
		text, err := deparse(action)
		if err != nil {
			return nil, err
		}
		rule.Actions = append(rule.Actions, strings.TrimSuffix(text, ";"))
	}
	return rule, nil
}

// Rule converts the statement to the project representation
func (self *CreateRule) Rule() *ir.Rule {
	return &ir.Rule{
		Name:    self.Name,
		Event:   self.Event,
		Instead: self.Instead,
		Where:   self.Where,
		Actions: self.Actions,
	}
}
