package parse

import (
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// TRIGGER_TYPE_* bits from pg_trigger.h
const (
	triggerBefore   = 1 << 1
	triggerInsert   = 1 << 2
	triggerDelete   = 1 << 3
	triggerUpdate   = 1 << 4
	triggerTruncate = 1 << 5
	triggerInstead  = 1 << 6
)

// event bits in the order they are written
var triggerEvents = []struct {
	bit  int32
	name string
}{
	{triggerInsert, "INSERT"},
	{triggerUpdate, "UPDATE"},
	{triggerDelete, "DELETE"},
	{triggerTruncate, "TRUNCATE"},
}

type CreateTrigger struct {
	Name        string
	Relation    Relation
	When        string
	Events      []string
	Columns     []string
	ForEach     string
	Condition   string
	Function    string
	Arguments   []string
	Constraint  bool
	Transitions []string
}

// TriggerEvents decodes an event bit mask
func TriggerEvents(mask int32) []string {
	out := []string{}
	for _, ev := range triggerEvents {
		if mask&ev.bit != 0 {
			out = append(out, ev.name)
		}
	}
	return out
}

// TriggerTiming decodes the timing bits
func TriggerTiming(timing int32) string {
	switch {
	case timing&triggerBefore != 0:
		return "BEFORE"
	case timing&triggerInstead != 0:
		return "INSTEAD OF"
	}
	return "AFTER"
}

func createTrigger(stmt *pg_query.CreateTrigStmt) (*CreateTrigger, error) {
	if stmt.Trigname == "" {
		return nil, malformed("CreateTrigStmt", "trigname")
	}
	rel, err := relation(stmt.Relation)
	if err != nil {
		return nil, err
	}
	if len(stmt.Funcname) == 0 {
		return nil, malformed("CreateTrigStmt", "funcname")
	}
	fn, err := dottedName(stmt.Funcname)
	if err != nil {
		return nil, err
	}
	trigger := &CreateTrigger{
		Name:       stmt.Trigname,
		Relation:   rel,
		When:       TriggerTiming(stmt.Timing),
		Events:     TriggerEvents(stmt.Events),
		ForEach:    "STATEMENT",
		Function:   fn,
		Constraint: stmt.Isconstraint,
	}
	if len(trigger.Events) == 0 {
		return nil, malformed("CreateTrigStmt", "events")
	}
	if stmt.Row {
		trigger.ForEach = "ROW"
	}
	if trigger.Columns, err = stringList(stmt.Columns); err != nil {
		return nil, err
	}
	if trigger.Arguments, err = stringList(stmt.Args); err != nil {
		return nil, err
	}
	if trigger.Condition, err = optionalExpression(stmt.WhenClause); err != nil {
		return nil, err
	}
	for _, t := range stmt.TransitionRels {
		rel := t.GetTriggerTransition()
		if rel == nil {
			return nil, unsupported(t)
		}
		kind := "OLD TABLE"
		if rel.IsNew {
			kind = "NEW TABLE"
		}
		trigger.Transitions = append(trigger.Transitions, kind+" AS "+rel.Name)
	}
	return trigger, nil
}

// EventList renders the events, naming the columns of an UPDATE OF
func (self *CreateTrigger) EventList() []string {
	out := make([]string, len(self.Events))
	for i, ev := range self.Events {
		if ev == "UPDATE" && len(self.Columns) > 0 {
			ev = "UPDATE OF " + strings.Join(self.Columns, ", ")
		}
		out[i] = ev
	}
	return out
}
