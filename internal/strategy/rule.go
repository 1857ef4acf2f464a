package strategy

import (
	"stock-backtester/internal/model"
)

// Rule 条件交易规则: 条件成立执行 Then, 否则执行 Else
type Rule struct {
	Condition Condition
	Then      Action
	Else      Action
}

// NewRule builds a Rule from raw strings, rejecting unknown values up front
// so the simulation loop never sees an unrecognized condition or action.
func NewRule(condition, thenAction, elseAction string) (Rule, error) {
	cond, err := ParseCondition(condition)
	if err != nil {
		return Rule{}, err
	}
	then, err := ParseAction(thenAction)
	if err != nil {
		return Rule{}, err
	}
	els, err := ParseAction(elseAction)
	if err != nil {
		return Rule{}, err
	}
	return Rule{Condition: cond, Then: then, Else: els}, nil
}

// Decide evaluates the condition on the current bar and returns the action
// for the branch taken.
func (r Rule) Decide(bar model.Bar, ind model.IndicatorState) Action {
	if r.Condition.Evaluate(bar, ind) {
		return r.Then
	}
	return r.Else
}
