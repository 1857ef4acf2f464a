package strategy

import (
	"fmt"
	"strings"
)

// Action is the closed set of position actions a rule branch can request.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
	ActionExit Action = "exit"
)

// ParseAction validates a user-supplied action string (case-insensitive).
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionBuy, ActionSell, ActionHold, ActionExit:
		return a, nil
	}
	return "", fmt.Errorf("unknown action: %q", s)
}
