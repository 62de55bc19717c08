package checkout

import "strings"

// Action is what a checkout submission asks for.
type Action int

const (
	// ActionApply validates the promo code and re-renders the checkout.
	ActionApply Action = iota + 1
	// ActionPlace turns the cart into an order.
	ActionPlace
)

func (a Action) String() string {
	switch a {
	case ActionApply:
		return "apply"
	case ActionPlace:
		return "place"
	default:
		return "unknown"
	}
}

// ParseAction maps the form discriminator to an Action.
func ParseAction(raw string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "apply":
		return ActionApply, nil
	case "place":
		return ActionPlace, nil
	default:
		return 0, ErrUnknownAction
	}
}
