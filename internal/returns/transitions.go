package returns

import "github.com/craftkart/storefront-backend/pkg/enums"

// allowedTransitions is the return state machine: requested forks into
// approved or rejected, then the approved branch walks shipped → received →
// refunded → completed. Rejected and completed are terminal.
var allowedTransitions = map[enums.ReturnStatus][]enums.ReturnStatus{
	enums.ReturnStatusRequested: {enums.ReturnStatusApproved, enums.ReturnStatusRejected},
	enums.ReturnStatusApproved:  {enums.ReturnStatusShipped},
	enums.ReturnStatusShipped:   {enums.ReturnStatusReceived},
	enums.ReturnStatusReceived:  {enums.ReturnStatusRefunded},
	enums.ReturnStatusRefunded:  {enums.ReturnStatusCompleted},
	enums.ReturnStatusRejected:  {},
	enums.ReturnStatusCompleted: {},
}

// CanTransition reports whether a return may move between the two states.
func CanTransition(from, to enums.ReturnStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}
