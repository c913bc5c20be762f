package billing

// transitions lists the statuses each status may move to
var transitions = map[Status][]Status{
	StatusTrial:            {StatusActive, StatusInactive, StatusCancelled},
	StatusPaymentPending:   {StatusActive, StatusRejected, StatusInactive},
	StatusActive:           {StatusUpgradePending, StatusDowngradePending, StatusInactive, StatusCancelled},
	StatusUpgradePending:   {StatusActive, StatusInactive},
	StatusDowngradePending: {StatusActive, StatusInactive},
	StatusPaid:             {StatusActive, StatusInactive},
	StatusCancelled:        {StatusInactive},
}

// CanTransition reports whether a row may move from one status to another
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// canActivate reports whether an order in status from may be activated by a payment on method.
// A Stripe checkout session accepts another card after a declined attempt, so a verified
// completion may still activate an order rejected by the earlier failure.
func canActivate(from Status, method PaymentMethod) bool {
	if from == StatusRejected && method == MethodStripe {
		return true
	}
	return CanTransition(from, StatusActive)
}

// IsEntitled reports whether a row in this status grants access
func IsEntitled(status Status) bool {
	switch status {
	case StatusActive, StatusUpgradePending, StatusDowngradePending:
		return true
	default:
		return false
	}
}

// SQL fragments kept in step with IsEntitled
const (
	entitledStatusesSQL = `('active', 'upgrade_pending', 'downgrade_pending')`
	currentStatusesSQL  = `('active', 'upgrade_pending', 'downgrade_pending', 'trial')`
)
