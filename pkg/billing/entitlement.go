package billing

// Action is an operation gated by subscription entitlements.
type Action string

const (
	// ActionGenerateQuiz consumes one unit of the plan's quiz quota.
	ActionGenerateQuiz Action = "quiz.generate"
	// ActionViewDashboard is quota-checked but never consumes quota.
	ActionViewDashboard Action = "dashboard.view"
)

// ConsumesQuota reports whether performing the action uses up quota, as
// opposed to only being denied once quota is exhausted.
func (a Action) ConsumesQuota() bool {
	return a == ActionGenerateQuiz
}

// Decision reason and redirect hint values surfaced to callers.
const (
	ReasonQuotaExceeded = "quota_exceeded"
	RedirectPricing     = "pricing"
)

// Decision is the outcome of an entitlement check. Used/Limit carry the
// quota position for quota-bound users; Limit is Unlimited for paid roles.
type Decision struct {
	Allowed      bool
	Reason       string
	RedirectHint string
	Used         int64
	Limit        int64
}

func allowDecision(used, limit int64) Decision {
	return Decision{Allowed: true, Used: used, Limit: limit}
}

func denyQuotaDecision(used, limit int64) Decision {
	return Decision{
		Reason:       ReasonQuotaExceeded,
		RedirectHint: RedirectPricing,
		Used:         used,
		Limit:        limit,
	}
}
