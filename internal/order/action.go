package order

// Action is what the caller should do next before an order can be reviewed
// and submitted. Derived purely from approval/deposit state; rendering is
// someone else's problem.
type Action int

const (
	ActionReview Action = iota
	ActionFixInput
	ActionApproveToken
	ActionApproveQueue
	ActionAwaitDeposit
)

func (a Action) String() string {
	switch a {
	case ActionReview:
		return "review"
	case ActionFixInput:
		return "fix-input"
	case ActionApproveToken:
		return "approve-token"
	case ActionApproveQueue:
		return "approve-queue"
	case ActionAwaitDeposit:
		return "await-deposit"
	default:
		return "unknown"
	}
}

// ApprovalState captures the caller-side gating inputs.
type ApprovalState struct {
	NeedsTokenApproval bool
	NeedsQueueApproval bool
	PendingDeposit     bool
	HasInputError      bool
}

// NextAction resolves the gating precedence: broken input blocks everything,
// then the token spend approval, then the queue's own approval, then any
// in-flight deposit. Only a clear state reaches review.
func NextAction(s ApprovalState) Action {
	switch {
	case s.HasInputError:
		return ActionFixInput
	case s.NeedsTokenApproval:
		return ActionApproveToken
	case s.NeedsQueueApproval:
		return ActionApproveQueue
	case s.PendingDeposit:
		return ActionAwaitDeposit
	default:
		return ActionReview
	}
}
