package core

// Action is the decision returned by a behavior's Evaluate call.
type Action string

const (
	// ActionOK accepts the trigger without generating a contribution.
	ActionOK Action = "ok"
	// ActionContribute accepts the trigger and requests response generation.
	ActionContribute Action = "contribute"
	// ActionReject blocks the triggering message; the suggestion is surfaced
	// to the submitting user as a correctable validation failure.
	ActionReject Action = "reject"
	// ActionAnnotate is an extension point for attaching metadata to a
	// message without blocking or contributing. It currently has no defined
	// persisted side effect and is acknowledged as a no-op.
	ActionAnnotate Action = "annotate"
)

// Evaluation is the transient result of one Evaluate call. It is never
// persisted.
type Evaluation struct {
	Action Action

	// UserMessage references the triggering message for message-triggered
	// evaluations; nil for periodic cycles.
	UserMessage *Message

	// UserContributionVisible controls whether the triggering user message
	// is persisted visibly. Behaviors that accept a message but want it
	// hidden from the thread set this to false.
	UserContributionVisible bool

	// AgentContributionVisible controls visibility of generated drafts when
	// Action is ActionContribute and a draft does not decide for itself.
	AgentContributionVisible bool

	// Suggestion is the user-facing correction hint accompanying a reject.
	Suggestion string

	// Contribution is an opaque payload a behavior may carry from Evaluate
	// to Respond.
	Contribution any
}

// Draft is a generated agent message prior to persistence.
type Draft struct {
	Visible bool
	Body    string
}
