package agent

// Policy controls autonomous behavior limits for a single agent turn.
type Policy struct {
	// MaxLoopSteps caps backend calls in one turn. Each step runs every tool
	// call the backend returned.
	MaxLoopSteps int
	// MaxInputChars blocks overly large user input payloads.
	MaxInputChars int
	// MaxToolCallsPerStep caps how many tool calls from one backend response
	// are executed. Extra calls are answered with an error result.
	MaxToolCallsPerStep int
}

const DefaultMaxLoopSteps = 5

func defaultPolicy() Policy {
	return Policy{
		MaxLoopSteps:        DefaultMaxLoopSteps,
		MaxInputChars:       12000,
		MaxToolCallsPerStep: 25,
	}
}

func mergePolicy(base, override Policy) Policy {
	policy := base
	if override.MaxLoopSteps > 0 {
		policy.MaxLoopSteps = override.MaxLoopSteps
	}
	if override.MaxInputChars > 0 {
		policy.MaxInputChars = override.MaxInputChars
	}
	if override.MaxToolCallsPerStep > 0 {
		policy.MaxToolCallsPerStep = override.MaxToolCallsPerStep
	}
	return policy
}
