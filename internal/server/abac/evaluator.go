package abac

// Evaluator looks up the policy attached to a role.
type Evaluator struct {
	policies map[string]Policy
}

func NewEvaluator() *Evaluator {
	return &Evaluator{policies: make(map[string]Policy)}
}

// Attach sets the policy for role, replacing any previous one. It is meant
// for start-up wiring only and is not safe to call concurrently with
// Evaluate.
func (e *Evaluator) Attach(role string, p Policy) {
	e.policies[role] = p
}

// Evaluate applies the role's policy, allowing when there is none.
func (e *Evaluator) Evaluate(role string, ctx Context) Decision {
	p, ok := e.policies[role]
	if !ok {
		return Allow()
	}
	return p.Evaluate(ctx)
}
