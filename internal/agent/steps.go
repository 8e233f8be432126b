package agent

// Workflow steps in service order. A conversation starts at greeting
// and finishes after review.
const (
	StepGreeting = "greeting"
	StepCustomer = "customer"
	StepDesign   = "design"
	StepService  = "service"
	StepComplete = "complete"
	StepAnalysis = "analysis"
	StepReview   = "review"
	StepDone     = "done"
)

var stepFlow = []string{
	StepGreeting, StepCustomer, StepDesign, StepService,
	StepComplete, StepAnalysis, StepReview,
}

// nextStep returns the step after current. Past review, and for any
// unknown step, the flow terminates at done.
func nextStep(current string) string {
	for i, step := range stepFlow {
		if step == current && i+1 < len(stepFlow) {
			return stepFlow[i+1]
		}
	}
	return StepDone
}
