package llm

import "context"

// Purposes label requests in the event log and metrics.
const (
	PurposeTutorChat     = "tutor-chat"
	PurposeCaseStudyEval = "case-study-eval"
)

type purposeKey struct{}

func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey{}, purpose)
}

// PurposeFrom returns the label set by WithPurpose, or "unknown".
func PurposeFrom(ctx context.Context) string {
	if v, _ := ctx.Value(purposeKey{}).(string); v != "" {
		return v
	}
	return "unknown"
}
