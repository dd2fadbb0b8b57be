package oracle

import (
	"context"
	"strings"

	"routing-arena/internal/domain"
)

// StaticOracle is an offline classifier for local runs. It answers with the
// first label whose name appears in the question, else in the policy, else
// Default.
type StaticOracle struct {
	Default domain.Label
}

func (s StaticOracle) Classify(ctx context.Context, policy, question string) (domain.Label, error) {
	if err := ctx.Err(); err != nil {
		return "", unavailable("static", 0, err)
	}
	for _, text := range []string{question, policy} {
		lower := strings.ToLower(text)
		for _, l := range domain.OracleLabels {
			if strings.Contains(lower, strings.ToLower(string(l))) {
				return l, nil
			}
		}
	}
	if s.Default.Valid() {
		return s.Default, nil
	}
	return domain.LabelOther, nil
}
