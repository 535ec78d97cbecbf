package correct

import (
	"fmt"

	"github.com/Knetic/govaluate"
)

// OutputVariables maps a derived output band name to a govaluate expression
// evaluated per pixel once the final correction has written sr1..sr7, aot
// and eps. This is a scene-config concern (spec.md section 6's "tunables"
// generalized to user-configurable derived QA/diagnostic bands); the core
// pipeline never evaluates one unless the scene configuration supplies it.
type OutputVariables map[string]string

// Compile parses every expression in v, failing fast on the first
// unparseable one so a bad scene config is rejected before any pixel work
// starts.
func (v OutputVariables) Compile() (map[string]*govaluate.EvaluableExpression, error) {
	compiled := make(map[string]*govaluate.EvaluableExpression, len(v))
	for name, expr := range v {
		e, err := govaluate.NewEvaluableExpression(expr)
		if err != nil {
			return nil, fmt.Errorf("correct: output variable %q: %w", name, err)
		}
		compiled[name] = e
	}
	return compiled, nil
}

// PixelVariables builds the govaluate parameter set for one pixel's
// compiled output expressions.
func PixelVariables(sr [7]float64, aot, eps float64) map[string]interface{} {
	return map[string]interface{}{
		"sr1": sr[0], "sr2": sr[1], "sr3": sr[2], "sr4": sr[3],
		"sr5": sr[4], "sr6": sr[5], "sr7": sr[6],
		"aot": aot, "eps": eps,
	}
}

// EvaluateAll evaluates every compiled expression against one pixel's
// variables, returning float64 results keyed by output variable name.
func EvaluateAll(compiled map[string]*govaluate.EvaluableExpression, vars map[string]interface{}) (map[string]float64, error) {
	out := make(map[string]float64, len(compiled))
	for name, expr := range compiled {
		result, err := expr.Evaluate(vars)
		if err != nil {
			return nil, fmt.Errorf("correct: evaluating output variable %q: %w", name, err)
		}
		f, ok := result.(float64)
		if !ok {
			return nil, fmt.Errorf("correct: output variable %q did not evaluate to a number", name)
		}
		out[name] = f
	}
	return out, nil
}
