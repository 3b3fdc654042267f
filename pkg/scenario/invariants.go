package scenario

import (
	"fmt"
	"math"
)

const equalityTolerance = 1e-9

func isFractionMetric(metric string) bool {
	switch metric {
	case "peak_fraction", "final_fraction", "attack_rate", "blast_radius_fraction":
		return true
	}
	return false
}

// metricValue resolves an invariant metric name against a result.
func (r *Result) metricValue(metric string) (float64, error) {
	switch metric {
	case "final_infected":
		return float64(r.FinalInfected), nil
	case "peak_infected":
		return float64(r.Peak), nil
	case "peak_fraction":
		return r.fraction(r.Peak), nil
	case "final_fraction":
		return r.fraction(r.FinalInfected), nil
	case "attack_rate":
		return r.AttackRate, nil
	case "blast_radius_fraction":
		return r.BlastRadiusFraction, nil
	default:
		return 0, fmt.Errorf("unknown metric %q", metric)
	}
}

func compare(actual float64, condition string, expected float64) bool {
	switch condition {
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected
	case "==":
		return math.Abs(actual-expected) <= equalityTolerance
	}
	return false
}

// EvaluateInvariants checks every invariant against r, stores the outcomes
// on r and sets r.Success when all of them pass. A scenario without
// invariants succeeds.
func EvaluateInvariants(r *Result, invariants []Invariant) {
	r.Invariants = make([]InvariantResult, 0, len(invariants))
	r.Success = true

	for _, inv := range invariants {
		res := InvariantResult{
			Metric:   inv.Metric,
			Expected: fmt.Sprintf("%s %.2f", inv.Condition, inv.Value),
		}

		actual, err := r.metricValue(inv.Metric)
		if err != nil {
			res.Actual = err.Error()
		} else {
			res.Actual = fmt.Sprintf("%.4f", actual)
			res.Passed = compare(actual, inv.Condition, inv.Value)
		}

		if !res.Passed {
			r.Success = false
		}
		r.Invariants = append(r.Invariants, res)
	}
}
