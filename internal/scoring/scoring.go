// Package scoring maps a result bundle to a 0-100 trust score and a list of
// remediation recommendations. Pure: no I/O, no clock, no configuration.
package scoring

import "github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/domain"

// Deduction weights. A failed or skipped provider contributes nothing:
// absence of signal is neither evidence of safety nor penalized.
const (
	deductHighFinding   = 10
	deductMediumFinding = 5
	deductLowFinding    = 2
	deductAVEngine      = 5
	deductReputationHit = 5
	deductSandboxMal    = 20
	deductSandboxSusp   = 10
	deductSandboxThreat = 3
)

// Score computes the trust score and recommendations for a settled bundle.
// The score starts at 100 and is clamped to [0,100]; recommendations are
// ordered static high/medium/low, AV, reputation, sandbox.
func Score(bundle domain.ResultBundle) (int, []string) {
	score := 100
	recs := []string{}

	var static *domain.StaticReport
	var av *domain.AVReport
	var rep *domain.ReputationReport
	var sandbox *domain.SandboxReport
	for _, out := range bundle {
		if out.Kind != domain.OutcomeSuccess {
			continue
		}
		switch {
		case out.Static != nil:
			static = out.Static
		case out.AV != nil:
			av = out.AV
		case out.Reputation != nil:
			rep = out.Reputation
		case out.Sandbox != nil:
			sandbox = out.Sandbox
		}
	}

	if static != nil {
		high := static.CountBySeverity(domain.SeverityHigh)
		medium := static.CountBySeverity(domain.SeverityMedium)
		low := static.CountBySeverity(domain.SeverityLow)
		score -= high*deductHighFinding + medium*deductMediumFinding + low*deductLowFinding
		if high > 0 {
			recs = append(recs, recPlural(high, "Fix %d high-severity static analysis finding", "Fix %d high-severity static analysis findings"))
		}
		if medium > 0 {
			recs = append(recs, recPlural(medium, "Review %d medium-severity static analysis finding", "Review %d medium-severity static analysis findings"))
		}
		if low > 0 {
			recs = append(recs, recPlural(low, "Consider %d low-severity static analysis finding", "Consider %d low-severity static analysis findings"))
		}
	}

	if av != nil {
		score -= av.Malicious * deductAVEngine
		if av.Malicious > 0 {
			recs = append(recs, recPlural(av.Malicious,
				"Investigate antivirus detections: %d engine flagged this file as malicious",
				"Investigate antivirus detections: %d engines flagged this file as malicious"))
		}
	}

	if rep != nil {
		score -= rep.Detections * deductReputationHit
		if rep.Detections > 0 {
			recs = append(recs, recPlural(rep.Detections,
				"Check file reputation: %d detection reported",
				"Check file reputation: %d detections reported"))
		}
	}

	if sandbox != nil {
		switch sandbox.Verdict {
		case domain.VerdictMalicious:
			score -= deductSandboxMal
		case domain.VerdictSuspicious:
			score -= deductSandboxSusp
		}
		score -= len(sandbox.Threats) * deductSandboxThreat
		if sandbox.Verdict == domain.VerdictMalicious || sandbox.Verdict == domain.VerdictSuspicious || len(sandbox.Threats) > 0 {
			recs = append(recs, "Review sandbox behavioral analysis: dynamic execution raised adverse signals")
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score, recs
}
