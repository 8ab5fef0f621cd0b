// Package report renders a settled bundle and score into a plain report
// document. Rendering is a formatting concern: the renderer is pure and
// swappable behind ports.Renderer (a PDF engine slots in without touching
// the pipeline).
package report

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/domain"
	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/scoring"
)

type PlainRenderer struct{}

func NewPlain() *PlainRenderer { return &PlainRenderer{} }

// Render writes a deterministic text document: header, score, one section
// per provider in name order, then recommendations.
func (r *PlainRenderer) Render(bundle domain.ResultBundle, score int, meta domain.ReportMeta) ([]byte, error) {
	var b bytes.Buffer
	fmt.Fprintf(&b, "TrustForge Security Scan Report\n")
	fmt.Fprintf(&b, "================================\n\n")
	fmt.Fprintf(&b, "File:       %s\n", meta.FileName)
	fmt.Fprintf(&b, "Job:        %s\n", meta.JobID)
	fmt.Fprintf(&b, "Scanned at: %s\n", meta.ScannedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "Trust score: %d/100 (%s)\n\n", score, scoring.Grade(score))

	names := make([]string, 0, len(bundle))
	for p := range bundle {
		names = append(names, string(p))
	}
	sort.Strings(names)

	for _, name := range names {
		out := bundle[domain.Provider(name)]
		fmt.Fprintf(&b, "## %s\n", name)
		switch out.Kind {
		case domain.OutcomeFailed:
			fmt.Fprintf(&b, "scan failed: %s\n\n", out.Reason)
			continue
		case domain.OutcomeSkipped:
			fmt.Fprintf(&b, "skipped: %s\n\n", out.Reason)
			continue
		}
		writePayload(&b, out)
		b.WriteString("\n")
	}

	_, recs := scoring.Score(bundle)
	fmt.Fprintf(&b, "## Recommendations\n")
	if len(recs) == 0 {
		fmt.Fprintf(&b, "No adverse findings.\n")
	}
	for _, rec := range recs {
		fmt.Fprintf(&b, "- %s\n", rec)
	}
	return b.Bytes(), nil
}

func writePayload(b *bytes.Buffer, out domain.Outcome) {
	switch {
	case out.Static != nil:
		rep := out.Static
		fmt.Fprintf(b, "findings: %d high, %d medium, %d low\n",
			rep.CountBySeverity(domain.SeverityHigh),
			rep.CountBySeverity(domain.SeverityMedium),
			rep.CountBySeverity(domain.SeverityLow))
		for _, f := range rep.Findings {
			fmt.Fprintf(b, "- [%s] %s\n", f.Severity, f.Title)
		}
	case out.AV != nil:
		fmt.Fprintf(b, "engines: %d total, %d malicious\n", out.AV.Total, out.AV.Malicious)
		engines := make([]string, 0, len(out.AV.Engines))
		for e, v := range out.AV.Engines {
			if v.Category == "malicious" {
				engines = append(engines, fmt.Sprintf("%s (%s)", e, v.Result))
			}
		}
		sort.Strings(engines)
		for _, e := range engines {
			fmt.Fprintf(b, "- %s\n", e)
		}
	case out.Reputation != nil:
		fmt.Fprintf(b, "detections: %d of %d engines\n", out.Reputation.Detections, out.Reputation.TotalEngines)
		if out.Reputation.Permalink != "" {
			fmt.Fprintf(b, "details: %s\n", out.Reputation.Permalink)
		}
	case out.Sandbox != nil:
		fmt.Fprintf(b, "verdict: %s (threat score %d)\n", out.Sandbox.Verdict, out.Sandbox.ThreatScore)
		for _, t := range out.Sandbox.Threats {
			fmt.Fprintf(b, "- %s\n", t)
		}
	}
}
