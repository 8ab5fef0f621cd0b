package domain

import "time"

// Provider identifies one external scanning service.
type Provider string

const (
	ProviderMobSF          Provider = "mobsf"
	ProviderVirusTotal     Provider = "virustotal"
	ProviderMetaDefender   Provider = "metadefender"
	ProviderHybridAnalysis Provider = "hybrid_analysis"
)

// ScanJob is the durable record for one uploaded package moving through the
// pipeline. Bundle, Score and ReportRef are nil until the job completes and
// are always written together with the completed status.
type ScanJob struct {
	ID            string
	OwnerID       string
	FileRef       string
	FileName      string
	Status        Status
	Bundle        ResultBundle
	Score         *int
	ReportRef     *string
	FailureReason *string
	Attempts      int
	StartedAt     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ResultBundle maps each configured provider to its settled outcome. Exactly
// one outcome per provider; immutable once attached to a completed job.
type ResultBundle map[Provider]Outcome

// OutcomeKind tags an Outcome variant.
type OutcomeKind string

const (
	OutcomeSuccess OutcomeKind = "success"
	OutcomeFailed  OutcomeKind = "failed"
	OutcomeSkipped OutcomeKind = "skipped"
)

// Outcome is the tagged per-provider result. Exactly one payload pointer is
// set when Kind is success; Reason is set for failed and skipped.
type Outcome struct {
	Kind       OutcomeKind       `json:"kind"`
	Reason     string            `json:"reason,omitempty"`
	Static     *StaticReport     `json:"static,omitempty"`
	AV         *AVReport         `json:"av,omitempty"`
	Reputation *ReputationReport `json:"reputation,omitempty"`
	Sandbox    *SandboxReport    `json:"sandbox,omitempty"`
}

// ProviderPayload is implemented by the per-provider report types.
type ProviderPayload interface {
	isProviderPayload()
}

func (*StaticReport) isProviderPayload()     {}
func (*AVReport) isProviderPayload()         {}
func (*ReputationReport) isProviderPayload() {}
func (*SandboxReport) isProviderPayload()    {}

// Success wraps a typed payload into a success outcome.
func Success(p ProviderPayload) Outcome {
	out := Outcome{Kind: OutcomeSuccess}
	switch v := p.(type) {
	case *StaticReport:
		out.Static = v
	case *AVReport:
		out.AV = v
	case *ReputationReport:
		out.Reputation = v
	case *SandboxReport:
		out.Sandbox = v
	}
	return out
}

// Failed builds a failed outcome with the given reason.
func Failed(reason string) Outcome {
	return Outcome{Kind: OutcomeFailed, Reason: reason}
}

// Skipped builds a skipped outcome with the given reason.
func Skipped(reason string) Outcome {
	return Outcome{Kind: OutcomeSkipped, Reason: reason}
}

// Severity levels reported by the static analysis engine.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// StaticFinding is one issue reported by the static analysis engine.
type StaticFinding struct {
	Title       string   `json:"title"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description,omitempty"`
	Section     string   `json:"section,omitempty"`
}

// StaticReport is the static-analysis payload.
type StaticReport struct {
	AppName  string          `json:"app_name,omitempty"`
	Findings []StaticFinding `json:"findings"`
}

// CountBySeverity returns the number of findings at the given severity.
func (r *StaticReport) CountBySeverity(s Severity) int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity == s {
			n++
		}
	}
	return n
}

// EngineVerdict is one AV engine's verdict inside the aggregator report.
type EngineVerdict struct {
	Category string `json:"category"`         // malicious|suspicious|undetected
	Result   string `json:"result,omitempty"` // engine-specific signature name
}

// AVReport is the multi-engine AV aggregator payload.
type AVReport struct {
	Engines   map[string]EngineVerdict `json:"engines"`
	Total     int                      `json:"total"`
	Malicious int                      `json:"malicious"`
}

// ReputationReport is the file-reputation payload.
type ReputationReport struct {
	Detections   int    `json:"detections"`
	TotalEngines int    `json:"total_engines"`
	Permalink    string `json:"permalink,omitempty"`
}

// SandboxVerdict is the overall dynamic-analysis verdict.
type SandboxVerdict string

const (
	VerdictClean      SandboxVerdict = "clean"
	VerdictSuspicious SandboxVerdict = "suspicious"
	VerdictMalicious  SandboxVerdict = "malicious"
	VerdictUnknown    SandboxVerdict = "unknown"
)

// SandboxReport is the dynamic/behavioral sandbox payload.
type SandboxReport struct {
	Verdict     SandboxVerdict `json:"verdict"`
	ThreatScore int            `json:"threat_score,omitempty"`
	Threats     []string       `json:"threats,omitempty"`
}

// ReportMeta carries job identity into the report renderer.
type ReportMeta struct {
	JobID     string
	FileName  string
	OwnerID   string
	ScannedAt time.Time
}
