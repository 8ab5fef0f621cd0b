// Package hybridanalysis wraps the Hybrid Analysis (Falcon Sandbox) v2 API,
// used as the dynamic/behavioral sandbox. Report summaries vary between
// sandbox versions, so the summary is read with gjson path lookups instead
// of a rigid struct mirror.
package hybridanalysis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/config"
	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/domain"
	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/providers"
)

// environmentAndroid is the sandbox environment id for Android static
// routing; iOS packages go through the generic environment.
const (
	environmentAndroid = "200"
	environmentGeneric = "300"
)

var environments = map[string]string{
	".apk":  environmentAndroid,
	".xapk": environmentAndroid,
	".ipa":  environmentGeneric,
}

type Client struct {
	cfg config.Provider
	hc  *http.Client
}

func New(cfg config.Provider) *Client {
	return &Client{cfg: cfg, hc: providers.NewHTTPClient()}
}

func (c *Client) Name() domain.Provider { return domain.ProviderHybridAnalysis }

type handle struct {
	JobID string
}

type submitResponse struct {
	JobID   string `json:"job_id"`
	SHA256  string `json:"sha256"`
	Message string `json:"message"`
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"api-key":    c.cfg.APIKey,
		"User-Agent": "Falcon Sandbox",
	}
}

// Submit sends the package into the sandbox. Unsupported file types and
// oversized files are skipped: the sandbox has detonation environments only
// for mobile packages.
func (c *Client) Submit(ctx context.Context, path string) (providers.Handle, error) {
	env, ok := environments[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, domain.Skipf("no sandbox environment for %q files", filepath.Ext(path))
	}
	if c.cfg.MaxFileSize > 0 {
		size, err := providers.FileSize(path)
		if err != nil {
			return nil, err
		}
		if size > c.cfg.MaxFileSize {
			return nil, domain.Skipf("file size %d exceeds sandbox limit %d", size, c.cfg.MaxFileSize)
		}
	}

	status, body, err := providers.UploadFile(ctx, c.hc, c.cfg.BaseURL+"/submit/file", c.headers(), "file", path,
		map[string]string{"environment_id": env})
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return nil, fmt.Errorf("sandbox submit returned %d: %s", status, body)
	}
	var sr submitResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("sandbox submit response: %w", err)
	}
	if sr.JobID == "" {
		return nil, fmt.Errorf("sandbox submit returned no job id: %s", body)
	}
	return handle{JobID: sr.JobID}, nil
}

func (c *Client) Poll(ctx context.Context, h providers.Handle) (providers.PollResult, error) {
	sh, ok := h.(handle)
	if !ok {
		return providers.PollResult{}, fmt.Errorf("sandbox: unexpected handle type %T", h)
	}

	status, body, err := providers.GetBytes(ctx, c.hc, c.cfg.BaseURL+"/report/"+sh.JobID+"/state", c.headers())
	if err != nil {
		return providers.PollResult{}, err
	}
	if status != http.StatusOK {
		return providers.PollResult{}, fmt.Errorf("sandbox state returned %d: %s", status, body)
	}

	state := gjson.GetBytes(body, "state").String()
	switch state {
	case "IN_QUEUE", "IN_PROGRESS":
		return providers.PollResult{State: providers.StatePending}, nil
	case "ERROR":
		reason := gjson.GetBytes(body, "error").String()
		if reason == "" {
			reason = "sandbox reported an unspecified detonation error"
		}
		return providers.PollResult{State: providers.StateFailed, Reason: reason}, nil
	case "SUCCESS":
		return c.fetchSummary(ctx, sh)
	default:
		return providers.PollResult{}, fmt.Errorf("sandbox: unrecognized state %q", state)
	}
}

// fetchSummary pulls the report summary once the state endpoint reports
// SUCCESS. A success signal with a summary that does not parse is treated
// as failure, not completion.
func (c *Client) fetchSummary(ctx context.Context, sh handle) (providers.PollResult, error) {
	status, body, err := providers.GetBytes(ctx, c.hc, c.cfg.BaseURL+"/report/"+sh.JobID+"/summary", c.headers())
	if err != nil {
		return providers.PollResult{}, err
	}
	if status != http.StatusOK {
		return providers.PollResult{}, fmt.Errorf("sandbox summary returned %d: %s", status, body)
	}
	if !gjson.ValidBytes(body) || !gjson.GetBytes(body, "verdict").Exists() {
		return providers.PollResult{State: providers.StateFailed, Reason: "sandbox summary is not structurally valid"}, nil
	}

	rep := &domain.SandboxReport{
		Verdict:     mapVerdict(gjson.GetBytes(body, "verdict").String()),
		ThreatScore: int(gjson.GetBytes(body, "threat_score").Int()),
	}
	for _, tag := range gjson.GetBytes(body, "classification_tags").Array() {
		if s := tag.String(); s != "" {
			rep.Threats = append(rep.Threats, s)
		}
	}
	return providers.PollResult{State: providers.StateDone, Payload: rep}, nil
}

func mapVerdict(v string) domain.SandboxVerdict {
	switch strings.ToLower(v) {
	case "malicious":
		return domain.VerdictMalicious
	case "suspicious":
		return domain.VerdictSuspicious
	case "no specific threat", "whitelisted", "no verdict", "clean":
		return domain.VerdictClean
	default:
		return domain.VerdictUnknown
	}
}
