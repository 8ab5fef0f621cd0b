// Package mobsf wraps the MobSF static analysis REST API. MobSF is the
// mandatory provider: the pipeline cannot score a package without its
// findings, so errors here propagate instead of settling as an outcome.
package mobsf

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/config"
	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/domain"
	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/providers"
)

var allowedExtensions = map[string]bool{
	".apk":  true,
	".xapk": true,
	".ipa":  true,
	".appx": true,
}

// AllowedExtension reports whether MobSF accepts the file type. The upload
// handler uses this for pre-submission validation.
func AllowedExtension(name string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(name))]
}

type Client struct {
	cfg config.Provider
	hc  *http.Client
}

func New(cfg config.Provider) *Client {
	return &Client{cfg: cfg, hc: providers.NewHTTPClient()}
}

func (c *Client) Name() domain.Provider { return domain.ProviderMobSF }

type handle struct {
	Hash string
}

type uploadResponse struct {
	Hash     string `json:"hash"`
	ScanType string `json:"scan_type"`
	FileName string `json:"file_name"`
	Error    string `json:"error"`
}

// Submit uploads the package and queues the scan. MobSF has no graceful
// skip path; a disallowed file type is an error.
func (c *Client) Submit(ctx context.Context, path string) (providers.Handle, error) {
	if !AllowedExtension(path) {
		return nil, fmt.Errorf("mobsf does not support %q files", filepath.Ext(path))
	}

	headers := map[string]string{"Authorization": c.cfg.APIKey}
	status, body, err := providers.UploadFile(ctx, c.hc, c.cfg.BaseURL+"/api/v1/upload", headers, "file", path, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("mobsf upload returned %d: %s", status, body)
	}
	var up uploadResponse
	if err := json.Unmarshal(body, &up); err != nil {
		return nil, fmt.Errorf("mobsf upload response: %w", err)
	}
	if up.Hash == "" {
		return nil, fmt.Errorf("mobsf upload returned no hash: %s", body)
	}

	status, body, err = providers.PostForm(ctx, c.hc, c.cfg.BaseURL+"/api/v1/scan", headers, map[string]string{"hash": up.Hash})
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK && status != http.StatusAccepted {
		return nil, fmt.Errorf("mobsf scan returned %d: %s", status, body)
	}
	return handle{Hash: up.Hash}, nil
}

// report mirrors the subset of the MobSF JSON report the scorer consumes.
type report struct {
	AppName string `json:"app_name"`
	AppSec  struct {
		High    []reportFinding `json:"high"`
		Warning []reportFinding `json:"warning"`
		Info    []reportFinding `json:"info"`
	} `json:"appsec"`
	Report string `json:"report"`
	Error  string `json:"error"`
}

type reportFinding struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Section     string `json:"section"`
}

// Poll fetches the JSON report. MobSF answers "Report Not Found" while the
// scan is still running, which maps to pending.
func (c *Client) Poll(ctx context.Context, h providers.Handle) (providers.PollResult, error) {
	mh, ok := h.(handle)
	if !ok {
		return providers.PollResult{}, fmt.Errorf("mobsf: unexpected handle type %T", h)
	}

	headers := map[string]string{"Authorization": c.cfg.APIKey}
	status, body, err := providers.PostForm(ctx, c.hc, c.cfg.BaseURL+"/api/v1/report_json", headers, map[string]string{"hash": mh.Hash})
	if err != nil {
		return providers.PollResult{}, err
	}
	switch {
	case status == http.StatusNotFound:
		return providers.PollResult{State: providers.StatePending}, nil
	case status != http.StatusOK:
		return providers.PollResult{}, fmt.Errorf("mobsf report returned %d: %s", status, body)
	}

	var rep report
	if err := json.Unmarshal(body, &rep); err != nil {
		// Malformed intermediate response; the driver retries.
		return providers.PollResult{}, fmt.Errorf("mobsf report response: %w", err)
	}
	if rep.Error != "" {
		if strings.Contains(strings.ToLower(rep.Error), "not found") {
			return providers.PollResult{State: providers.StatePending}, nil
		}
		return providers.PollResult{State: providers.StateFailed, Reason: rep.Error}, nil
	}

	out := &domain.StaticReport{AppName: rep.AppName}
	appendFindings := func(src []reportFinding, sev domain.Severity) {
		for _, f := range src {
			out.Findings = append(out.Findings, domain.StaticFinding{
				Title:       f.Title,
				Severity:    sev,
				Description: f.Description,
				Section:     f.Section,
			})
		}
	}
	appendFindings(rep.AppSec.High, domain.SeverityHigh)
	appendFindings(rep.AppSec.Warning, domain.SeverityMedium)
	appendFindings(rep.AppSec.Info, domain.SeverityLow)

	return providers.PollResult{State: providers.StateDone, Payload: out}, nil
}
