// Package virustotal wraps the VirusTotal v3 file analysis API, used as the
// multi-engine AV aggregator.
package virustotal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/config"
	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/domain"
	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/providers"
)

type Client struct {
	cfg config.Provider
	hc  *http.Client
}

func New(cfg config.Provider) *Client {
	return &Client{cfg: cfg, hc: providers.NewHTTPClient()}
}

func (c *Client) Name() domain.Provider { return domain.ProviderVirusTotal }

type handle struct {
	AnalysisID string
}

type submitResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Submit uploads the file for analysis. Files over the plan's size ceiling
// are skipped rather than failed.
func (c *Client) Submit(ctx context.Context, path string) (providers.Handle, error) {
	if c.cfg.MaxFileSize > 0 {
		size, err := providers.FileSize(path)
		if err != nil {
			return nil, err
		}
		if size > c.cfg.MaxFileSize {
			return nil, domain.Skipf("file size %d exceeds virustotal limit %d", size, c.cfg.MaxFileSize)
		}
	}

	headers := map[string]string{"x-apikey": c.cfg.APIKey}
	status, body, err := providers.UploadFile(ctx, c.hc, c.cfg.BaseURL+"/files", headers, "file", path, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusRequestEntityTooLarge {
		return nil, domain.Skipf("virustotal rejected file as too large")
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("virustotal upload returned %d: %s", status, body)
	}
	var sr submitResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("virustotal upload response: %w", err)
	}
	if sr.Data.ID == "" {
		return nil, fmt.Errorf("virustotal upload returned no analysis id: %s", body)
	}
	return handle{AnalysisID: sr.Data.ID}, nil
}

type analysisResponse struct {
	Data struct {
		Attributes struct {
			Status string `json:"status"` // queued|in-progress|completed
			Stats  struct {
				Malicious  int `json:"malicious"`
				Suspicious int `json:"suspicious"`
				Undetected int `json:"undetected"`
				Harmless   int `json:"harmless"`
			} `json:"stats"`
			Results map[string]struct {
				Category string `json:"category"`
				Result   string `json:"result"`
			} `json:"results"`
		} `json:"attributes"`
	} `json:"data"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) Poll(ctx context.Context, h providers.Handle) (providers.PollResult, error) {
	vh, ok := h.(handle)
	if !ok {
		return providers.PollResult{}, fmt.Errorf("virustotal: unexpected handle type %T", h)
	}

	headers := map[string]string{"x-apikey": c.cfg.APIKey}
	status, body, err := providers.GetBytes(ctx, c.hc, c.cfg.BaseURL+"/analyses/"+vh.AnalysisID, headers)
	if err != nil {
		return providers.PollResult{}, err
	}
	if status != http.StatusOK {
		return providers.PollResult{}, fmt.Errorf("virustotal analysis returned %d: %s", status, body)
	}

	var ar analysisResponse
	if err := json.Unmarshal(body, &ar); err != nil {
		return providers.PollResult{}, fmt.Errorf("virustotal analysis response: %w", err)
	}
	if ar.Error.Code != "" {
		return providers.PollResult{State: providers.StateFailed, Reason: ar.Error.Message}, nil
	}

	switch ar.Data.Attributes.Status {
	case "queued", "in-progress":
		return providers.PollResult{State: providers.StatePending}, nil
	case "completed":
	default:
		return providers.PollResult{}, fmt.Errorf("virustotal: unrecognized analysis status %q", ar.Data.Attributes.Status)
	}

	rep := &domain.AVReport{Engines: make(map[string]domain.EngineVerdict, len(ar.Data.Attributes.Results))}
	for engine, v := range ar.Data.Attributes.Results {
		rep.Engines[engine] = domain.EngineVerdict{Category: v.Category, Result: v.Result}
		rep.Total++
		if v.Category == "malicious" {
			rep.Malicious++
		}
	}
	// Stats are authoritative when present; the results map can be trimmed
	// on some plans.
	if s := ar.Data.Attributes.Stats; s.Malicious > rep.Malicious {
		rep.Malicious = s.Malicious
	}
	return providers.PollResult{State: providers.StateDone, Payload: rep}, nil
}
