// Package metadefender wraps the OPSWAT MetaDefender Cloud file scanning
// API, used as the file-reputation service.
package metadefender

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

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

func (c *Client) Name() domain.Provider { return domain.ProviderMetaDefender }

type handle struct {
	DataID string
}

type submitResponse struct {
	DataID string `json:"data_id"`
	Error  struct {
		Messages []string `json:"messages"`
	} `json:"error"`
}

// Submit streams the raw file body to MetaDefender. Oversized files are
// skipped, matching the vendor's hard upload ceiling.
func (c *Client) Submit(ctx context.Context, path string) (providers.Handle, error) {
	size, err := providers.FileSize(path)
	if err != nil {
		return nil, err
	}
	if c.cfg.MaxFileSize > 0 && size > c.cfg.MaxFileSize {
		return nil, domain.Skipf("file size %d exceeds metadefender limit %d", size, c.cfg.MaxFileSize)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/file", f)
	if err != nil {
		return nil, err
	}
	req.ContentLength = size
	req.Header.Set("apikey", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("filename", filepath.Base(path))

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("metadefender upload: %w", err)
	}
	defer resp.Body.Close()

	var sr submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("metadefender upload response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || sr.DataID == "" {
		return nil, fmt.Errorf("metadefender upload returned %d: %v", resp.StatusCode, sr.Error.Messages)
	}
	return handle{DataID: sr.DataID}, nil
}

type resultResponse struct {
	ScanResults struct {
		ProgressPercentage int    `json:"progress_percentage"`
		TotalDetectedAVs   int    `json:"total_detected_avs"`
		TotalAVs           int    `json:"total_avs"`
		ScanAllResultA     string `json:"scan_all_result_a"`
	} `json:"scan_results"`
	ProcessInfo struct {
		Result          string `json:"result"` // Allowed|Blocked|Processing
		ProcessingError string `json:"processing_error"`
	} `json:"process_info"`
	DataID string `json:"data_id"`
}

func (c *Client) Poll(ctx context.Context, h providers.Handle) (providers.PollResult, error) {
	mh, ok := h.(handle)
	if !ok {
		return providers.PollResult{}, fmt.Errorf("metadefender: unexpected handle type %T", h)
	}

	headers := map[string]string{"apikey": c.cfg.APIKey}
	status, body, err := providers.GetBytes(ctx, c.hc, c.cfg.BaseURL+"/file/"+mh.DataID, headers)
	if err != nil {
		return providers.PollResult{}, err
	}
	if status != http.StatusOK {
		return providers.PollResult{}, fmt.Errorf("metadefender result returned %d: %s", status, body)
	}

	var rr resultResponse
	if err := json.Unmarshal(body, &rr); err != nil {
		return providers.PollResult{}, fmt.Errorf("metadefender result response: %w", err)
	}
	if rr.ProcessInfo.ProcessingError != "" {
		return providers.PollResult{State: providers.StateFailed, Reason: rr.ProcessInfo.ProcessingError}, nil
	}
	if rr.ScanResults.ProgressPercentage < 100 {
		return providers.PollResult{State: providers.StatePending}, nil
	}

	rep := &domain.ReputationReport{
		Detections:   rr.ScanResults.TotalDetectedAVs,
		TotalEngines: rr.ScanResults.TotalAVs,
		Permalink:    c.cfg.BaseURL + "/file/" + mh.DataID,
	}
	return providers.PollResult{State: providers.StateDone, Payload: rep}, nil
}
