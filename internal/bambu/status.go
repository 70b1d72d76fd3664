package bambu

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/justpow98/j3d-backend/internal/config"
	"github.com/justpow98/j3d-backend/internal/db"
)

const (
	ConnectionCloud = "cloud"
	ConnectionLAN   = "lan"
)

// Status is the read-only telemetry snapshot for one printer. This client
// has no scheduling authority; it only reports.
type Status struct {
	Online       bool    `json:"online"`
	State        string  `json:"state"`
	ProgressPct  int     `json:"progress_pct"`
	NozzleTemp   float64 `json:"nozzle_temp"`
	BedTemp      float64 `json:"bed_temp"`
	RemainingMin int     `json:"remaining_minutes"`
	ErrorCode    string  `json:"error_code,omitempty"`
}

// StatusString collapses telemetry into the short status persisted on the
// printer row.
func (s *Status) StatusString() string {
	switch {
	case !s.Online:
		return "offline"
	case s.ErrorCode != "":
		return "error"
	case s.State != "":
		return s.State
	default:
		return "idle"
	}
}

type StatusClient struct {
	cloudBaseURL string
	httpClient   *http.Client
}

func NewStatusClient(cfg config.BambuConfig) *StatusClient {
	return &StatusClient{
		cloudBaseURL: cfg.CloudBaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// GetStatus polls the vendor endpoint appropriate for the printer's
// connection type. A transport failure is reported as offline rather than an
// error so the caller can persist the result either way.
func (c *StatusClient) GetStatus(ctx context.Context, printer *db.Printer) (*Status, error) {
	var url string
	switch printer.ConnectionType {
	case ConnectionLAN:
		if printer.IPAddress == "" {
			return nil, fmt.Errorf("printer %d has no ip address configured", printer.ID)
		}
		url = fmt.Sprintf("http://%s/api/v1/status", printer.IPAddress)
	case ConnectionCloud:
		if printer.SerialNumber == "" {
			return nil, fmt.Errorf("printer %d has no serial number configured", printer.ID)
		}
		url = fmt.Sprintf("%s/v1/iot-service/api/user/device/%s/status", c.cloudBaseURL, printer.SerialNumber)
	default:
		return nil, fmt.Errorf("unknown connection type %q", printer.ConnectionType)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create status request: %w", err)
	}
	if printer.AccessCode != "" {
		req.Header.Set("Authorization", "Bearer "+printer.AccessCode)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Status{Online: false}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &Status{Online: false}, nil
	}

	var status Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode printer status: %w", err)
	}
	status.Online = true
	return &status, nil
}
