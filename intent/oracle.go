package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/itsivali/virtual-butler/models"
)

// intentDepartments maps oracle intent names to departments. Departments'
// own names are accepted as intents too, so a plainly configured oracle
// works without the alias table.
var intentDepartments = map[string]string{
	"RequestHousekeeping": models.DeptHousekeeping,
	"RequestMaintenance":  models.DeptMaintenance,
	"ReportIssue":         models.DeptMaintenance,
	"OrderFood":           models.DeptRoomService,
	"RequestRoomService":  models.DeptRoomService,
	"TechSupport":         models.DeptIT,
	"FrontDeskInquiry":    models.DeptFrontDesk,
	"GeneralInquiry":      models.DeptFrontDesk,
	"ReportSecurity":      models.DeptSecurity,
	"ConciergeRequest":    models.DeptConcierge,
}

type oracleRequest struct {
	Text           string `json:"text"`
	ConversationID string `json:"conversationId,omitempty"`
	UserID         string `json:"userId,omitempty"`
}

type oracleResponse struct {
	TopIntent string `json:"topIntent"`
}

// OracleClient calls the external NLP classification service. The call is
// bounded by the client timeout; every failure mode (timeout, non-2xx,
// malformed body, unknown intent) surfaces as an error so the caller can
// fall back to keyword matching.
type OracleClient struct {
	url    string
	client *http.Client
}

// NewOracleClient builds the client from CLASSIFIER_URL and
// CLASSIFIER_TIMEOUT_MS (default 3000). Returns a disabled client when no
// URL is configured.
func NewOracleClient() *OracleClient {
	url := strings.TrimSpace(os.Getenv("CLASSIFIER_URL"))
	timeout := 3000
	if s := os.Getenv("CLASSIFIER_TIMEOUT_MS"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			timeout = v
		}
	}
	return &OracleClient{
		url: url,
		client: &http.Client{
			Timeout: time.Duration(timeout) * time.Millisecond,
		},
	}
}

// Enabled reports whether an oracle endpoint is configured.
func (o *OracleClient) Enabled() bool {
	return o != nil && o.url != ""
}

// TopIntent asks the oracle for the text's top intent and maps it to a
// department.
func (o *OracleClient) TopIntent(ctx context.Context, text, conversationID, userID string) (string, error) {
	if !o.Enabled() {
		return "", fmt.Errorf("classifier oracle is not configured")
	}

	body, err := json.Marshal(oracleRequest{
		Text:           text,
		ConversationID: conversationID,
		UserID:         userID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call classifier: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("classifier error: status %d", resp.StatusCode)
	}

	var parsed oracleResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if parsed.TopIntent == "" {
		return "", fmt.Errorf("no topIntent in response")
	}

	if dept, ok := intentDepartments[parsed.TopIntent]; ok {
		return dept, nil
	}
	if models.ValidDepartment(parsed.TopIntent) {
		return parsed.TopIntent, nil
	}
	return "", fmt.Errorf("unknown intent %q", parsed.TopIntent)
}
