package purchase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPVerifier delegates receipt validation to an external endpoint. It POSTs
// {"productId": ..., "receipt": ...} and expects a 200 response {"valid": bool}.
type HTTPVerifier struct {
	url    string
	client *http.Client
}

func NewHTTPVerifier(url string) *HTTPVerifier {
	return &HTTPVerifier{url: url, client: &http.Client{Timeout: 10 * time.Second}}
}

func (v *HTTPVerifier) Verify(ctx context.Context, productID, receipt string) (bool, error) {
	body, err := json.Marshal(map[string]string{"productId": productID, "receipt": receipt})
	if err != nil {
		return false, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("receipt endpoint returned %s", resp.Status)
	}
	var result struct {
		Valid bool `json:"valid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("decode receipt response: %w", err)
	}
	return result.Valid, nil
}

// RejectAll is the verifier used when no receipt endpoint is configured.
type RejectAll struct{}

func (RejectAll) Verify(context.Context, string, string) (bool, error) {
	return false, nil
}

// NewVerifier picks the HTTP verifier when url is set and RejectAll otherwise.
func NewVerifier(url string) Verifier {
	if url == "" {
		return RejectAll{}
	}
	return NewHTTPVerifier(url)
}
