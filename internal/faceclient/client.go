package faceclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Verification is the face service's 1:1 answer for a student snapshot.
type Verification struct {
	RollNo     string  `json:"user_id"`
	Verified   bool    `json:"verified"`
	Similarity float64 `json:"similarity"`
	Threshold  float64 `json:"threshold"`
}

// Client calls the face recognition microservice.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Skip    bool
}

// New creates a client with configurable timeout.
func New(baseURL string, skip bool) *Client {
	return &Client{
		BaseURL: baseURL,
		Skip:    skip,
		HTTP: &http.Client{
			Timeout: 30 * time.Second, // Face processing can take time
		},
	}
}

// VerifyStudent checks that the face in imageURL belongs to the enrolled student rollNo.
func (c *Client) VerifyStudent(ctx context.Context, rollNo, imageURL string) (*Verification, error) {
	if c.Skip {
		return &Verification{RollNo: rollNo, Verified: true, Similarity: 0.92, Threshold: 0.45}, nil
	}
	if rollNo == "" || imageURL == "" {
		return nil, fmt.Errorf("roll number and image url required")
	}

	body, _ := json.Marshal(map[string]string{
		"user_id":   rollNo,
		"image_url": imageURL,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/verify", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("face service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("face service error %s: %s", resp.Status, string(bodyBytes))
	}

	var out Verification
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if out.RollNo == "" {
		out.RollNo = rollNo
	}
	return &out, nil
}

// Verify satisfies the attendance face verifier.
func (c *Client) Verify(ctx context.Context, rollNo, imageURL string) (bool, error) {
	v, err := c.VerifyStudent(ctx, rollNo, imageURL)
	if err != nil {
		return false, err
	}
	return v.Verified, nil
}

// Health checks if the face service is available.
func (c *Client) Health(ctx context.Context) error {
	if c.Skip {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("face service unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("face service unhealthy: %s", resp.Status)
	}
	return nil
}
