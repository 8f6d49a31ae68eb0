// Package snapshot stores webcam captures so the face service can fetch them by URL.
package snapshot

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrNotConfigured is returned when no image host credentials are set.
var ErrNotConfigured = errors.New("snapshot storage not configured")

// Cloudinary uploads snapshots with Cloudinary's signed upload API.
type Cloudinary struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
	BaseURL   string
	HTTP      *http.Client
	now       func() time.Time
}

// NewCloudinary returns nil when any credential is missing.
func NewCloudinary(cloudName, apiKey, apiSecret, folder string) *Cloudinary {
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil
	}
	return &Cloudinary{
		CloudName: cloudName,
		APIKey:    apiKey,
		APISecret: apiSecret,
		Folder:    folder,
		BaseURL:   "https://api.cloudinary.com",
		HTTP:      &http.Client{Timeout: 30 * time.Second},
		now:       time.Now,
	}
}

type uploadResult struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
}

// Upload stores a base64 data URL ("data:image/jpeg;base64,...") for rollNo and
// returns its public URL.
func (c *Cloudinary) Upload(ctx context.Context, rollNo, dataURL string) (string, error) {
	if c == nil {
		return "", ErrNotConfigured
	}
	if !strings.HasPrefix(dataURL, "data:image/") {
		return "", errors.New("snapshot must be an image data URL")
	}

	params := map[string]string{
		"timestamp": strconv.FormatInt(c.now().Unix(), 10),
		"public_id": rollNo + "_" + strconv.FormatInt(c.now().UnixMilli(), 10),
	}
	if c.Folder != "" {
		params["folder"] = c.Folder
	}
	params["signature"] = c.sign(params)
	params["api_key"] = c.APIKey

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range params {
		_ = w.WriteField(k, v)
	}
	_ = w.WriteField("file", dataURL)
	w.Close()

	url := fmt.Sprintf("%s/v1_1/%s/image/upload", strings.TrimRight(c.BaseURL, "/"), c.CloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return "", fmt.Errorf("snapshot: create request failed: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("snapshot: upload request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("snapshot: upload failed (%d): %s", resp.StatusCode, string(body))
	}
	var res uploadResult
	if err := json.Unmarshal(body, &res); err != nil {
		return "", fmt.Errorf("snapshot: decode response failed: %w", err)
	}
	if res.SecureURL == "" {
		return "", errors.New("snapshot: upload returned no url")
	}
	return res.SecureURL, nil
}

// sign is the SHA-1 of the sorted signed params followed by the API secret.
func (c *Cloudinary) sign(params map[string]string) string {
	pairs := make([]string, 0, len(params))
	for k, v := range params {
		if v != "" {
			pairs = append(pairs, k+"="+v)
		}
	}
	sort.Strings(pairs)
	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + c.APISecret))
	return hex.EncodeToString(sum[:])
}
