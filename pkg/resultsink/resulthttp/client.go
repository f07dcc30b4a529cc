package resulthttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/driveprep/driveprep/pkg/resultsink"
	"golang.org/x/oauth2/clientcredentials"
)

// Client posts completed quiz results to the remote results service.
type Client struct {
	http    *http.Client
	baseURL string
}

type Config struct {
	BaseURL string
	Timeout time.Duration

	// Optional OAuth2 client-credentials auth; leave TokenURL empty for a
	// plain client.
	TokenURL     string
	ClientID     string
	ClientSecret string
}

func New(cfg Config) *Client {
	var h *http.Client
	if cfg.TokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		h = cc.Client(context.Background())
	} else {
		h = &http.Client{}
	}
	if cfg.Timeout > 0 {
		h.Timeout = cfg.Timeout
	}
	return &Client{http: h, baseURL: strings.TrimSuffix(cfg.BaseURL, "/")}
}

// Submit POSTs the result to {base}/submit-quiz. Anything but a 2xx is an
// error; the caller decides whether that is fatal (the sink treats it as a
// soft failure).
func (c *Client) Submit(ctx context.Context, r resultsink.Result) error {
	body, _ := json.Marshal(map[string]any{
		"user_id":         numericUserID(r.UserID),
		"state":           r.State,
		"test_number":     r.TestID,
		"score":           r.Score,
		"total_questions": r.Total,
		"user_answers":    r.Answers,
		"timestamp":       r.Timestamp.Format(time.RFC3339),
	})
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/submit-quiz", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		return fmt.Errorf("submit quiz: %s", res.Status)
	}
	return nil
}

// numericUserID adapts our string user IDs to the service's integer field.
// Non-numeric IDs (guest accounts, the anonymous sentinel) map to 1, the
// service's default user.
func numericUserID(id string) int {
	if n, err := strconv.Atoi(id); err == nil && n > 0 {
		return n
	}
	return 1
}
