package messaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// WppClient talks to a wppconnect-server gateway over its REST API. One
// client per session.
type WppClient struct {
	baseURL string
	session string
	token   string
	http    *http.Client
}

func NewWppClient(baseURL string, session string, token string) (*WppClient, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("wppconnect base url is empty")
	}
	if strings.TrimSpace(session) == "" {
		return nil, errors.New("wppconnect session is empty")
	}
	return &WppClient{
		baseURL: baseURL,
		session: session,
		token:   token,
		http:    &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (c *WppClient) IsConnected(ctx context.Context) bool {
	var out struct {
		Status bool `json:"status"`
	}
	if err := c.getJSON(ctx, "/check-connection-session", &out); err != nil {
		return false
	}
	return out.Status
}

func (c *WppClient) SendImage(ctx context.Context, destination string, image string, filename string, caption string) error {
	if strings.HasPrefix(image, "http://") || strings.HasPrefix(image, "https://") {
		return c.postJSON(ctx, "/send-image", map[string]any{
			"phone":    destination,
			"isGroup":  strings.HasSuffix(destination, "@g.us"),
			"path":     image,
			"filename": filename,
			"caption":  caption,
		})
	}

	data, err := os.ReadFile(image)
	if err != nil {
		return fmt.Errorf("read image %s: %w", image, err)
	}
	mimeType := mime.TypeByExtension(filepath.Ext(image))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	encoded := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)

	return c.postJSON(ctx, "/send-file-base64", map[string]any{
		"phone":    destination,
		"isGroup":  strings.HasSuffix(destination, "@g.us"),
		"base64":   encoded,
		"filename": filename,
		"caption":  caption,
	})
}

func (c *WppClient) ListGroups(ctx context.Context) ([]Group, error) {
	var out struct {
		Response []struct {
			ID struct {
				Serialized string `json:"_serialized"`
			} `json:"id"`
			Name string `json:"name"`
		} `json:"response"`
	}
	if err := c.getJSON(ctx, "/all-groups", &out); err != nil {
		return nil, err
	}
	groups := make([]Group, 0, len(out.Response))
	for _, g := range out.Response {
		groups = append(groups, Group{ID: g.ID.Serialized, Name: g.Name})
	}
	return groups, nil
}

// SessionState returns the gateway's view of the session ("CONNECTED",
// "CONFLICT", "UNPAIRED", ...).
func (c *WppClient) SessionState(ctx context.Context) (string, error) {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.getJSON(ctx, "/status-session", &out); err != nil {
		return "", err
	}
	return out.Status, nil
}

// ClaimSession asks the gateway to take the session over (the "use here"
// action after a conflict).
func (c *WppClient) ClaimSession(ctx context.Context) error {
	return c.postJSON(ctx, "/start-session", map[string]any{})
}

// disruptiveStates are session states that need a claim to recover from.
var disruptiveStates = map[string]bool{
	"CONFLICT":   true,
	"UNPAIRED":   true,
	"UNLAUNCHED": true,
}

// RunStateWatcher polls the session state, logging only changes, and claims
// the session back on disruptive states. Blocks until ctx is done.
func (c *WppClient) RunStateWatcher(ctx context.Context, logger *logrus.Logger, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	lastState := ""
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}

		state, err := c.SessionState(ctx)
		if err != nil {
			continue
		}
		if state != lastState {
			logger.WithFields(logrus.Fields{
				"module":  "messaging",
				"session": c.session,
				"state":   state,
			}).Info("session state changed")
			lastState = state
		}
		if disruptiveStates[state] {
			if err := c.ClaimSession(ctx); err != nil {
				logger.WithFields(logrus.Fields{
					"module":  "messaging",
					"session": c.session,
				}).Warn("failed to claim session: " + err.Error())
			}
		}
	}
}

func (c *WppClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path), nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *WppClient) postJSON(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, nil)
}

func (c *WppClient) do(req *http.Request, out any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("wppconnect api error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out != nil {
		return json.Unmarshal(body, out)
	}
	return nil
}

func (c *WppClient) endpoint(path string) string {
	return c.baseURL + "/api/" + c.session + path
}
