package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/adntgv/gptree/pkg/models"
)

// Client is a thin HTTP client for the server's /v1 API.
type Client struct {
	base string
	hc   *http.Client
}

func NewClient(base string) *Client {
	return &Client{base: base, hc: &http.Client{Timeout: 30 * time.Second}}
}

func (c *Client) do(method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.base+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = resp.Status
		}
		return fmt.Errorf("%s %s: %s", method, path, e.Error)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// ListThreads pulls all threads, the full-state seed for reconciliation.
func (c *Client) ListThreads() ([]*models.Thread, error) {
	var out struct {
		Threads []*models.Thread `json:"threads"`
	}
	if err := c.do(http.MethodGet, "/v1/threads", nil, &out); err != nil {
		return nil, err
	}
	return out.Threads, nil
}

func (c *Client) GetThread(id string) (*models.Thread, error) {
	var th models.Thread
	if err := c.do(http.MethodGet, "/v1/threads/"+id, nil, &th); err != nil {
		return nil, err
	}
	return &th, nil
}

func (c *Client) CreateThread(title string) (*models.Thread, error) {
	var out struct {
		Thread *models.Thread `json:"thread"`
	}
	body := map[string]string{"title": title}
	if err := c.do(http.MethodPost, "/v1/threads", body, &out); err != nil {
		return nil, err
	}
	return out.Thread, nil
}

func (c *Client) Branch(threadID, title string) (*models.Thread, error) {
	var out struct {
		Thread *models.Thread `json:"thread"`
	}
	body := map[string]string{"title": title}
	if err := c.do(http.MethodPost, "/v1/threads/"+threadID+"/branch", body, &out); err != nil {
		return nil, err
	}
	return out.Thread, nil
}

func (c *Client) Fork(threadID, messageID, title string) (*models.Thread, error) {
	var out struct {
		Thread *models.Thread `json:"thread"`
	}
	body := map[string]string{"message_id": messageID, "title": title}
	if err := c.do(http.MethodPost, "/v1/threads/"+threadID+"/fork", body, &out); err != nil {
		return nil, err
	}
	return out.Thread, nil
}

// SendAck mirrors the server's accepted-send response.
type SendAck struct {
	JobID          string         `json:"job_id"`
	UserMessage    models.Message `json:"user_message"`
	PendingMessage models.Message `json:"pending_message"`
}

func (c *Client) Send(threadID, text string) (*SendAck, error) {
	var out SendAck
	body := map[string]string{"text": text}
	if err := c.do(http.MethodPost, "/v1/threads/"+threadID+"/messages", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Retry(threadID, messageID string) (string, error) {
	var out struct {
		JobID string `json:"job_id"`
	}
	path := "/v1/threads/" + threadID + "/messages/" + messageID + "/retry"
	if err := c.do(http.MethodPost, path, struct{}{}, &out); err != nil {
		return "", err
	}
	return out.JobID, nil
}

func (c *Client) Summarize(threadID string) (string, error) {
	var out struct {
		JobID string `json:"job_id"`
	}
	if err := c.do(http.MethodPost, "/v1/threads/"+threadID+"/summarize", struct{}{}, &out); err != nil {
		return "", err
	}
	return out.JobID, nil
}

func (c *Client) Retitle(threadID string) (string, error) {
	var out struct {
		JobID string `json:"job_id"`
	}
	if err := c.do(http.MethodPost, "/v1/threads/"+threadID+"/retitle", struct{}{}, &out); err != nil {
		return "", err
	}
	return out.JobID, nil
}
