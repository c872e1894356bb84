// Package client is a thin HTTP client for the survey portal API,
// suitable for kiosks and scripted integrations.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mbolis/survey-portal/collect"
	"github.com/mbolis/survey-portal/stats"
	"github.com/mbolis/survey-portal/survey"
	"github.com/pkg/errors"
)

// TransportError is returned when the portal answers with a non-2xx status.
type TransportError struct {
	Status int
	Body   string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("portal API error %d: %s", e.Status, e.Body)
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Token returns the bearer token obtained by the last successful Login.
func (c *Client) Token() string {
	return c.token
}

func (c *Client) do(method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encode request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response body")
	}

	if resp.StatusCode >= 400 {
		return &TransportError{Status: resp.StatusCode, Body: string(respBody)}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return errors.Wrapf(err, "parse %s %s response", method, path)
		}
	}
	return nil
}

func (c *Client) ActiveSurveys() ([]survey.Survey, error) {
	var surveys []survey.Survey
	err := c.do("GET", "/api/surveys/active", nil, &surveys)
	return surveys, err
}

func (c *Client) FirstActiveSurvey() (survey.Survey, error) {
	var s survey.Survey
	err := c.do("GET", "/api/surveys/active/first", nil, &s)
	return s, err
}

func (c *Client) PublicSurvey(id int) (survey.Survey, error) {
	var s survey.Survey
	err := c.do("GET", fmt.Sprintf("/api/surveys/%d/public", id), nil, &s)
	return s, err
}

// SubmitReceipt acknowledges a stored submission.
type SubmitReceipt struct {
	Message    string `json:"message"`
	ResponseID int    `json:"response_id"`
	Receipt    string `json:"receipt"`
}

func (c *Client) SubmitResponse(surveyID int, submission collect.Submission) (SubmitReceipt, error) {
	var receipt SubmitReceipt
	err := c.do("POST", fmt.Sprintf("/api/surveys/%d/responses", surveyID), submission, &receipt)
	return receipt, err
}

func (c *Client) Statistics(surveyID int) (stats.Report, error) {
	var report stats.Report
	err := c.do("GET", fmt.Sprintf("/api/admin/surveys/%d/statistics", surveyID), nil, &report)
	return report, err
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// Login exchanges credentials for a bearer token and keeps it for
// subsequent requests.
func (c *Client) Login(username, password string) error {
	req, err := http.NewRequest("POST", c.baseURL+"/api/login", nil)
	if err != nil {
		return errors.Wrap(err, "create login request")
	}
	req.SetBasicAuth(username, password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "POST /api/login")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read login response")
	}
	if resp.StatusCode >= 400 {
		return &TransportError{Status: resp.StatusCode, Body: string(respBody)}
	}

	var token tokenResponse
	if err := json.Unmarshal(respBody, &token); err != nil {
		return errors.Wrap(err, "parse login response")
	}
	c.token = token.AccessToken
	return nil
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Company  string `json:"company,omitempty"`
}

func (c *Client) Register(req RegisterRequest) error {
	return c.do("POST", "/api/register", req, nil)
}
