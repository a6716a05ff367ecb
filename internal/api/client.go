// Package api is the HTTP gateway to the remote grading server. Read paths
// normalize transport failures into empty results at the call site; write
// paths surface them as errors that handlers turn into user-facing messages.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Response statuses used by the grading server.
const (
	StatusPending           = "pending"
	StatusUpdated           = "updated"
	StatusRegistered        = "registered"
	StatusAlreadyRegistered = "already_registered"
	StatusError             = "error"
)

// Course is one entry of the course listing.
type Course struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Semester string `json:"semester"`
	Logo     string `json:"logo,omitempty"`
	Email    string `json:"email,omitempty"`
}

// CourseInfo is the detailed course view.
type CourseInfo struct {
	Name        string `json:"name"`
	Semester    string `json:"semester"`
	GitHubOrg   string `json:"github-organization"`
	Spreadsheet string `json:"google-spreadsheet"`
}

// RegisterRequest is the course-registration payload.
type RegisterRequest struct {
	Name       string `json:"name"`
	Surname    string `json:"surname"`
	Patronymic string `json:"patronymic"`
	GitHub     string `json:"github"`
}

// RegisterResult is the course-registration outcome.
type RegisterResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// GradeResult is the outcome of one grading poll.
type GradeResult struct {
	Status  string     `json:"status"`
	Result  string     `json:"result"`
	Message string     `json:"message"`
	Passed  FlexString `json:"passed"`
	Checks  []string   `json:"checks"`
}

// FlexString accepts either a JSON string or a bare number; the grading
// server is not consistent about the passed-count type.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	*f = FlexString(strings.TrimSpace(string(data)))
	if *f == "null" {
		*f = ""
	}
	return nil
}

// Client talks to the grading server's student-facing endpoints.
type Client struct {
	base  string
	http  *http.Client
	grade *http.Client
}

// NewClient builds a gateway for the given base URL. apiTimeout bounds every
// call except grading, which uses gradeTimeout sized for slow synchronous
// jobs.
func NewClient(base string, apiTimeout, gradeTimeout time.Duration) *Client {
	return &Client{
		base:  strings.TrimRight(base, "/"),
		http:  &http.Client{Timeout: apiTimeout},
		grade: &http.Client{Timeout: gradeTimeout},
	}
}

// Courses lists all courses known to the server.
func (c *Client) Courses(ctx context.Context) ([]Course, error) {
	var courses []Course
	if err := c.getJSON(ctx, c.base+"/courses", &courses); err != nil {
		return nil, err
	}
	return courses, nil
}

// Groups lists the group codes a course is offered to.
func (c *Client) Groups(ctx context.Context, courseID string) ([]string, error) {
	var groups []string
	u := fmt.Sprintf("%s/courses/%s/groups", c.base, url.PathEscape(courseID))
	if err := c.getJSON(ctx, u, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// Labs lists the lab identifiers available to a group.
func (c *Client) Labs(ctx context.Context, courseID, group string) ([]string, error) {
	var labs []string
	u := fmt.Sprintf("%s/courses/%s/groups/%s/labs",
		c.base, url.PathEscape(courseID), url.PathEscape(group))
	if err := c.getJSON(ctx, u, &labs); err != nil {
		return nil, err
	}
	return labs, nil
}

// CourseInfo returns the detailed course view, or nil when the server does
// not know the course.
func (c *Client) CourseInfo(ctx context.Context, courseID string) (*CourseInfo, error) {
	u := fmt.Sprintf("%s/courses/%s", c.base, url.PathEscape(courseID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s failed: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		zap.L().Warn("course info not found", zap.String("course_id", courseID))
		return nil, nil
	}
	var info CourseInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode course info: %w", err)
	}
	return &info, nil
}

// RegisterStudent registers a student on a course. Non-200 responses come
// back as a result with StatusError; an error return means the server was
// unreachable.
func (c *Client) RegisterStudent(ctx context.Context, courseID, group string, payload RegisterRequest) (*RegisterResult, error) {
	u := fmt.Sprintf("%s/courses/%s/groups/%s/register",
		c.base, url.PathEscape(courseID), url.PathEscape(group))

	resp, err := c.postJSON(ctx, c.http, u, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &RegisterResult{Status: StatusError, Message: string(body)}, nil
	}
	var result RegisterResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode register result: %w", err)
	}
	return &result, nil
}

// GradeLab runs one grading request. A dropped connection mid-request means
// the backend is still working and maps to a pending result; other transport
// failures are returned as errors.
func (c *Client) GradeLab(ctx context.Context, courseID, group, labID, github string) (*GradeResult, error) {
	u := fmt.Sprintf("%s/courses/%s/groups/%s/labs/%s/grade",
		c.base, url.PathEscape(courseID), url.PathEscape(group), url.PathEscape(labID))

	resp, err := c.postJSON(ctx, c.grade, u, map[string]string{"github": github})
	if err != nil {
		if isDisconnect(err) {
			zap.L().Info("grading connection dropped, still running",
				zap.String("lab_id", labID))
			return &GradeResult{Status: StatusPending, Message: "No answer yet, check is running ⏳"}, nil
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &GradeResult{Status: StatusError, Message: string(body)}, nil
	}
	var result GradeResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		if isDisconnect(err) {
			return &GradeResult{Status: StatusPending, Message: "No answer yet, check is running ⏳"}, nil
		}
		return nil, fmt.Errorf("failed to decode grade result: %w", err)
	}
	return &result, nil
}

func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s failed: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %d", u, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) postJSON(ctx context.Context, hc *http.Client, u string, payload any) (*http.Response, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s failed: %w", u, err)
	}
	return resp, nil
}

// isDisconnect reports whether the error looks like the backend dropping the
// connection during a long job, as opposed to a refusal or timeout.
func isDisconnect(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	return strings.Contains(err.Error(), "connection reset")
}
