package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// adminCookie is the session cookie name issued by the grading server.
const adminCookie = "admin_session"

// AdminClient talks to the grading server's privileged endpoints, all of
// them cookie-authenticated.
type AdminClient struct {
	base string
	http *http.Client
}

func NewAdminClient(base string, timeout time.Duration) *AdminClient {
	return &AdminClient{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// Login exchanges credentials for a session cookie. An empty cookie with a
// nil error means the credentials were rejected.
func (c *AdminClient) Login(ctx context.Context, login, password string) (string, error) {
	raw, err := json.Marshal(map[string]string{"login": login, "password": password})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/admin/login", bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("admin login failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		zap.L().Warn("admin login rejected", zap.Int("status", resp.StatusCode))
		return "", nil
	}
	for _, ck := range resp.Cookies() {
		if ck.Name == adminCookie {
			return ck.Value, nil
		}
	}
	zap.L().Warn("admin login succeeded but no session cookie was set")
	return "", nil
}

// Logout revokes the remote session.
func (c *AdminClient) Logout(ctx context.Context, cookie string) error {
	resp, err := c.do(ctx, http.MethodPost, c.base+"/api/admin/logout", cookie, nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("admin logout: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// CheckAuth reports whether the cookie is still accepted by the server.
func (c *AdminClient) CheckAuth(ctx context.Context, cookie string) bool {
	resp, err := c.do(ctx, http.MethodGet, c.base+"/api/admin/check-auth", cookie, nil, "")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// ListCourses returns the privileged course listing.
func (c *AdminClient) ListCourses(ctx context.Context, cookie string) ([]Course, error) {
	resp, err := c.do(ctx, http.MethodGet, c.base+"/courses", cookie, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list courses: unexpected status %d", resp.StatusCode)
	}
	var courses []Course
	if err := json.NewDecoder(resp.Body).Decode(&courses); err != nil {
		return nil, fmt.Errorf("failed to decode course list: %w", err)
	}
	return courses, nil
}

// CourseInfo returns the detailed course view, or nil when unknown.
func (c *AdminClient) CourseInfo(ctx context.Context, cookie, courseID string) (*CourseInfo, error) {
	u := fmt.Sprintf("%s/courses/%s", c.base, url.PathEscape(courseID))
	resp, err := c.do(ctx, http.MethodGet, u, cookie, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}
	var info CourseInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode course info: %w", err)
	}
	return &info, nil
}

// DeleteCourse deletes a course on the server.
func (c *AdminClient) DeleteCourse(ctx context.Context, cookie, courseID string) error {
	u := fmt.Sprintf("%s/courses/%s", c.base, url.PathEscape(courseID))
	resp, err := c.do(ctx, http.MethodDelete, u, cookie, nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("delete course %s: unexpected status %d", courseID, resp.StatusCode)
	}
	return nil
}

// UploadCourse downloads the file behind fileURL and forwards it to the
// course-upload endpoint as a multipart form.
func (c *AdminClient) UploadCourse(ctx context.Context, cookie, fileURL, filename string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return err
	}
	fileResp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download course file: %w", err)
	}
	defer fileResp.Body.Close()
	if fileResp.StatusCode != http.StatusOK {
		return fmt.Errorf("course file download: unexpected status %d", fileResp.StatusCode)
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, fileResp.Body); err != nil {
		return fmt.Errorf("failed to buffer course file: %w", err)
	}
	if err := form.Close(); err != nil {
		return err
	}

	resp, err := c.do(ctx, http.MethodPost, c.base+"/courses/upload", cookie, &body, form.FormDataContentType())
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("course upload: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (c *AdminClient) do(ctx context.Context, method, u, cookie string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: adminCookie, Value: cookie})
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", method, u, err)
	}
	return resp, nil
}
