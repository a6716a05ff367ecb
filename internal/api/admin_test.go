package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAdminClient(t *testing.T, handler http.Handler) *AdminClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewAdminClient(srv.URL, 5*time.Second)
}

func TestLoginExtractsSessionCookie(t *testing.T) {
	c := testAdminClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/admin/login", r.URL.Path)
		http.SetCookie(w, &http.Cookie{Name: "admin_session", Value: "tok-123"})
	}))

	cookie, err := c.Login(context.Background(), "admin", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", cookie)
}

func TestLoginRejectionIsEmptyCookie(t *testing.T) {
	c := testAdminClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	cookie, err := c.Login(context.Background(), "admin", "wrong")
	require.NoError(t, err)
	assert.Empty(t, cookie)
}

func TestCookieForwardedOnPrivilegedCalls(t *testing.T) {
	var gotCookie string
	c := testAdminClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ck, err := r.Cookie("admin_session"); err == nil {
			gotCookie = ck.Value
		}
		_, _ = w.Write([]byte(`[]`))
	}))

	_, err := c.ListCourses(context.Background(), "tok-123")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", gotCookie)
}

func TestDeleteCourseNon200IsError(t *testing.T) {
	c := testAdminClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusForbidden)
	}))

	err := c.DeleteCourse(context.Background(), "tok", "12")
	assert.Error(t, err)
}

func TestUploadCourseForwardsMultipart(t *testing.T) {
	fileSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("course payload"))
	}))
	defer fileSrv.Close()

	var gotName, gotBody, gotCookie string
	c := testAdminClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/courses/upload", r.URL.Path)
		if ck, err := r.Cookie("admin_session"); err == nil {
			gotCookie = ck.Value
		}
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		raw, err := io.ReadAll(file)
		require.NoError(t, err)
		gotName, gotBody = header.Filename, string(raw)
	}))

	err := c.UploadCourse(context.Background(), "tok-123", fileSrv.URL, "course.zip")
	require.NoError(t, err)
	assert.Equal(t, "course.zip", gotName)
	assert.Equal(t, "course payload", gotBody)
	assert.Equal(t, "tok-123", gotCookie)
}
