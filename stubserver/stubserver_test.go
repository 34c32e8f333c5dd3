package stubserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, opts ...Option) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(New(opts...).Router())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, bearer string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	body := decodeBody(t, resp)
	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok, "expected error envelope, got %v", body)
	code, _ := errObj["code"].(string)
	return code
}

func activateTestDevice(t *testing.T, baseURL string) string {
	t.Helper()
	resp := postJSON(t, baseURL+"/v1/devices/activations", "", map[string]string{
		"email":       "owner@example.test",
		"password":    "owner-password",
		"device_name": "Test Terminal",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decodeBody(t, resp)
	token, _ := body["device_token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestActivate_InvalidCredentials(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/v1/devices/activations", "", map[string]string{
		"email":    "owner@example.test",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid_credentials", errorCode(t, resp))
}

func TestLogin_Success(t *testing.T) {
	srv := newTestServer(t)
	deviceToken := activateTestDevice(t, srv.URL)

	resp := postJSON(t, srv.URL+"/v1/sessions", deviceToken, map[string]string{"pin": "2222"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.NotEmpty(t, body["session_token"])
	emp := body["employee"].(map[string]any)
	assert.Equal(t, "emp-2", emp["id"])
	current := body["current_location"].(map[string]any)
	assert.Equal(t, "loc-1", current["id"])
	assert.Equal(t, "cashier", current["role"])
	assert.Len(t, body["accessible_locations"], 2)
}

func TestLogin_UnknownDevice(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/v1/sessions", "bogus-device", map[string]string{"pin": "2222"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthorized", errorCode(t, resp))
}

func TestLogin_LockoutAfterThreeFailures(t *testing.T) {
	srv := newTestServer(t)
	deviceToken := activateTestDevice(t, srv.URL)

	// Three wrong PINs each report invalid credentials.
	for i := 0; i < 3; i++ {
		resp := postJSON(t, srv.URL+"/v1/sessions", deviceToken, map[string]string{"pin": "0000"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "invalid_credentials", errorCode(t, resp))
	}

	// The fourth attempt is locked out even with the correct PIN.
	resp := postJSON(t, srv.URL+"/v1/sessions", deviceToken, map[string]string{"pin": "2222"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "account_locked", errorCode(t, resp))
}

func TestRefresh_RotatesToken(t *testing.T) {
	srv := newTestServer(t)
	deviceToken := activateTestDevice(t, srv.URL)

	resp := postJSON(t, srv.URL+"/v1/sessions", deviceToken, map[string]string{"pin": "1111"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	sessionToken := decodeBody(t, resp)["session_token"].(string)

	resp = postJSON(t, srv.URL+"/v1/sessions/refresh", sessionToken, map[string]string{"session_token": sessionToken})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	newToken := decodeBody(t, resp)["session_token"].(string)
	assert.NotEqual(t, sessionToken, newToken)

	// The old token is dead after rotation.
	resp = postJSON(t, srv.URL+"/v1/sessions/refresh", sessionToken, map[string]string{"session_token": sessionToken})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthorized", errorCode(t, resp))
}

func TestRefresh_UnknownToken(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/v1/sessions/refresh", "bogus", map[string]string{"session_token": "bogus"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthorized", errorCode(t, resp))
}

func TestSwitchLocation(t *testing.T) {
	srv := newTestServer(t)
	deviceToken := activateTestDevice(t, srv.URL)

	resp := postJSON(t, srv.URL+"/v1/sessions", deviceToken, map[string]string{"pin": "2222"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	sessionToken := decodeBody(t, resp)["session_token"].(string)

	resp = postJSON(t, srv.URL+"/v1/sessions/location", sessionToken, map[string]string{"location_id": "loc-2"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	current := decodeBody(t, resp)["current_location"].(map[string]any)
	assert.Equal(t, "loc-2", current["id"])
	assert.Equal(t, "manager", current["role"])
}

func TestSwitchLocation_NoRoleThere(t *testing.T) {
	srv := newTestServer(t)
	deviceToken := activateTestDevice(t, srv.URL)

	// Sam the accountant only works at loc-1.
	resp := postJSON(t, srv.URL+"/v1/sessions", deviceToken, map[string]string{"pin": "3333"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	sessionToken := decodeBody(t, resp)["session_token"].(string)

	resp = postJSON(t, srv.URL+"/v1/sessions/location", sessionToken, map[string]string{"location_id": "loc-2"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "forbidden", errorCode(t, resp))
}

func TestLogout_InvalidatesSession(t *testing.T) {
	srv := newTestServer(t)
	deviceToken := activateTestDevice(t, srv.URL)

	resp := postJSON(t, srv.URL+"/v1/sessions", deviceToken, map[string]string{"pin": "1111"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	sessionToken := decodeBody(t, resp)["session_token"].(string)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/v1/sessions", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+sessionToken)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	delResp.Body.Close()
	assert.Equal(t, http.StatusNoContent, delResp.StatusCode)

	resp = postJSON(t, srv.URL+"/v1/sessions/refresh", sessionToken, map[string]string{"session_token": sessionToken})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
