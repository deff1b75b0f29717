package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	sequencer "github.com/scormlab/sequencer"
	"github.com/scormlab/sequencer/internal/adapters/memory"
	httpAdapter "github.com/scormlab/sequencer/pkg/adapters/http"
	"github.com/scormlab/sequencer/pkg/sequencing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testManifest = `<?xml version="1.0"?>
<manifest identifier="mini">
  <organizations default="org">
    <organization identifier="org">
      <title>Mini Course</title>
      <item identifier="l1" identifierref="r1"><title>Lesson 1</title></item>
      <item identifier="l2" identifierref="r2"><title>Lesson 2</title></item>
    </organization>
  </organizations>
  <resources>
    <resource identifier="r1" type="webcontent" href="l1.html"/>
    <resource identifier="r2" type="webcontent" href="l2.html"/>
  </resources>
</manifest>`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	svc := sequencer.New(memory.New())
	srv := httptest.NewServer(httpAdapter.NewHandler(svc))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func registerCourse(t *testing.T, srv *httptest.Server) {
	t.Helper()

	resp := postJSON(t, srv.URL+"/courses", map[string]string{
		"courseId": "mini",
		"manifest": testManifest,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
}

func createSession(t *testing.T, srv *httptest.Server) string {
	t.Helper()

	resp := postJSON(t, srv.URL+"/sessions", map[string]string{
		"learnerId": "learner-1",
		"courseId":  "mini",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	id, _ := body["sessionId"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Equal(t, "ok", body["status"])
}

func TestRegisterCourse(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/courses", map[string]string{
		"courseId": "mini",
		"manifest": testManifest,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decode[map[string]any](t, resp)
	assert.Equal(t, "mini", body["courseId"])
	assert.Equal(t, "Mini Course", body["title"])
	assert.Equal(t, float64(3), body["activityCount"])
}

func TestRegisterCourse_InvalidManifest(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/courses", map[string]string{
		"courseId": "bad",
		"manifest": "<manifest></manifest>",
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	body := decode[map[string]any](t, resp)
	assert.Equal(t, "ManifestError", body["kind"])
}

func TestRegisterCourse_MissingFields(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/courses", map[string]string{"courseId": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestCreateSession(t *testing.T) {
	srv := newTestServer(t)
	registerCourse(t, srv)

	resp := postJSON(t, srv.URL+"/sessions", map[string]string{
		"learnerId": "learner-1",
		"courseId":  "mini",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decode[map[string]any](t, resp)
	assert.NotEmpty(t, body["sessionId"])
	assert.Equal(t, "created", body["navigationState"])
}

func TestCreateSession_UnknownCourse(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/sessions", map[string]string{
		"learnerId": "learner-1",
		"courseId":  "ghost",
	})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	body := decode[map[string]any](t, resp)
	assert.Equal(t, "CourseNotFound", body["kind"])
}

func TestNavigate_StartAndContinue(t *testing.T) {
	srv := newTestServer(t)
	registerCourse(t, srv)
	sessionID := createSession(t, srv)

	resp := postJSON(t, srv.URL+"/sessions/"+sessionID+"/navigate", map[string]string{
		"type": "start",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	nav := decode[sequencing.Response](t, resp)
	assert.True(t, nav.Success)
	assert.Equal(t, "l1", nav.CurrentActivity)
	require.NotNil(t, nav.Instruction)
	assert.Equal(t, "l1.html", nav.Instruction.Href)

	resp = postJSON(t, srv.URL+"/sessions/"+sessionID+"/navigate", map[string]string{
		"type": "continue",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	nav = decode[sequencing.Response](t, resp)
	assert.True(t, nav.Success)
	assert.Equal(t, "l2", nav.CurrentActivity)
}

func TestNavigate_FailedNavigationIsOK(t *testing.T) {
	srv := newTestServer(t)
	registerCourse(t, srv)
	sessionID := createSession(t, srv)

	// continue before start: a well-formed request the engine rejects.
	resp := postJSON(t, srv.URL+"/sessions/"+sessionID+"/navigate", map[string]string{
		"type": "continue",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	nav := decode[sequencing.Response](t, resp)
	assert.False(t, nav.Success)
	assert.Equal(t, sequencing.ErrNoCurrentActivity, nav.ErrorKind)
}

func TestNavigate_UnknownSession(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/sessions/nope/navigate", map[string]string{
		"type": "start",
	})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	body := decode[map[string]any](t, resp)
	assert.Equal(t, "SessionNotFound", body["kind"])
}

func TestGetSession(t *testing.T) {
	srv := newTestServer(t)
	registerCourse(t, srv)
	sessionID := createSession(t, srv)

	resp, err := http.Get(srv.URL + "/sessions/" + sessionID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[map[string]any](t, resp)
	assert.Equal(t, sessionID, body["id"])
	assert.Equal(t, "mini", body["courseId"])
}

func TestGetSession_NotFound(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/sessions/nope")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestDeleteSession(t *testing.T) {
	srv := newTestServer(t)
	registerCourse(t, srv)
	sessionID := createSession(t, srv)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/sessions/"+sessionID, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	getResp, err := http.Get(srv.URL + "/sessions/" + sessionID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, getResp.StatusCode)
	getResp.Body.Close()
}

func TestCORSHeaders(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/healthz", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
