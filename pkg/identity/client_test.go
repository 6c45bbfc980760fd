package identity

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hieplh/ata-sample-webapp/config"
)

func newTestClient(t *testing.T, h http.HandlerFunc, retries uint64) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewClient(&config.IdentityConfig{
		Host:         srv.URL,
		Token:        "face-token",
		Timeout:      2 * time.Second,
		MaxRetries:   retries,
		RetryBackoff: time.Millisecond,
	}, zap.NewNop())
	return c, srv
}

func TestIdentify_Success(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/service/face_recognize/identify", r.URL.Path)
		assert.Equal(t, "Bearer face-token", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "alice", r.FormValue("identification_id"))
		f, hdr, err := r.FormFile("image")
		require.NoError(t, err)
		data, _ := io.ReadAll(f)
		assert.Equal(t, "face.png", hdr.Filename)
		assert.Equal(t, []byte("img"), data)

		_ = json.NewEncoder(w).Encode(map[string]string{"identification_id": "alice"})
	}, 0)

	id, err := c.Identify(context.Background(), "alice", File{Name: "face.png", ContentType: "image/png", Data: []byte("img")})
	require.NoError(t, err)
	assert.Equal(t, "alice", id)

	assert.NoError(t, c.Verify(context.Background(), "alice", File{Name: "face.png", Data: []byte("img")}))
}

func TestVerify_Mismatch(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"identification_id": "bob"})
	}, 0)

	err := c.Verify(context.Background(), "alice", File{Name: "face.png", Data: []byte("img")})
	assert.ErrorIs(t, err, ErrNotIdentified)
}

func TestRetry_ServerErrorRetriedUpToLimit(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}, 2)

	err := c.Delete(context.Background(), "alice")
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.Code)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls), "首次调用加两次重试")
}

func TestRetry_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}, 3)

	err := c.Delete(context.Background(), "alice")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRetry_RebuildsMultipartBody(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Len(t, r.MultipartForm.File["files"], 2)
		if n == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}, 1)

	err := c.Register(context.Background(), "alice", map[string]string{"username": "alice"}, []File{
		{Name: "a.png", Data: []byte("a")},
		{Name: "b.png", Data: []byte("b")},
	})
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestRegister_NoFilesSkipsCall(t *testing.T) {
	var calls int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}, 0)

	require.NoError(t, c.Register(context.Background(), "alice", nil, nil))
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestUpdate_SendsJSON(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body struct {
			IdentificationID string        `json:"identification_id"`
			Images           []ImageUpdate `json:"images"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "alice", body.IdentificationID)
		require.Len(t, body.Images, 1)
		require.NotNil(t, body.Images[0].ImageOldID)
		assert.Equal(t, uint(4), *body.Images[0].ImageOldID)
	}, 0)

	id := uint(4)
	err := c.Update(context.Background(), "alice", []ImageUpdate{{ImageOldID: &id, ImageName: "x.png", Image: "AAAA"}})
	assert.NoError(t, err)
}

func TestListImages(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/service/face_recognize/images/alice", r.URL.Path)
		_, _ = w.Write([]byte(`[{"id":1},{"id":2}]`))
	}, 0)

	images, err := c.ListImages(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, images, 2)
}
