package images_test

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/go-catalogue-editor/assets"
	"github.com/jrsteele09/go-catalogue-editor/catalogue"
	"github.com/jrsteele09/go-catalogue-editor/images"
	apperrors "github.com/jrsteele09/go-catalogue-editor/internal/errors"
	"github.com/jrsteele09/go-catalogue-editor/sessions"
	"github.com/stretchr/testify/require"
)

var (
	pngBytes  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}
	jpegBytes = []byte{0xff, 0xd8, 0xff, 0xe0, 0, 0x10, 'J', 'F', 'I', 'F', 0}
	gifBytes  = []byte("GIF89a\x01\x00\x01\x00")
)

func b64(b []byte) string { return base64.StdEncoding.EncodeToString(b) }

func TestSniffType(t *testing.T) {
	require.Equal(t, images.MIMEPNG, images.SniffType(b64(pngBytes)))
	require.Equal(t, images.MIMEJPEG, images.SniffType(b64(jpegBytes)))
	require.Equal(t, images.MIMEJPEG, images.SniffType("/9g/AAAA"))
	require.Empty(t, images.SniffType(b64(gifBytes)))
	require.Empty(t, images.SniffType("data:image/png;base64,"+b64(pngBytes)))
}

func TestValidate(t *testing.T) {
	t.Run("filename extension does not matter", func(t *testing.T) {
		img, err := images.Validate("photo.gif", b64(pngBytes), images.DefaultMaxSize)
		require.NoError(t, err)
		require.Equal(t, images.MIMEPNG, img.MIMEType)
		require.Equal(t, pngBytes, img.Data)

		_, err = images.Validate("photo.png", b64(gifBytes), images.DefaultMaxSize)
		require.ErrorIs(t, err, apperrors.ErrBadRequest)
		require.Contains(t, err.Error(), "Only PNG and JPEG")
	})

	t.Run("name required", func(t *testing.T) {
		_, err := images.Validate("", b64(pngBytes), images.DefaultMaxSize)
		require.ErrorIs(t, err, apperrors.ErrBadRequest)
		require.Contains(t, err.Error(), "Name parameter is required")
	})

	t.Run("oversize", func(t *testing.T) {
		big := append(append([]byte{}, pngBytes...), make([]byte, images.DefaultMaxSize)...)
		_, err := images.Validate("big.png", b64(big), images.DefaultMaxSize)
		require.ErrorIs(t, err, apperrors.ErrBadRequest)
		require.Contains(t, err.Error(), "exceeds 1 MB")
	})

	t.Run("exactly at limit", func(t *testing.T) {
		require.True(t, images.WithinSize(strings.Repeat("A", 4*images.DefaultMaxSize/3), images.DefaultMaxSize))
	})
}

func setupProxy(t *testing.T, h http.HandlerFunc) (*images.Proxy, context.Context) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	client, err := catalogue.New(srv.URL, catalogue.WithRetryBackoff(time.Millisecond))
	require.NoError(t, err)
	ctx := sessions.NewContext(context.Background(), sessions.Session{AccessToken: "tok"})
	return images.NewProxy(client, 0), ctx
}

func TestProxy_Upload(t *testing.T) {
	var (
		gotPath, gotQuery, gotAuth, gotMIME, gotFilename string
		gotData                                          []byte
	)
	proxy, ctx := setupProxy(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery, gotAuth = r.URL.Path, r.URL.Query().Get("name"), r.Header.Get("Authorization")
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		gotData, _ = io.ReadAll(file)
		gotMIME = header.Header.Get("Content-Type")
		gotFilename = header.Filename
		_, _ = io.WriteString(w, `{"ok":true}`)
	})

	resp, err := proxy.Upload(ctx, http.MethodPost, assets.Datasets, "5", "logo one.png", b64(pngBytes))
	require.NoError(t, err)
	require.JSONEq(t, `{"ok":true}`, string(resp))
	require.Equal(t, "/datasets/5/image", gotPath)
	require.Equal(t, "logo one.png", gotQuery)
	require.Equal(t, "Bearer tok", gotAuth)
	require.Equal(t, images.MIMEPNG, gotMIME)
	require.Equal(t, "logo one.png", gotFilename)
	require.Equal(t, pngBytes, gotData)
}

func TestProxy_RelaysBackendStatus(t *testing.T) {
	proxy, ctx := setupProxy(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, "image already exists")
	})

	_, err := proxy.Upload(ctx, http.MethodPost, assets.Events, "1", "a.jpg", b64(jpegBytes))
	require.Equal(t, http.StatusConflict, catalogue.StatusCode(err))

	var apiErr *catalogue.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "image already exists", apiErr.Body)
}

func TestProxy_RejectsBeforeForwarding(t *testing.T) {
	called := false
	proxy, ctx := setupProxy(t, func(w http.ResponseWriter, r *http.Request) { called = true })

	_, err := proxy.Upload(ctx, http.MethodPut, assets.Events, "1", "a.png", b64(gifBytes))
	require.ErrorIs(t, err, apperrors.ErrBadRequest)

	_, err = proxy.Upload(context.Background(), http.MethodPut, assets.Events, "1", "a.png", b64(pngBytes))
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = proxy.Delete(ctx, assets.Events, "1", "")
	require.ErrorIs(t, err, apperrors.ErrBadRequest)
	require.False(t, called)
}

func TestProxy_Delete(t *testing.T) {
	var method string
	proxy, ctx := setupProxy(t, func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		w.WriteHeader(http.StatusNoContent)
	})

	resp, err := proxy.Delete(ctx, assets.News, "3", "banner.png")
	require.NoError(t, err)
	require.Equal(t, http.MethodDelete, method)
	require.JSONEq(t, `{}`, string(resp))
}
