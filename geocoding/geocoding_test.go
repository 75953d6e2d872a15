package geocoding_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/jrsteele09/go-catalogue-editor/geocoding"
	apperrors "github.com/jrsteele09/go-catalogue-editor/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestAddress_Query(t *testing.T) {
	a := geocoding.Address{Street: "Main St 1", Locality: "Berlin", PostalCode: "10115"}
	require.Equal(t, "10115, Berlin, Main St 1", a.Query())
	require.Equal(t, "Berlin", geocoding.Address{Locality: " Berlin "}.Query())
	require.Empty(t, geocoding.Address{}.Query())
}

func TestClient_Lookup(t *testing.T) {
	t.Run("returns first match", func(t *testing.T) {
		var gotQuery, gotAgent string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.RawQuery
			gotAgent = r.Header.Get("User-Agent")
			_, _ = io.WriteString(w, `[{"lat":"52.52","lon":"13.405"},{"lat":"0","lon":"0"}]`)
		}))
		defer srv.Close()

		c := geocoding.New(srv.URL+"/search", "editor-tests")
		got, err := c.Lookup(context.Background(), geocoding.Address{Locality: "Berlin", PostalCode: "10115"})
		require.NoError(t, err)
		require.Equal(t, geocoding.Coordinates{Latitude: 52.52, Longitude: 13.405}, got)
		require.Equal(t, "addressdetails=0&format=jsonv2&limit=1&q=10115%2C+Berlin", gotQuery)
		require.Equal(t, "editor-tests", gotAgent)
	})

	t.Run("empty address never calls out", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
		}))
		defer srv.Close()

		_, err := geocoding.New(srv.URL, "").Lookup(context.Background(), geocoding.Address{Street: "  "})
		require.ErrorIs(t, err, apperrors.ErrBadRequest)
		require.Zero(t, calls.Load())
	})

	t.Run("no match is a bad request", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `[]`)
		}))
		defer srv.Close()

		_, err := geocoding.New(srv.URL, "").Lookup(context.Background(), geocoding.Address{Locality: "Nowhere"})
		require.ErrorIs(t, err, apperrors.ErrBadRequest)
	})

	t.Run("upstream failure is internal and not retried", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := geocoding.New(srv.URL, "").Lookup(context.Background(), geocoding.Address{Locality: "Berlin"})
		require.ErrorIs(t, err, apperrors.ErrInternal)
		require.EqualValues(t, 1, calls.Load())
	})

	t.Run("unparseable coordinates", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `[{"lat":"north","lon":"1"}]`)
		}))
		defer srv.Close()

		_, err := geocoding.New(srv.URL, "").Lookup(context.Background(), geocoding.Address{Locality: "Berlin"})
		require.ErrorIs(t, err, apperrors.ErrInternal)
	})
}
