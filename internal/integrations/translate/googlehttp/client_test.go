package googlehttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTranslate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "已签收", r.PostForm.Get("q"))
		require.Equal(t, "en", r.PostForm.Get("target"))
		require.Equal(t, "text", r.PostForm.Get("format"))
		require.Equal(t, "gkey", r.PostForm.Get("key"))

		_, _ = w.Write([]byte(`{"data":{"translations":[{"translatedText":"Delivered"}]}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "gkey")
	out, err := c.Translate(context.Background(), "已签收", "en")
	require.NoError(t, err)
	require.Equal(t, "Delivered", out)
}

func TestTranslate_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := New(srv.URL, "bad")
	_, err := c.Translate(context.Background(), "text", "en")
	require.Error(t, err)
}

func TestTranslate_EmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"translations":[]}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "gkey")
	_, err := c.Translate(context.Background(), "text", "en")
	require.Error(t, err)
}
