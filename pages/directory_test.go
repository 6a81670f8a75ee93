package pages_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/go-page-insights/graph"
	"github.com/jrsteele09/go-page-insights/internal/errors"
	"github.com/jrsteele09/go-page-insights/pages"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDirectory(t *testing.T, maxPages int, handler http.HandlerFunc) *pages.Directory {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := graph.NewClient(srv.URL, "v13.0")
	require.NoError(t, err)
	return pages.NewDirectory(c, 2, maxPages)
}

func TestDirectory_ListResources(t *testing.T) {
	t.Run("preserves order across cursors and drops blanks", func(t *testing.T) {
		d := newDirectory(t, 5, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("after") == "" {
				fmt.Fprintf(w, `{"data":[{"id":"9","name":"Zeta","access_token":"tok-9"},{"id":"","name":"ghost"}],"paging":{"next":"http://%s/v13.0/me/accounts?after=x"}}`, r.Host)
				return
			}
			fmt.Fprint(w, `{"data":[{"id":"1","name":"Alpha","category":"Brand"},{"id":"5","name":""}]}`)
		})

		got, err := d.ListResources(context.Background(), "user-token")
		require.NoError(t, err)
		require.Equal(t, []pages.Resource{
			{ID: "9", Name: "Zeta", AccessToken: "tok-9"},
			{ID: "1", Name: "Alpha", Category: "Brand"},
		}, got)
	})

	t.Run("zero pages is empty not error", func(t *testing.T) {
		d := newDirectory(t, 5, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"data":[]}`)
		})

		got, err := d.ListResources(context.Background(), "user-token")
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Empty(t, got)
	})

	t.Run("upstream failure is an auth error with upstream message", func(t *testing.T) {
		d := newDirectory(t, 5, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":{"message":"Session has expired","type":"OAuthException","code":190}}`)
		})

		_, err := d.ListResources(context.Background(), "user-token")
		require.True(t, errors.IsAuth(err))
		var authErr *errors.AuthError
		require.True(t, errors.As(err, &authErr))
		require.Equal(t, "Session has expired", authErr.Message)
	})

	t.Run("missing token", func(t *testing.T) {
		d := newDirectory(t, 5, func(w http.ResponseWriter, r *http.Request) {})

		_, err := d.ListResources(context.Background(), "")
		require.True(t, errors.IsAuth(err))
		require.ErrorIs(t, err, errors.ErrMissingToken)
	})
}

func TestDirectory_ResolveResourceToken(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		d := newDirectory(t, 1, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v13.0/123", r.URL.Path)
			assert.Equal(t, "access_token", r.URL.Query().Get("fields"))
			fmt.Fprint(w, `{"id":"123","access_token":"page-token"}`)
		})

		tok, err := d.ResolveResourceToken(context.Background(), "123", "user-token")
		require.NoError(t, err)
		require.Equal(t, "page-token", tok)
	})

	t.Run("token absent", func(t *testing.T) {
		d := newDirectory(t, 1, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"id":"123"}`)
		})

		_, err := d.ResolveResourceToken(context.Background(), "123", "user-token")
		require.True(t, errors.IsAuth(err))
		require.ErrorIs(t, err, errors.ErrMissingToken)
	})

	t.Run("permission denied", func(t *testing.T) {
		d := newDirectory(t, 1, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			fmt.Fprint(w, `{"error":{"message":"(#200) Requires pages_read_engagement","type":"OAuthException","code":200}}`)
		})

		_, err := d.ResolveResourceToken(context.Background(), "123", "user-token")
		require.True(t, errors.IsAuth(err))
		require.Contains(t, err.Error(), "pages_read_engagement")
	})
}

func TestFind(t *testing.T) {
	list := []pages.Resource{{ID: "1", Name: "a"}, {ID: "2", Name: "b"}}

	r, ok := pages.Find(list, "2")
	require.True(t, ok)
	require.Equal(t, "b", r.Name)

	_, ok = pages.Find(list, "3")
	require.False(t, ok)
}
