package bserve_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/advdv/bserve"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dottedSource namespaces its resources with dots.
type dottedSource map[string]string

func (s dottedSource) Separator() string { return "." }

func (s dottedSource) List(context.Context) ([]string, error) {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}

	return names, nil
}

func (s dottedSource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	v, ok := s[name]
	if !ok {
		return nil, errors.Newf("no resource %q", name)
	}

	return io.NopCloser(strings.NewReader(v)), nil
}

type failingSource struct{ dottedSource }

func (failingSource) List(context.Context) ([]string, error) { return nil, errors.New("list failed") }

func TestResources(t *testing.T) {
	ctx := context.Background()

	t.Run("should serve files below the root", func(t *testing.T) {
		src := bserve.NewFSSource(fstest.MapFS{
			"static/site.css":      {Data: []byte("body{}")},
			"static/js/app.js":     {Data: []byte("alert(1)")},
			"templates/page.html":  {Data: []byte("<p>")},
			"static/img/empty.bin": {Data: nil},
		})

		res, err := bserve.NewResources(ctx, src, "static")
		require.NoError(t, err)
		assert.Equal(t, 3, res.Len())

		root := bserve.NewLayout().Add("assets", res)

		rec := serve(t, root, "/assets/site.css")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "body{}", rec.Body.String())
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/css")

		rec = serve(t, root, "/assets/js/app.js")
		assert.Equal(t, "alert(1)", rec.Body.String())

		assert.Equal(t, http.StatusNotFound, serve(t, root, "/assets/page.html").Code)
		assert.Equal(t, http.StatusNotFound, serve(t, root, "/assets/").Code)
	})

	t.Run("should only load names below whole root segments", func(t *testing.T) {
		src := bserve.NewFSSource(fstest.MapFS{
			"static/site.css":     {Data: []byte("body{}")},
			"static-old/leak.txt": {Data: []byte("leaked")},
			"staticfile.txt":      {Data: []byte("leaked")},
		})

		for _, root := range []string{"static", "static/"} {
			res, err := bserve.NewResources(ctx, src, root)
			require.NoError(t, err)
			assert.Equal(t, 1, res.Len(), root)

			router := bserve.NewLayout().Add("assets", res)
			assert.Equal(t, http.StatusOK, serve(t, router, "/assets/site.css").Code)
			assert.Equal(t, http.StatusNotFound, serve(t, router, "/assets/-old/leak.txt").Code)
			assert.Equal(t, http.StatusNotFound, serve(t, router, "/assets/file.txt").Code)
		}

		dotted, err := bserve.NewResources(ctx, dottedSource{
			"app.resources.main":  "main",
			"app.resourcesx.leak": "leaked",
		}, "app.resources")
		require.NoError(t, err)
		assert.Equal(t, 1, dotted.Len())
	})

	t.Run("should replace the separator of namespaced names", func(t *testing.T) {
		src := dottedSource{
			"app.resources.styles.main": "main",
			"app.other.thing":           "other",
		}

		res, err := bserve.NewResources(ctx, src, "app.resources")
		require.NoError(t, err)

		root := bserve.NewLayout().Add("r", res)
		assert.Equal(t, "main", serve(t, root, "/r/styles/main").Body.String())
		assert.Equal(t, http.StatusNotFound, serve(t, root, "/r/thing").Code)
	})

	t.Run("should defer routes to the parent", func(t *testing.T) {
		res, err := bserve.NewResources(ctx, dottedSource{}, "")
		require.NoError(t, err)

		bserve.NewLayout().Name("home", "/").Add("r", res)

		link, ok := res.Route("home", 1)
		require.True(t, ok)
		assert.Equal(t, "../", link)
	})

	t.Run("should fail when the source can not be listed", func(t *testing.T) {
		_, err := bserve.NewResources(ctx, failingSource{}, "")
		require.ErrorContains(t, err, "list resources: list failed")
	})
}
