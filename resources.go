package bserve

import (
	"context"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/cockroachdb/errors"
)

// ResourceSource is a bundle of named resources, such as files embedded in the binary or objects in a
// bucket. Names are namespaced by the source's separator.
type ResourceSource interface {
	List(ctx context.Context) ([]string, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Separator() string
}

// Resources serves the resources of a source below a root. The lookup table is built once, each
// request is an exact match of its scoped path.
type Resources struct {
	RouterBase

	source ResourceSource
	names  map[string]string
}

// NewResources lists the source and keys every resource below root by its path relative to root.
func NewResources(ctx context.Context, source ResourceSource, root string, opts ...RouterOption) (*Resources, error) {
	names, err := source.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list resources")
	}

	sep := source.Separator()
	res := &Resources{
		RouterBase: newRouterBase(opts...),
		source:     source,
		names:      make(map[string]string, len(names)),
	}

	for _, name := range names {
		rel, ok := strings.CutPrefix(name, root)
		if !ok || !segmentBoundary(root, rel, sep) {
			continue
		}

		key := resourceKey(strings.TrimPrefix(rel, sep), sep)
		if key == "" {
			continue
		}

		res.names[key] = name
	}

	return res, nil
}

// segmentBoundary reports whether root ends on a whole segment of the name it was cut from.
func segmentBoundary(root, rel, sep string) bool {
	return root == "" || rel == "" || strings.HasSuffix(root, sep) || strings.HasPrefix(rel, sep)
}

func resourceKey(s, sep string) string {
	if sep == "/" || sep == "" {
		return s
	}

	return strings.ReplaceAll(s, sep, "/")
}

// Len returns the number of resources served.
func (res *Resources) Len() int { return len(res.names) }

func (res *Resources) HandleContext(rc *RoutingContext) {
	rc.Scope(res)

	name, ok := res.names[resourceKey(rc.ScopedPath, res.source.Separator())]
	if !ok {
		return
	}

	rc.RegisterContent(HandlerFunc(func(ctx context.Context, w ResponseWriter, _ *http.Request) error {
		return res.serve(ctx, w, name)
	}))
}

func (res *Resources) serve(ctx context.Context, w ResponseWriter, name string) error {
	body, err := res.source.Open(ctx, name)
	if err != nil {
		return errors.Wrapf(err, "open resource %q", name)
	}
	defer body.Close()

	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}

	if _, err := io.Copy(w, body); err != nil {
		return errors.Wrapf(err, "copy resource %q", name)
	}

	return nil
}

// FSSource exposes the regular files of a file system as resources.
type FSSource struct{ fsys fs.FS }

// NewFSSource inits a source for fsys, typically an [embed.FS].
func NewFSSource(fsys fs.FS) FSSource { return FSSource{fsys} }

func (s FSSource) Separator() string { return "/" }

func (s FSSource) List(context.Context) ([]string, error) {
	var names []string
	err := fs.WalkDir(s.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.Type().IsRegular() {
			names = append(names, p)
		}

		return nil
	})

	return names, errors.Wrap(err, "walk file system")
}

func (s FSSource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	f, err := s.fsys.Open(name)
	if err != nil {
		return nil, errors.Wrap(err, "open file")
	}

	return f, nil
}
