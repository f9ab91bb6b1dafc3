package bhosttest

import (
	"net/http"
	"net/http/httptest"

	"github.com/advdv/bserve"
)

// Serve dispatches req through the router tree with a buffered response writer and returns the
// recorded response. Errors are rendered the way the server renders them.
func Serve(root bserve.Router, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	bserve.ToStd(bserve.Dispatch(root), -1, bserve.NewTestLogger(nil)).ServeHTTP(rec, req)

	return rec
}
