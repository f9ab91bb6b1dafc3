package bserve_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/advdv/bserve"
	"github.com/cockroachdb/errors"
)

func Example() {
	root := bserve.NewLayout().
		Index(bserve.ContentFunc(func(ctx context.Context, w bserve.ResponseWriter, r *http.Request) error {
			fmt.Fprint(w, "home")
			return nil
		})).
		Add("items", bserve.ContentFunc(func(ctx context.Context, w bserve.ResponseWriter, r *http.Request) error {
			if r.URL.Query().Get("id") == "" {
				return bserve.NewError(bserve.CodeBadRequest, errors.New("missing id"))
			}

			fmt.Fprintf(w, "item %s", r.URL.Query().Get("id"))
			return nil
		}))

	h := bserve.ToStd(bserve.Dispatch(root), -1, bserve.NewTestLogger(nil))

	for _, target := range []string{"/", "/items?id=42", "/items", "/other"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		fmt.Println(target, rec.Code)
	}
	// Output:
	// / 200
	// /items?id=42 200
	// /items 400
	// /other 404
}

func ExampleWithErrorHandler() {
	pages := func(ctx context.Context, w bserve.ResponseWriter, r *http.Request, err error) error {
		w.WriteHeader(int(bserve.CodeOf(err)))
		fmt.Fprintf(w, "sorry: %d", bserve.CodeOf(err))
		return nil
	}

	root := bserve.NewLayout(bserve.WithErrorHandler(pages)).
		Add("process", bserve.ContentFunc(func(ctx context.Context, w bserve.ResponseWriter, r *http.Request) error {
			fmt.Fprint(w, "Starting process...")
			return bserve.NewError(bserve.CodeServiceUnavailable, errors.New("process failed"))
		}))

	rec := httptest.NewRecorder()
	bserve.ToStd(bserve.Dispatch(root), -1, bserve.NewTestLogger(nil)).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/process", nil))

	fmt.Println(rec.Code, rec.Body.String())
	// Output:
	// 503 sorry: 503
}

func ExampleNewGraft() {
	blog := bserve.NewLayout().
		Index(bserve.ContentFunc(func(ctx context.Context, w bserve.ResponseWriter, r *http.Request) error {
			rc, _ := bserve.RoutingContextFrom(ctx)
			home, _ := rc.Route("home")

			fmt.Fprintf(w, "back to %s", home)
			return nil
		}))

	root := bserve.NewLayout().Name("home", "/").Add("blog", bserve.NewGraft(blog))

	rec := httptest.NewRecorder()
	bserve.ToStd(bserve.Dispatch(root), -1, bserve.NewTestLogger(nil)).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/blog/", nil))

	fmt.Println(rec.Body.String())
	// Output:
	// back to ../
}

func ExampleChain() {
	requestID := func(next bserve.BareHandler) bserve.BareHandler {
		return bserve.BareHandlerFunc(func(w bserve.ResponseWriter, r *http.Request) error {
			w.Header().Set("X-Request-ID", "req-123")
			return next.ServeBareBHTTP(w, r)
		})
	}

	root := bserve.NewLayout().Add("ping", bserve.ContentFunc(
		func(ctx context.Context, w bserve.ResponseWriter, r *http.Request) error {
			fmt.Fprint(w, "pong")
			return nil
		}))

	rec := httptest.NewRecorder()
	bserve.ToStd(bserve.Chain(bserve.Dispatch(root), requestID), -1, bserve.NewTestLogger(nil)).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	fmt.Println("Body:", rec.Body.String())
	fmt.Println("Request ID:", rec.Header().Get("X-Request-ID"))
	// Output:
	// Body: pong
	// Request ID: req-123
}

func ExampleLayout_Reverse() {
	root := bserve.NewLayout().
		Name("user", "/users/{id}").
		Name("user-post", "/users/{userId}/posts/{postId}")

	url1, _ := root.Reverse("user", "42")
	url2, _ := root.Reverse("user-post", "42", "101")

	fmt.Println(url1)
	fmt.Println(url2)
	// Output:
	// /users/42
	// /users/42/posts/101
}

func ExampleCodeOf() {
	err := bserve.NewError(bserve.CodeNotFound, errors.New("user not found"))
	fmt.Println("Code:", bserve.CodeOf(err))

	wrapped := fmt.Errorf("handler failed: %w", err)
	fmt.Println("Wrapped code:", bserve.CodeOf(wrapped))

	fmt.Println("Plain error code:", bserve.CodeOf(errors.New("something went wrong")))
	// Output:
	// Code: 404
	// Wrapped code: 404
	// Plain error code: 0
}

func ExampleSecureUpgrade() {
	r := httptest.NewRequest(http.MethodGet, "http://example.com/login?next=%2F", nil)
	r.Header.Set("Upgrade-Insecure-Requests", "1")

	target, _ := bserve.RedirectTarget(r, 443)
	fmt.Println(bserve.Decide(bserve.SecureUpgradeAllow, r) == bserve.RedirectTemporary, target)
	// Output:
	// true https://example.com:443/login?next=%2F
}
