// Package bserve is an embeddable HTTP/1.1 server core that serves a tree of routers with error-returning
// handlers.
//
// # Overview
//
// A [Server] listens on one or more [Binding]s. A binding is secure when it carries a [CertificateProvider],
// certificates are then picked per connection from the SNI server name. Every connection is served by its
// own goroutine, requests on one connection are served one after the other in the order they arrived.
//
// A minimal example:
//
//	root := bserve.NewLayout().
//	    Index(bserve.Content(bserve.HandlerFunc(home))).
//	    Add("about", bserve.Content(bserve.HandlerFunc(about)))
//
//	srv := bserve.New(root,
//	    bserve.WithBinding(bserve.Binding{Port: 8080}),
//	    bserve.WithBinding(bserve.Binding{Port: 8443, Certificates: certs}))
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
//	defer srv.Shutdown(ctx)
//
// # Router Tree
//
// Requests are resolved by walking a tree of [Router]s. Each router consumes part of the request path and
// either registers content or hands the rest of the path to a child:
//
//   - [Layout] maps path segments to children, with an optional index and fallback
//   - [Graft] mounts a router that was built elsewhere while keeping the grafted router's own settings
//   - [Resources] serves a flat set of named resources from a [ResourceSource]
//   - [ContentRouter] answers when the path is fully consumed
//
// Page templates, error handlers and named routes are looked up from the router that registered the
// content outward to the root. The first router that has one wins.
//
// # Handlers and Errors
//
// Handlers write to a buffered [ResponseWriter] and return an error. On error the buffer is reset and the
// closest [ErrorHandler] renders a replacement. Use [NewError] to attach a status code:
//
//	return bserve.NewError(bserve.CodeForbidden, errors.New("access denied"))
//
// Errors without a code, and errors no handler rendered, end in a plain text response.
//
// # Secure Upgrade
//
// Plaintext bindings follow a [SecureUpgrade] mode. Redirect mode sends every request to the first secure
// binding with a permanent redirect. Allow mode only redirects clients that send Upgrade-Insecure-Requests.
// Secure bindings send a Strict-Transport-Security header built from [StrictTransport]. Both settings can
// be changed while the server runs.
//
// # Request Bodies
//
// Request bodies are read completely before the handler runs. Bodies larger than the memory limit of
// [WithBodyLimits] are spilled to a temporary file that is removed after the response was written.
package bserve
