// Package bhosttest provides test helpers for bhost applications.
//
// It constructs the identical DI graph as [bhost.NewApp] but uses
// [fxtest.App] which fails the test immediately on DI errors.
//
//	bhosttest.SetBaseEnv(t)
//	var srv *bserve.Server
//	app := bhosttest.New[TestEnv](t, NewRoot, bhost.WithFx(fx.Populate(&srv)))
//	app.RequireStart()
//	t.Cleanup(app.RequireStop)
package bhosttest

import (
	"testing"

	"github.com/advdv/bserve/bhost"
	"go.uber.org/fx/fxtest"
)

// App embeds *fxtest.App for testing bhost applications.
type App struct {
	*fxtest.App
}

// New creates a test app with the same DI graph as [bhost.NewApp].
func New[E bhost.Environment](t testing.TB, root any, opts ...bhost.Option) *App {
	return &App{App: fxtest.New(t, bhost.FxOptions[E](root, opts...)...)}
}
