package generate

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestHandlerRun(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "proj/views/home.gw",
		[]byte("package views\nview Home() { h1 { \"Home\" } }\n"), 0o644))

	me := &Handler{dir: "proj", fs: fs}
	require.NoError(t, me.Run(context.Background()))

	out, err := afero.ReadFile(fs, "proj/views/home.gw.go")
	require.NoError(t, err)
	require.Contains(t, string(out), "func Home() html.Node {")
}

func TestHandlerRunFlagOverrides(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "proj/views/home.gw",
		[]byte("package views\nview Home() { h1 { \"Home\" } }\n"), 0o644))

	me := &Handler{dir: "proj", fs: fs, backend: "gomponents", suffix: "_gen.go"}
	require.NoError(t, me.Run(context.Background()))

	out, err := afero.ReadFile(fs, "proj/views/home_gen.go")
	require.NoError(t, err)
	require.Contains(t, string(out), "g.Node")
}

func TestHandlerRunReportsFailures(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "proj/bad.gw",
		[]byte("package views\nview Bad() { input[checked] { \"x\" } }\n"), 0o644))

	me := &Handler{dir: "proj", fs: fs}
	err := me.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "cannot have a body")
}
