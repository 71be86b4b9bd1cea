package cache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/archviz/diagramsvc/internal/model"
)

func TestKeyIsStableAcrossDiagramTypeCase(t *testing.T) {
	req := model.DiagramRequest{Content: "hello"}
	require.Equal(t, Key("Pyramid_3", req, nil), Key("pyramid_3", req, nil))
}

func TestKeyDiffersOnContent(t *testing.T) {
	k1 := Key("pyramid_3", model.DiagramRequest{Content: "a"}, nil)
	k2 := Key("pyramid_3", model.DiagramRequest{Content: "b"}, nil)
	require.NotEqual(t, k1, k2)
}

func TestKeyDiffersOnTheme(t *testing.T) {
	req := model.DiagramRequest{Content: "hello"}
	k1 := Key("pyramid_3", req, map[string]string{"primary": "#FF0000"})
	k2 := Key("pyramid_3", req, map[string]string{"primary": "#00FF00"})
	require.NotEqual(t, k1, k2)
}

func TestKeyIgnoresMapFieldOrdering(t *testing.T) {
	theme1 := map[string]string{"primary": "#FF0000", "secondary": "#00FF00"}
	theme2 := map[string]string{"secondary": "#00FF00", "primary": "#FF0000"}
	req := model.DiagramRequest{Content: "hello"}
	require.Equal(t, Key("pyramid_3", req, theme1), Key("pyramid_3", req, theme2))
}

func TestKeyIsDeterministic(t *testing.T) {
	req := model.DiagramRequest{
		Content:    "c",
		DataPoints: []model.DataPoint{{Label: "a"}, {Label: "b"}},
	}
	k1 := Key("matrix_2x2", req, "theme")
	k2 := Key("matrix_2x2", req, "theme")
	require.Equal(t, k1, k2)
	require.Len(t, k1, 64) // hex-encoded SHA256
}
