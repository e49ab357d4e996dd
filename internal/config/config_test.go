package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"datamap/internal/datamap"
	"datamap/internal/geom"
	"datamap/internal/projection"
	"datamap/internal/svg"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origDir) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 256, cfg.Server.CacheSize)
	assert.Equal(t, 10*time.Minute, cfg.Server.CacheTTL)
	assert.Equal(t, "datamap:", cfg.Server.Redis.Prefix)
	assert.Equal(t, 3, cfg.Fetch.MaxRetries)
	assert.Equal(t, "world", cfg.Map.Scope)
	assert.Equal(t, "equirectangular", cfg.Map.Projection)
	assert.Equal(t, []float64{1, 8}, cfg.Map.ZoomScale)
	assert.Nil(t, cfg.Layers.Legend)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	yaml := `
log:
  level: debug
  format: console
server:
  port: 9090
  cache_ttl: 30s
map:
  scope: usa
  projection: albersUsa
  responsive: true
  fills:
    defaultFill: "#EEEEEE"
    high: "#CC4731"
  geography_config:
    hide_antarctica: false
    border_width: 0.5
    popup_template: "<b>{{.Region.Name}}</b>"
  bubbles_config:
    animate: false
    key_field: name
layers:
  graticule: true
  legend:
    title: Votes
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "datamap.yaml"), []byte(yaml), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.CacheTTL)
	assert.Equal(t, "usa", cfg.Map.Scope)
	assert.True(t, cfg.Map.Responsive)
	require.NotNil(t, cfg.Map.Geography.HideAntarctica)
	assert.False(t, *cfg.Map.Geography.HideAntarctica)
	assert.Nil(t, cfg.Map.Geography.PopupOnHover)
	assert.True(t, cfg.Layers.Graticule)
	require.NotNil(t, cfg.Layers.Legend)
	assert.Equal(t, "Votes", cfg.Layers.Legend.Title)
	// Defaults still apply for unset values
	assert.Equal(t, 256, cfg.Server.CacheSize)

	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, "#EEEEEE", opts.Fills.Default())
	assert.Equal(t, "#CC4731", opts.Fills["high"])
	assert.False(t, opts.Geography.HideAntarctica.Value())
	assert.Equal(t, 0.5, opts.Geography.BorderWidth.Value())
	assert.False(t, opts.Bubbles.Animate.Value())
	assert.False(t, opts.Bubbles.PopupOnHover.IsSet())
	assert.Equal(t, "a", opts.Bubbles.Key(geom.Record{"name": "a", "radius": 3.0}))

	html, err := opts.Geography.PopupTemplate(geom.Region{ID: "TX", Name: "Texas & co"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "<b>Texas &amp; co</b>", html)
}

func TestLoadKeepsFillKeyCase(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "square.geojson"), []byte(squareGeoJSON), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "votes.json"), []byte(`{"SQR":{"fillKey":"HIGH"}}`), 0o644))

	yaml := `
map:
  scope: square
  fills:
    defaultFill: "#ABDDA4"
    HIGH: "#FF0000"
    lowKey: "#0000FF"
  filters:
    Glow: "url(#glow)"
topology: square.geojson
data: votes.json
layers:
  legend:
    labels:
      HIGH: High risk
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "datamap.yaml"), []byte(yaml), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"defaultFill": "#ABDDA4", "HIGH": "#FF0000", "lowKey": "#0000FF"}, cfg.Map.Fills)
	assert.Equal(t, map[string]string{"Glow": "url(#glow)"}, cfg.Map.Filters)
	assert.Equal(t, map[string]string{"HIGH": "High risk"}, cfg.Layers.Legend.Labels)

	m, err := cfg.Build(context.Background())
	require.NoError(t, err)
	subunits := m.Subunits()
	require.Len(t, subunits, 1)
	assert.Equal(t, "#FF0000", subunits[0].Style("fill"))

	require.NoError(t, m.Bubbles([]any{
		map[string]any{"latitude": 5.0, "longitude": 5.0, "radius": 4.0, "filterKey": "Glow"},
	}, nil))
	bubbles := m.Layer("bubbles").SelectClass("datamaps-bubble")
	require.Len(t, bubbles, 1)
	filter, _ := bubbles[0].Attr("filter")
	assert.Equal(t, "url(#glow)", filter)

	terms := m.Element().Node.Find(func(n *svg.Element) bool { return n.Tag == "dt" })
	var labels []string
	for _, dt := range terms {
		labels = append(labels, dt.Text)
	}
	assert.Equal(t, []string{"High risk", "lowKey: "}, labels)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "datamap.yaml"), []byte("server:\n  port: 9090\n"), 0o644))
	t.Setenv("DATAMAP_SERVER_PORT", "7070")
	t.Setenv("DATAMAP_MAP_SCOPE", "usa")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "usa", cfg.Map.Scope)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DATAMAP_LOG_LEVEL=warn\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv("DATAMAP_LOG_LEVEL") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadExplicitPath(t *testing.T) {
	dir := t.TempDir()
	chdir(t, t.TempDir())

	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("map:\n  width: 400\n"), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 400.0, cfg.Map.Width)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateColor(t *testing.T) {
	tests := []struct {
		in string
		ok bool
	}{
		{"#ABDDA4", true},
		{"#abc", true},
		{"rgba(250, 15, 160, 0.2)", true},
		{"hsl(0, 100%, 50%)", true},
		{"steelblue", true},
		{"", false},
		{"#GGGGGG", false},
		{"calc(1px)", false},
		{"not a colour", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			err := ValidateColor(tt.in)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, eris.Is(err, ErrBadColor), "got %v", err)
			}
		})
	}
}

func baseConfig() *Config {
	return &Config{Map: MapConfig{
		Scope:      "world",
		Projection: "equirectangular",
		Width:      960,
	}}
}

func TestOptionsValidation(t *testing.T) {
	cfg := baseConfig()
	cfg.Map.Projection = "winkel"
	_, err := cfg.Options()
	assert.True(t, eris.Is(err, projection.ErrUnknownProjection))

	cfg = baseConfig()
	cfg.Map.Fills = map[string]string{"bad": "#XYZ"}
	_, err = cfg.Options()
	assert.True(t, eris.Is(err, ErrBadColor))

	cfg = baseConfig()
	cfg.Map.Arcs.StrokeColor = "#12"
	_, err = cfg.Options()
	assert.True(t, eris.Is(err, ErrBadColor))

	cfg = baseConfig()
	cfg.Map.Bubbles.PopupTemplate = "{{.Data"
	_, err = cfg.Options()
	assert.Error(t, err)
}

func TestOptionsDefaults(t *testing.T) {
	opts, err := baseConfig().Options()
	require.NoError(t, err)
	assert.Equal(t, [2]float64{97, 0}, opts.ProjectionConfig.Rotation)
	assert.NotNil(t, opts.Fetcher)
	assert.False(t, opts.Geography.HideAntarctica.IsSet())
	assert.Nil(t, opts.Geography.PopupTemplate)
}

func TestOptionsDataFile(t *testing.T) {
	cfg := baseConfig()
	cfg.Data = "votes.CSV"
	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, "votes.CSV", opts.DataURL)
	assert.Equal(t, "csv", opts.DataType)

	cfg.Map.DataURL = "https://example.com/data.json"
	opts, err = cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/data.json", opts.DataURL)
}

const squareGeoJSON = `{"type":"FeatureCollection","features":[
{"type":"Feature","properties":{"iso_a3":"SQR","name":"Square"},
 "geometry":{"type":"Polygon","coordinates":[[[0,0],[10,0],[10,10],[0,10],[0,0]]]}}]}`

func TestOptionsTopology(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "square.geojson")
	require.NoError(t, os.WriteFile(path, []byte(squareGeoJSON), 0o644))

	cfg := baseConfig()
	cfg.Topology = path
	opts, err := cfg.Options()
	require.NoError(t, err)
	require.Len(t, opts.Regions, 1)
	assert.Equal(t, "SQR", opts.Regions[0].ID)

	cfg.Topology = "https://example.com/world.topo.json"
	opts, err = cfg.Options()
	require.NoError(t, err)
	assert.Nil(t, opts.Regions)
	assert.Equal(t, "https://example.com/world.topo.json", opts.Geography.DataURL)
}

func TestRecordTemplate(t *testing.T) {
	cfg := baseConfig()
	cfg.Map.Bubbles.PopupTemplate = `{{.Data.name}} ({{.Data.votes}})`
	opts, err := cfg.Options()
	require.NoError(t, err)
	html, err := opts.Bubbles.PopupTemplate(geom.Record{"name": "<Austin>", "votes": 12.0})
	require.NoError(t, err)
	assert.Equal(t, "&lt;Austin&gt; (12)", html)
}

func TestDrawLayers(t *testing.T) {
	dir := t.TempDir()
	topo := filepath.Join(dir, "square.geojson")
	require.NoError(t, os.WriteFile(topo, []byte(squareGeoJSON), 0o644))
	bubbles := filepath.Join(dir, "bubbles.csv")
	require.NoError(t, os.WriteFile(bubbles, []byte("name,lat,lon,radius\nA,5,5,4\nB,6,6,3\n"), 0o644))
	arcs := filepath.Join(dir, "arcs.json")
	require.NoError(t, os.WriteFile(arcs, []byte(`[{"origin":{"latitude":1,"longitude":1},"destination":{"latitude":8,"longitude":8}}]`), 0o644))

	cfg := baseConfig()
	cfg.Map.Scope = "square"
	cfg.Topology = topo
	cfg.Layers = LayersConfig{
		Bubbles:   bubbles,
		Arcs:      arcs,
		Graticule: true,
		Labels:    &LabelsConfig{Color: "#333", FontSize: 9},
		Legend:    &LegendConfig{Title: "Key", DefaultFillName: "Other"},
	}
	opts, err := cfg.Options()
	require.NoError(t, err)

	m, err := datamap.New(context.Background(), datamap.NewElement("map", 960, 500), opts)
	require.NoError(t, err)
	require.NoError(t, cfg.DrawLayers(m))

	assert.Len(t, m.Layer("bubbles").SelectClass("datamaps-bubble"), 2)
	assert.Len(t, m.Layer("arc").SelectClass("datamaps-arc"), 1)
	assert.NotNil(t, m.Layer("graticule"))
	label := m.Layer("labels").Find(func(n *svg.Element) bool { return n.Tag == "text" })
	require.Len(t, label, 1)
	assert.Equal(t, "#333", label[0].Style("fill"))
	assert.Equal(t, "9px", label[0].Style("font-size"))
	assert.NotNil(t, m.Element().Node.First("datamaps-legend"))
}

func TestBuild(t *testing.T) {
	dir := t.TempDir()
	topo := filepath.Join(dir, "square.geojson")
	require.NoError(t, os.WriteFile(topo, []byte(squareGeoJSON), 0o644))

	cfg := baseConfig()
	cfg.Map.Scope = "square"
	cfg.Topology = topo
	cfg.Layers.Graticule = true
	cfg.Layers.Legend = &LegendConfig{Title: "Key"}

	m, err := cfg.Build(context.Background())
	require.NoError(t, err)
	assert.Len(t, m.Subunits(), 1)
	assert.NotNil(t, m.Layer("graticule"))
	assert.InDelta(t, 960*0.5625, m.Element().Height, 0.001)

	assert.Nil(t, cfg.LabelOptions())
	assert.Equal(t, geom.Record{"legendTitle": "Key"}, cfg.LegendOptions())

	cfg.Map.Projection = "peirce"
	_, err = cfg.Build(context.Background())
	assert.Error(t, err)
}

func TestSeed(t *testing.T) {
	a, b := baseConfig(), baseConfig()
	assert.Equal(t, a.Seed(), b.Seed())
	b.Map.Fills = map[string]string{"high": "#F00"}
	assert.NotEqual(t, a.Seed(), b.Seed())
}

func TestInitLogger(t *testing.T) {
	prev := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(prev) })

	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.True(t, zap.L().Core().Enabled(zap.DebugLevel))

	require.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "json"}))
	assert.False(t, zap.L().Core().Enabled(zap.InfoLevel))

	assert.Error(t, InitLogger(LogConfig{Level: "loud"}))

	path := filepath.Join(t.TempDir(), "datamap.log")
	require.NoError(t, Quiet(LogConfig{Level: "info", File: path}))
	zap.L().Info("to file")
	_ = zap.L().Sync()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "to file")

	require.NoError(t, Quiet(LogConfig{}))
	assert.False(t, zap.L().Core().Enabled(zap.ErrorLevel))
}
