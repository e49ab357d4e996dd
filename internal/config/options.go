package config

import (
	"bytes"
	"html/template"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"datamap/internal/datamap"
	"datamap/internal/geom"
	"datamap/internal/projection"
)

// ErrBadColor is returned for fill or style colours that do not parse.
var ErrBadColor = eris.New("config: invalid colour")

// MapConfig mirrors datamap.Options in snake case.
type MapConfig struct {
	Scope       string            `yaml:"scope" mapstructure:"scope"`
	Responsive  bool              `yaml:"responsive" mapstructure:"responsive"`
	AspectRatio float64           `yaml:"aspect_ratio" mapstructure:"aspect_ratio"`
	Width       float64           `yaml:"width" mapstructure:"width"`
	Height      float64           `yaml:"height" mapstructure:"height"`
	Projection  string            `yaml:"projection" mapstructure:"projection"`
	DataType    string            `yaml:"data_type" mapstructure:"data_type"`
	DataURL     string            `yaml:"data_url" mapstructure:"data_url"`
	ZoomScale   []float64         `yaml:"zoom_scale" mapstructure:"zoom_scale"`
	Fills       map[string]string `yaml:"fills" mapstructure:"fills"`
	Filters     map[string]string `yaml:"filters" mapstructure:"filters"`

	DisableDefaultStyles bool `yaml:"disable_default_styles" mapstructure:"disable_default_styles"`

	Geography        GeographyConfig  `yaml:"geography_config" mapstructure:"geography_config"`
	ProjectionConfig ProjectionConfig `yaml:"projection_config" mapstructure:"projection_config"`
	Bubbles          BubblesConfig    `yaml:"bubbles_config" mapstructure:"bubbles_config"`
	Arcs             ArcConfig        `yaml:"arc_config" mapstructure:"arc_config"`
}

// GeographyConfig leaves unset values nil so the map defaults apply.
type GeographyConfig struct {
	DataURL             string `yaml:"data_url" mapstructure:"data_url"`
	HideAntarctica      *bool  `yaml:"hide_antarctica" mapstructure:"hide_antarctica"`
	HideHawaiiAndAlaska bool   `yaml:"hide_hawaii_and_alaska" mapstructure:"hide_hawaii_and_alaska"`

	BorderWidth   *float64 `yaml:"border_width" mapstructure:"border_width"`
	BorderOpacity *float64 `yaml:"border_opacity" mapstructure:"border_opacity"`
	BorderColor   string   `yaml:"border_color" mapstructure:"border_color"`

	// PopupTemplate is an html/template body executed with .Region and .Data.
	PopupTemplate string `yaml:"popup_template" mapstructure:"popup_template"`
	PopupOnHover  *bool  `yaml:"popup_on_hover" mapstructure:"popup_on_hover"`

	HighlightOnHover       *bool    `yaml:"highlight_on_hover" mapstructure:"highlight_on_hover"`
	HighlightFillColor     string   `yaml:"highlight_fill_color" mapstructure:"highlight_fill_color"`
	HighlightBorderColor   string   `yaml:"highlight_border_color" mapstructure:"highlight_border_color"`
	HighlightBorderWidth   *float64 `yaml:"highlight_border_width" mapstructure:"highlight_border_width"`
	HighlightBorderOpacity *float64 `yaml:"highlight_border_opacity" mapstructure:"highlight_border_opacity"`
	HighlightFillOpacity   *float64 `yaml:"highlight_fill_opacity" mapstructure:"highlight_fill_opacity"`
}

type ProjectionConfig struct {
	Rotation []float64 `yaml:"rotation" mapstructure:"rotation"`
}

type BubblesConfig struct {
	BorderWidth   *float64 `yaml:"border_width" mapstructure:"border_width"`
	BorderOpacity *float64 `yaml:"border_opacity" mapstructure:"border_opacity"`
	BorderColor   string   `yaml:"border_color" mapstructure:"border_color"`
	Radius        *float64 `yaml:"radius" mapstructure:"radius"`
	FillOpacity   *float64 `yaml:"fill_opacity" mapstructure:"fill_opacity"`
	FilterKey     string   `yaml:"filter_key" mapstructure:"filter_key"`

	// PopupTemplate is an html/template body executed with .Data.
	PopupTemplate string `yaml:"popup_template" mapstructure:"popup_template"`
	PopupOnHover  *bool  `yaml:"popup_on_hover" mapstructure:"popup_on_hover"`

	HighlightOnHover       *bool    `yaml:"highlight_on_hover" mapstructure:"highlight_on_hover"`
	HighlightFillColor     string   `yaml:"highlight_fill_color" mapstructure:"highlight_fill_color"`
	HighlightBorderColor   string   `yaml:"highlight_border_color" mapstructure:"highlight_border_color"`
	HighlightBorderWidth   *float64 `yaml:"highlight_border_width" mapstructure:"highlight_border_width"`
	HighlightBorderOpacity *float64 `yaml:"highlight_border_opacity" mapstructure:"highlight_border_opacity"`
	HighlightFillOpacity   *float64 `yaml:"highlight_fill_opacity" mapstructure:"highlight_fill_opacity"`

	Animate     *bool `yaml:"animate" mapstructure:"animate"`
	ExitDelayMS int   `yaml:"exit_delay" mapstructure:"exit_delay"`
	// KeyField identifies bubbles across updates by one record field instead
	// of the whole record.
	KeyField string `yaml:"key_field" mapstructure:"key_field"`
}

type ArcConfig struct {
	StrokeColor    string   `yaml:"stroke_color" mapstructure:"stroke_color"`
	StrokeWidth    *float64 `yaml:"stroke_width" mapstructure:"stroke_width"`
	ArcSharpness   *float64 `yaml:"arc_sharpness" mapstructure:"arc_sharpness"`
	AnimationSpeed *float64 `yaml:"animation_speed" mapstructure:"animation_speed"`
	GreatArc       bool     `yaml:"great_arc" mapstructure:"great_arc"`
	PopupOnHover   bool     `yaml:"popup_on_hover" mapstructure:"popup_on_hover"`
	PopupTemplate  string   `yaml:"popup_template" mapstructure:"popup_template"`
}

// ValidateColor accepts hex colours that go-colorful parses, CSS functional
// notations (rgb, rgba, hsl, hsla) and bare colour names.
func ValidateColor(s string) error {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return eris.Wrap(ErrBadColor, "empty")
	case strings.HasPrefix(s, "#"):
		if _, err := colorful.Hex(s); err != nil {
			return eris.Wrapf(ErrBadColor, "%q", s)
		}
		return nil
	case strings.HasSuffix(s, ")"):
		for _, fn := range []string{"rgb(", "rgba(", "hsl(", "hsla("} {
			if strings.HasPrefix(strings.ToLower(s), fn) {
				return nil
			}
		}
		return eris.Wrapf(ErrBadColor, "%q", s)
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return eris.Wrapf(ErrBadColor, "%q", s)
		}
	}
	return nil
}

// Options converts the map section into datamap options. Fill and style
// colours and the projection name are validated here so a bad config fails
// before anything is drawn.
func (c *Config) Options() (datamap.Options, error) {
	mc := c.Map
	if _, err := projection.ParseKind(mc.Projection); err != nil {
		return datamap.Options{}, err
	}

	o := datamap.Options{
		Scope:                mc.Scope,
		Responsive:           mc.Responsive,
		AspectRatio:          mc.AspectRatio,
		Width:                mc.Width,
		Height:               mc.Height,
		Projection:           mc.Projection,
		DataType:             mc.DataType,
		DataURL:              mc.DataURL,
		Filters:              mc.Filters,
		DisableDefaultStyles: mc.DisableDefaultStyles,
	}
	if len(mc.ZoomScale) == 2 {
		o.ZoomScale = [2]float64{mc.ZoomScale[0], mc.ZoomScale[1]}
	}
	if len(mc.ProjectionConfig.Rotation) == 2 {
		o.ProjectionConfig.Rotation = [2]float64{mc.ProjectionConfig.Rotation[0], mc.ProjectionConfig.Rotation[1]}
	} else {
		o.ProjectionConfig = datamap.DefaultOptions().ProjectionConfig
	}

	// Fill keys keep their file spelling; defaultFill matches in any case.
	o.Fills = datamap.Fills{}
	for k, v := range mc.Fills {
		if err := ValidateColor(v); err != nil {
			return datamap.Options{}, eris.Wrapf(err, "fill %s", k)
		}
		if strings.EqualFold(k, datamap.DefaultFillKey) {
			k = datamap.DefaultFillKey
		}
		o.Fills[k] = v
	}

	if c.Data != "" && o.DataURL == "" {
		o.DataURL = c.Data
		if strings.EqualFold(filepath.Ext(c.Data), ".csv") {
			o.DataType = "csv"
		}
	}

	if err := c.topology(&o); err != nil {
		return datamap.Options{}, err
	}
	if err := geography(mc.Geography, &o.Geography); err != nil {
		return datamap.Options{}, err
	}
	if err := bubbles(mc.Bubbles, &o.Bubbles); err != nil {
		return datamap.Options{}, err
	}
	if err := arcs(mc.Arcs, &o.Arcs); err != nil {
		return datamap.Options{}, err
	}

	o.Fetcher = datamap.NewHTTPFetcher(datamap.FetchOptions{
		UserAgent:  c.Fetch.UserAgent,
		Timeout:    c.Fetch.Timeout,
		MaxRetries: c.Fetch.MaxRetries,
		Backoff:    c.Fetch.Backoff,
		RateLimit:  rate.Limit(c.Fetch.RateLimit),
	})
	return o, nil
}

// topology points the map at the configured boundaries: URLs are fetched by
// the map, local files are decoded here.
func (c *Config) topology(o *datamap.Options) error {
	switch {
	case c.Map.Geography.DataURL != "":
		o.Geography.DataURL = c.Map.Geography.DataURL
		return nil
	case c.Topology == "":
		return nil
	}
	if u, err := url.Parse(c.Topology); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		o.Geography.DataURL = c.Topology
		return nil
	}
	regions, err := geom.LoadRegionsFile(c.Topology, c.Map.Scope)
	if err != nil {
		return eris.Wrap(err, "config: load topology")
	}
	o.Regions = regions
	return nil
}

func setColor(p *datamap.Prop[string], s, name string) error {
	if s == "" {
		return nil
	}
	if err := ValidateColor(s); err != nil {
		return eris.Wrap(err, name)
	}
	*p = datamap.Fixed(s)
	return nil
}

func setNum(p *datamap.Prop[float64], v *float64) {
	if v != nil {
		*p = datamap.Fixed(*v)
	}
}

func setFlag(p *datamap.Prop[bool], v *bool) {
	if v != nil {
		*p = datamap.Fixed(*v)
	}
}

func geography(in GeographyConfig, g *datamap.GeographyConfig) error {
	setFlag(&g.HideAntarctica, in.HideAntarctica)
	g.HideHawaiiAndAlaska = in.HideHawaiiAndAlaska
	setNum(&g.BorderWidth, in.BorderWidth)
	setNum(&g.BorderOpacity, in.BorderOpacity)
	setFlag(&g.PopupOnHover, in.PopupOnHover)
	setFlag(&g.HighlightOnHover, in.HighlightOnHover)
	setNum(&g.HighlightBorderWidth, in.HighlightBorderWidth)
	setNum(&g.HighlightBorderOpacity, in.HighlightBorderOpacity)
	setNum(&g.HighlightFillOpacity, in.HighlightFillOpacity)
	if err := setColor(&g.BorderColor, in.BorderColor, "border_color"); err != nil {
		return err
	}
	if err := setColor(&g.HighlightFillColor, in.HighlightFillColor, "highlight_fill_color"); err != nil {
		return err
	}
	if err := setColor(&g.HighlightBorderColor, in.HighlightBorderColor, "highlight_border_color"); err != nil {
		return err
	}
	if in.PopupTemplate != "" {
		t, err := template.New("geography").Parse(in.PopupTemplate)
		if err != nil {
			return eris.Wrap(err, "config: geography popup template")
		}
		g.PopupTemplate = RegionTemplate(t)
	}
	return nil
}

func bubbles(in BubblesConfig, b *datamap.BubblesConfig) error {
	setNum(&b.BorderWidth, in.BorderWidth)
	setNum(&b.BorderOpacity, in.BorderOpacity)
	setNum(&b.Radius, in.Radius)
	setNum(&b.FillOpacity, in.FillOpacity)
	setFlag(&b.PopupOnHover, in.PopupOnHover)
	setFlag(&b.HighlightOnHover, in.HighlightOnHover)
	setFlag(&b.Animate, in.Animate)
	setNum(&b.HighlightBorderWidth, in.HighlightBorderWidth)
	setNum(&b.HighlightBorderOpacity, in.HighlightBorderOpacity)
	setNum(&b.HighlightFillOpacity, in.HighlightFillOpacity)
	if in.FilterKey != "" {
		b.FilterKey = datamap.Fixed(in.FilterKey)
	}
	if err := setColor(&b.BorderColor, in.BorderColor, "border_color"); err != nil {
		return err
	}
	if err := setColor(&b.HighlightFillColor, in.HighlightFillColor, "highlight_fill_color"); err != nil {
		return err
	}
	if err := setColor(&b.HighlightBorderColor, in.HighlightBorderColor, "highlight_border_color"); err != nil {
		return err
	}
	if in.ExitDelayMS > 0 {
		b.ExitDelay = time.Duration(in.ExitDelayMS) * time.Millisecond
	}
	if in.KeyField != "" {
		field := in.KeyField
		b.Key = func(rec geom.Record) string {
			s, _ := rec.GetString(field)
			return s
		}
	}
	if in.PopupTemplate != "" {
		t, err := template.New("bubbles").Parse(in.PopupTemplate)
		if err != nil {
			return eris.Wrap(err, "config: bubble popup template")
		}
		b.PopupTemplate = RecordTemplate(t)
	}
	return nil
}

func arcs(in ArcConfig, a *datamap.ArcConfig) error {
	setNum(&a.StrokeWidth, in.StrokeWidth)
	setNum(&a.ArcSharpness, in.ArcSharpness)
	setNum(&a.AnimationSpeed, in.AnimationSpeed)
	a.GreatArc = in.GreatArc
	a.PopupOnHover = in.PopupOnHover
	if err := setColor(&a.StrokeColor, in.StrokeColor, "stroke_color"); err != nil {
		return err
	}
	if in.PopupTemplate != "" {
		t, err := template.New("arcs").Parse(in.PopupTemplate)
		if err != nil {
			return eris.Wrap(err, "config: arc popup template")
		}
		a.PopupTemplate = RecordTemplate(t)
	}
	return nil
}

// RegionTemplate adapts an html/template to a region popup. The template
// sees .Region (ID, Name, Properties) and .Data.
func RegionTemplate(t *template.Template) datamap.RegionTemplate {
	return func(region geom.Region, rec geom.Record) (string, error) {
		var buf bytes.Buffer
		err := t.Execute(&buf, struct {
			Region geom.Region
			Data   geom.Record
		}{region, rec})
		if err != nil {
			return "", eris.Wrap(err, "execute popup template")
		}
		return buf.String(), nil
	}
}

// RecordTemplate adapts an html/template to a bubble or arc popup. The
// template sees .Data.
func RecordTemplate(t *template.Template) datamap.RecordTemplate {
	return func(rec geom.Record) (string, error) {
		var buf bytes.Buffer
		if err := t.Execute(&buf, struct{ Data geom.Record }{rec}); err != nil {
			return "", eris.Wrap(err, "execute popup template")
		}
		return buf.String(), nil
	}
}
