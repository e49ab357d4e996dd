package datamap

import (
	"encoding/json"
	"html"
	"time"

	"datamap/internal/geom"
	"datamap/internal/projection"
)

// DefaultFillKey names the required entry of the fill table.
const DefaultFillKey = "defaultFill"

// Fills maps symbolic fill keys to CSS colours.
type Fills map[string]string

// Default returns the defaultFill colour.
func (f Fills) Default() string { return f[DefaultFillKey] }

// RegionTemplate renders popup HTML for a region.
type RegionTemplate func(region geom.Region, rec geom.Record) (string, error)

// RecordTemplate renders popup HTML for a bubble or arc record.
type RecordTemplate func(rec geom.Record) (string, error)

// Capabilities are decided by the host rendering the map.
type Capabilities struct {
	// ReorderOnHover moves a hovered shape to the end of its parent so it
	// paints above its neighbours.
	ReorderOnHover Prop[bool]
}

// ProjectionFunc lets callers supply their own projection for a scope.
type ProjectionFunc func(el *Element, opts Options) (projection.Projector, error)

type GeographyConfig struct {
	DataURL             string
	HideAntarctica      Prop[bool]
	HideHawaiiAndAlaska bool

	BorderWidth   Prop[float64]
	BorderOpacity Prop[float64]
	BorderColor   Prop[string]

	PopupTemplate RegionTemplate
	PopupOnHover  Prop[bool]

	HighlightOnHover       Prop[bool]
	HighlightFillColor     Prop[string]
	HighlightBorderColor   Prop[string]
	HighlightBorderWidth   Prop[float64]
	HighlightBorderOpacity Prop[float64]
	HighlightFillOpacity   Prop[float64]
}

type ProjectionConfig struct {
	// Rotation is the [lambda, phi] rotation applied to the globe.
	Rotation [2]float64
}

type BubblesConfig struct {
	BorderWidth   Prop[float64]
	BorderOpacity Prop[float64]
	BorderColor   Prop[string]
	Radius        Prop[float64]
	FillOpacity   Prop[float64]
	FilterKey     Prop[string]

	PopupTemplate RecordTemplate
	PopupOnHover  Prop[bool]

	HighlightOnHover       Prop[bool]
	HighlightFillColor     Prop[string]
	HighlightBorderColor   Prop[string]
	HighlightBorderWidth   Prop[float64]
	HighlightBorderOpacity Prop[float64]
	HighlightFillOpacity   Prop[float64]

	Animate   Prop[bool]
	ExitDelay time.Duration
	// Key identifies a record across calls.
	Key func(geom.Record) string
}

type ArcConfig struct {
	StrokeColor    Prop[string]
	StrokeWidth    Prop[float64]
	ArcSharpness   Prop[float64]
	AnimationSpeed Prop[float64]
	GreatArc       bool

	PopupTemplate RecordTemplate
	PopupOnHover  bool

	Key func(geom.Record) string
}

// Options configure a map. Start from DefaultOptions and override fields.
type Options struct {
	Scope       string
	Responsive  bool
	AspectRatio float64
	Width       float64
	Height      float64
	Projection  string
	// SetProjection replaces the built-in projection setup.
	SetProjection ProjectionFunc
	DataType      string
	DataURL       string
	Data          geom.DataTable
	Done          func(*Map)
	ZoomScale     [2]float64
	Fills         Fills
	Filters       map[string]string

	DisableDefaultStyles bool
	Capabilities         Capabilities

	Geography        GeographyConfig
	ProjectionConfig ProjectionConfig
	Bubbles          BubblesConfig
	Arcs             ArcConfig

	// Regions replaces the bundled boundaries for the scope.
	Regions []geom.Region
	// Fetcher loads remote topology and data URLs.
	Fetcher Fetcher
}

// DefaultOptions returns the built-in configuration.
func DefaultOptions() Options {
	return Options{
		Scope:       "world",
		AspectRatio: 0.5625,
		Projection:  projection.Equirectangular.String(),
		DataType:    "json",
		ZoomScale:   [2]float64{1, 8},
		Fills:       Fills{DefaultFillKey: "#ABDDA4"},
		Filters:     map[string]string{},
		Capabilities: Capabilities{
			ReorderOnHover: Fixed(true),
		},
		Geography:        defaultGeography(),
		ProjectionConfig: ProjectionConfig{Rotation: [2]float64{97, 0}},
		Bubbles:          defaultBubbles(),
		Arcs:             defaultArcs(),
	}
}

func defaultGeography() GeographyConfig {
	return GeographyConfig{
		HideAntarctica:         Fixed(true),
		BorderWidth:            Fixed(1.0),
		BorderOpacity:          Fixed(1.0),
		BorderColor:            Fixed("#FDFDFD"),
		PopupTemplate:          defaultRegionTemplate,
		PopupOnHover:           Fixed(true),
		HighlightOnHover:       Fixed(true),
		HighlightFillColor:     Fixed("#FC8D59"),
		HighlightBorderColor:   Fixed("rgba(250, 15, 160, 0.2)"),
		HighlightBorderWidth:   Fixed(2.0),
		HighlightBorderOpacity: Fixed(1.0),
		HighlightFillOpacity:   Fixed(1.0),
	}
}

func defaultBubbles() BubblesConfig {
	return BubblesConfig{
		BorderWidth:            Fixed(2.0),
		BorderOpacity:          Fixed(1.0),
		BorderColor:            Fixed("#FFFFFF"),
		FillOpacity:            Fixed(0.75),
		PopupTemplate:          defaultBubbleTemplate,
		PopupOnHover:           Fixed(true),
		HighlightOnHover:       Fixed(true),
		HighlightFillColor:     Fixed("#FC8D59"),
		HighlightBorderColor:   Fixed("rgba(250, 15, 160, 0.2)"),
		HighlightBorderWidth:   Fixed(2.0),
		HighlightBorderOpacity: Fixed(1.0),
		HighlightFillOpacity:   Fixed(0.85),
		Animate:                Fixed(true),
		ExitDelay:              100 * time.Millisecond,
		Key:                    recordKey,
	}
}

func defaultArcs() ArcConfig {
	return ArcConfig{
		StrokeColor:    Fixed("#DD1C77"),
		StrokeWidth:    Fixed(1.0),
		ArcSharpness:   Fixed(1.0),
		AnimationSpeed: Fixed(600.0),
		PopupTemplate:  defaultArcTemplate,
		Key:            recordKey,
	}
}

func recordKey(rec geom.Record) string { return rec.JSON() }

func defaultRegionTemplate(region geom.Region, _ geom.Record) (string, error) {
	return `<div class="hoverinfo"><strong>` + html.EscapeString(region.Name) + `</strong></div>`, nil
}

func defaultBubbleTemplate(rec geom.Record) (string, error) {
	name, _ := rec.GetString("name")
	return `<div class="hoverinfo"><strong>` + html.EscapeString(name) + `</strong></div>`, nil
}

func defaultArcTemplate(rec geom.Record) (string, error) {
	origin, err := json.Marshal(rec["origin"])
	if err != nil {
		return "", err
	}
	dest, err := json.Marshal(rec["destination"])
	if err != nil {
		return "", err
	}
	return `<div class="hoverinfo"><strong>Arc</strong><br>Origin: ` + html.EscapeString(string(origin)) +
		`<br>Destination: ` + html.EscapeString(string(dest)) + `</div>`, nil
}

// withDefaults fills unset fields from DefaultOptions. Each sub-config is
// defaulted on its own, so a caller may set one bubble property and keep the
// rest.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Scope == "" {
		o.Scope = d.Scope
	}
	if o.Projection == "" {
		o.Projection = d.Projection
	}
	if o.DataType == "" {
		o.DataType = d.DataType
	}
	if o.ZoomScale == ([2]float64{}) {
		o.ZoomScale = d.ZoomScale
	}
	if o.Width > 0 && o.Height > 0 {
		o.AspectRatio = o.Height / o.Width
	} else if o.AspectRatio <= 0 {
		o.AspectRatio = d.AspectRatio
	}
	fills := Fills{}
	for k, v := range o.Fills {
		fills[k] = v
	}
	if fills[DefaultFillKey] == "" {
		fills[DefaultFillKey] = d.Fills.Default()
	}
	o.Fills = fills
	if o.Filters == nil {
		o.Filters = map[string]string{}
	}
	if o.Data == nil {
		o.Data = geom.DataTable{}
	}
	o.Capabilities.ReorderOnHover = o.Capabilities.ReorderOnHover.Or(d.Capabilities.ReorderOnHover)

	g, dg := &o.Geography, d.Geography
	g.HideAntarctica = g.HideAntarctica.Or(dg.HideAntarctica)
	g.PopupOnHover = g.PopupOnHover.Or(dg.PopupOnHover)
	g.HighlightOnHover = g.HighlightOnHover.Or(dg.HighlightOnHover)
	g.BorderWidth = g.BorderWidth.Or(dg.BorderWidth)
	g.BorderOpacity = g.BorderOpacity.Or(dg.BorderOpacity)
	g.BorderColor = g.BorderColor.Or(dg.BorderColor)
	g.HighlightFillColor = g.HighlightFillColor.Or(dg.HighlightFillColor)
	g.HighlightBorderColor = g.HighlightBorderColor.Or(dg.HighlightBorderColor)
	g.HighlightBorderWidth = g.HighlightBorderWidth.Or(dg.HighlightBorderWidth)
	g.HighlightBorderOpacity = g.HighlightBorderOpacity.Or(dg.HighlightBorderOpacity)
	g.HighlightFillOpacity = g.HighlightFillOpacity.Or(dg.HighlightFillOpacity)
	if g.PopupTemplate == nil {
		g.PopupTemplate = dg.PopupTemplate
	}

	b, db := &o.Bubbles, d.Bubbles
	b.PopupOnHover = b.PopupOnHover.Or(db.PopupOnHover)
	b.HighlightOnHover = b.HighlightOnHover.Or(db.HighlightOnHover)
	b.Animate = b.Animate.Or(db.Animate)
	b.BorderWidth = b.BorderWidth.Or(db.BorderWidth)
	b.BorderOpacity = b.BorderOpacity.Or(db.BorderOpacity)
	b.BorderColor = b.BorderColor.Or(db.BorderColor)
	b.FillOpacity = b.FillOpacity.Or(db.FillOpacity)
	b.HighlightFillColor = b.HighlightFillColor.Or(db.HighlightFillColor)
	b.HighlightBorderColor = b.HighlightBorderColor.Or(db.HighlightBorderColor)
	b.HighlightBorderWidth = b.HighlightBorderWidth.Or(db.HighlightBorderWidth)
	b.HighlightBorderOpacity = b.HighlightBorderOpacity.Or(db.HighlightBorderOpacity)
	b.HighlightFillOpacity = b.HighlightFillOpacity.Or(db.HighlightFillOpacity)
	if b.PopupTemplate == nil {
		b.PopupTemplate = db.PopupTemplate
	}
	if b.Key == nil {
		b.Key = db.Key
	}
	if b.ExitDelay == 0 {
		b.ExitDelay = db.ExitDelay
	}

	a, da := &o.Arcs, d.Arcs
	a.StrokeColor = a.StrokeColor.Or(da.StrokeColor)
	a.StrokeWidth = a.StrokeWidth.Or(da.StrokeWidth)
	a.ArcSharpness = a.ArcSharpness.Or(da.ArcSharpness)
	a.AnimationSpeed = a.AnimationSpeed.Or(da.AnimationSpeed)
	if a.PopupTemplate == nil {
		a.PopupTemplate = da.PopupTemplate
	}
	if a.Key == nil {
		a.Key = da.Key
	}
	return o
}

func overrideFloat(p *Prop[float64], opts geom.Record, key string) {
	if v, ok := convert[float64](recordField(opts, key)); ok {
		*p = Fixed(v)
	}
}

func overrideString(p *Prop[string], opts geom.Record, key string) {
	if v, ok := recordField(opts, key).(string); ok {
		*p = Fixed(v)
	}
}

func overrideFlag(p *Prop[bool], opts geom.Record, key string) {
	if v, ok := convert[bool](recordField(opts, key)); ok {
		*p = Fixed(v)
	}
}

func overrideBool(p *bool, opts geom.Record, key string) {
	if v, ok := convert[bool](recordField(opts, key)); ok {
		*p = v
	}
}

// apply merges call-time options over the configured bubble defaults.
func (c BubblesConfig) apply(opts geom.Record) BubblesConfig {
	overrideFloat(&c.BorderWidth, opts, "borderWidth")
	overrideFloat(&c.BorderOpacity, opts, "borderOpacity")
	overrideString(&c.BorderColor, opts, "borderColor")
	overrideFloat(&c.Radius, opts, "radius")
	overrideFloat(&c.FillOpacity, opts, "fillOpacity")
	overrideString(&c.FilterKey, opts, "filterKey")
	overrideFlag(&c.PopupOnHover, opts, "popupOnHover")
	overrideFlag(&c.HighlightOnHover, opts, "highlightOnHover")
	overrideString(&c.HighlightFillColor, opts, "highlightFillColor")
	overrideString(&c.HighlightBorderColor, opts, "highlightBorderColor")
	overrideFloat(&c.HighlightBorderWidth, opts, "highlightBorderWidth")
	overrideFloat(&c.HighlightBorderOpacity, opts, "highlightBorderOpacity")
	overrideFloat(&c.HighlightFillOpacity, opts, "highlightFillOpacity")
	overrideFlag(&c.Animate, opts, "animate")
	if ms, ok := convert[float64](recordField(opts, "exitDelay")); ok {
		c.ExitDelay = time.Duration(ms) * time.Millisecond
	}
	if t, ok := recordField(opts, "popupTemplate").(RecordTemplate); ok {
		c.PopupTemplate = t
	}
	if k, ok := recordField(opts, "key").(func(geom.Record) string); ok {
		c.Key = k
	}
	return c
}

// apply merges call-time options over the configured arc defaults.
func (c ArcConfig) apply(opts geom.Record) ArcConfig {
	overrideString(&c.StrokeColor, opts, "strokeColor")
	overrideFloat(&c.StrokeWidth, opts, "strokeWidth")
	overrideFloat(&c.ArcSharpness, opts, "arcSharpness")
	overrideFloat(&c.AnimationSpeed, opts, "animationSpeed")
	overrideBool(&c.GreatArc, opts, "greatArc")
	overrideBool(&c.PopupOnHover, opts, "popupOnHover")
	if t, ok := recordField(opts, "popupTemplate").(RecordTemplate); ok {
		c.PopupTemplate = t
	}
	if k, ok := recordField(opts, "key").(func(geom.Record) string); ok {
		c.Key = k
	}
	return c
}
