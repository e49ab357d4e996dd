package datamap

import "datamap/internal/svg"

// styleBlock is the id of the shared stylesheet in svg.Styles.
const styleBlock = "datamaps-style-block"

const defaultCSS = `.datamap path.datamaps-graticule { fill: none; stroke: #777; stroke-width: 0.5px; stroke-opacity: .5; pointer-events: none; } ` +
	`.datamap .labels {pointer-events: none;} ` +
	`.datamap path:not(.datamaps-arc), .datamap circle, .datamap line {stroke: #FFFFFF; vector-effect: non-scaling-stroke; stroke-width: 1px;} ` +
	`.datamaps-legend dt, .datamaps-legend dd { float: left; margin: 0 3px 0 0;} ` +
	`.datamaps-legend dd {width: 20px; margin-right: 6px; border-radius: 3px;} ` +
	`.datamaps-legend {padding-bottom: 20px; z-index: 1001; position: absolute; left: 4px; font-size: 12px; font-family: "Helvetica Neue", Helvetica, Arial, sans-serif;} ` +
	`.datamaps-hoverover {display: none; font-family: "Helvetica Neue", Helvetica, Arial, sans-serif; } ` +
	`.hoverinfo {padding: 4px; border-radius: 1px; background-color: #FFF; box-shadow: 1px 1px 5px #CCC; font-size: 12px; border: 1px solid #CCC; } ` +
	`.hoverinfo hr {border:1px dotted #CCC; }`

// registerStyles adds the shared stylesheet to the process-wide registry. It
// reports whether this call registered it.
func registerStyles() bool {
	return svg.Styles.Register(styleBlock, defaultCSS)
}
