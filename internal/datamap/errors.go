package datamap

import "github.com/rotisserie/eris"

var (
	// ErrNotList is returned when bubble or arc data is not a list of records.
	ErrNotList = eris.New("datamap: data must be a list of records")
	// ErrNoElement is returned when the map is constructed without a host element.
	ErrNoElement = eris.New("datamap: no host element")
	// ErrUnknownPlugin is returned by Call for names that were never registered.
	ErrUnknownPlugin = eris.New("datamap: unknown plugin")
	// ErrPluginExists is returned when a plugin name is registered twice.
	ErrPluginExists = eris.New("datamap: plugin already registered")
	// ErrNotResponsive is returned by Resize on fixed-size maps.
	ErrNotResponsive = eris.New("datamap: map is not responsive")
	// ErrNoTopology is returned when a scope has neither bundled, injected nor
	// remote boundaries.
	ErrNoTopology = eris.New("datamap: no topology for scope")
)
