package geom

import (
	"encoding/xml"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

type kmlPoint struct {
	Coordinates string `xml:"coordinates"`
}

type kmlPlacemark struct {
	Name        string    `xml:"name"`
	Description string    `xml:"description"`
	Point       *kmlPoint `xml:"Point"`
}

type kmlFolder struct {
	Placemarks []kmlPlacemark `xml:"Placemark"`
	Folders    []kmlFolder    `xml:"Folder"`
}

type kmlDoc struct {
	Placemarks []kmlPlacemark `xml:"Placemark"`
	Document   *kmlFolder     `xml:"Document"`
	Folders    []kmlFolder    `xml:"Folder"`
}

// LoadPointsKML extracts bubble records from Placemark > Point elements.
func LoadPointsKML(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	return ParsePointsKML(f)
}

// ParsePointsKML reads placemarks as bubble records carrying name,
// description, latitude and longitude. KML coordinates are "lon,lat[,alt]";
// altitude is ignored and only the first tuple of a Point is used.
func ParsePointsKML(r io.Reader) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "read kml")
	}
	var doc kmlDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "decode kml")
	}
	placemarks := doc.Placemarks
	var walk func(f kmlFolder)
	walk = func(f kmlFolder) {
		placemarks = append(placemarks, f.Placemarks...)
		for _, sub := range f.Folders {
			walk(sub)
		}
	}
	if doc.Document != nil {
		walk(*doc.Document)
	}
	for _, f := range doc.Folders {
		walk(f)
	}

	var out []Record
	for _, pm := range placemarks {
		if pm.Point == nil {
			continue
		}
		parts := strings.Fields(pm.Point.Coordinates)
		if len(parts) == 0 {
			continue
		}
		vals := strings.Split(parts[0], ",")
		if len(vals) < 2 {
			continue
		}
		lon, err1 := strconv.ParseFloat(strings.TrimSpace(vals[0]), 64)
		lat, err2 := strconv.ParseFloat(strings.TrimSpace(vals[1]), 64)
		if err1 != nil || err2 != nil {
			continue
		}
		rec := Record{"latitude": lat, "longitude": lon}
		if name := strings.TrimSpace(pm.Name); name != "" {
			rec["name"] = name
		}
		if desc := strings.TrimSpace(pm.Description); desc != "" {
			rec["description"] = desc
		}
		out = append(out, rec)
	}
	if len(out) == 0 {
		return nil, eris.New("kml: no points found")
	}
	return out, nil
}
