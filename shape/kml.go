package shape

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// placemark is one KML Placemark. Unqualified tags match the element's local
// name, so both namespaced and bare KML decode into it.
type placemark struct {
	Name        string   `xml:"name"`
	Description string   `xml:"description"`
	Point       *coords  `xml:"Point"`
	LineString  *coords  `xml:"LineString"`
	Polygon     *polygon `xml:"Polygon"`
}

type coords struct {
	Coordinates string `xml:"coordinates"`
}

type polygon struct {
	Outer  string   `xml:"outerBoundaryIs>LinearRing>coordinates"`
	Inners []string `xml:"innerBoundaryIs>LinearRing>coordinates"`
}

// placemarks walks the document for Placemark elements at any nesting depth
// (Document, Folder, or bare). The portal's exports are rough, so the
// decoder runs non-strict with a permissive charset reader.
func placemarks(data []byte) ([]placemark, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	dec.CharsetReader = charsetReader

	var out []placemark
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("shape: parse KML: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "Placemark" {
			continue
		}
		var pm placemark
		if err := dec.DecodeElement(&pm, &se); err != nil {
			return nil, fmt.Errorf("shape: decode placemark: %w", err)
		}
		out = append(out, pm)
	}
	return out, nil
}

// charsetReader accepts the latin encodings the portal occasionally serves.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(charset) {
	case "", "utf-8", "us-ascii":
		return input, nil
	case "iso-8859-1", "latin1", "windows-1252":
		return latin1Reader{r: input}, nil
	}
	return nil, fmt.Errorf("unsupported charset %q", charset)
}

type latin1Reader struct {
	r io.Reader
}

func (l latin1Reader) Read(p []byte) (int, error) {
	// Read at most half the buffer: each latin-1 byte can expand to two
	// UTF-8 bytes.
	buf := make([]byte, len(p)/2)
	n, err := l.r.Read(buf)
	j := 0
	for _, b := range buf[:n] {
		if b < 0x80 {
			p[j] = b
			j++
		} else {
			p[j] = 0xc0 | b>>6
			p[j+1] = 0x80 | b&0x3f
			j += 2
		}
	}
	return j, err
}

// geometry converts the placemark's first geometry into an orb value, or nil
// when nothing usable is present.
func (pm placemark) geometry() orb.Geometry {
	if pm.Point != nil {
		if pts := parseCoordinates(pm.Point.Coordinates); len(pts) > 0 {
			return pts[0]
		}
	}
	if pm.LineString != nil {
		if pts := parseCoordinates(pm.LineString.Coordinates); len(pts) >= 2 {
			return orb.LineString(pts)
		}
	}
	if pm.Polygon != nil {
		outer := closeRing(parseCoordinates(pm.Polygon.Outer))
		if len(outer) >= 4 {
			rings := []orb.Ring{orb.Ring(outer)}
			for _, inner := range pm.Polygon.Inners {
				if hole := closeRing(parseCoordinates(inner)); len(hole) >= 4 {
					rings = append(rings, orb.Ring(hole))
				}
			}
			return orb.Polygon(rings)
		}
	}
	return nil
}

// parseCoordinates parses a KML coordinate string: whitespace-separated
// "lon,lat[,alt]" tuples. Altitude is discarded; malformed tuples are
// skipped.
func parseCoordinates(s string) []orb.Point {
	var pts []orb.Point
	for _, tuple := range strings.Fields(s) {
		parts := strings.Split(tuple, ",")
		if len(parts) < 2 {
			continue
		}
		lon, err1 := strconv.ParseFloat(parts[0], 64)
		lat, err2 := strconv.ParseFloat(parts[1], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		pts = append(pts, orb.Point{lon, lat})
	}
	return pts
}

// closeRing appends the first point when the ring isn't closed.
func closeRing(pts []orb.Point) []orb.Point {
	if len(pts) >= 3 && pts[0] != pts[len(pts)-1] {
		pts = append(pts, pts[0])
	}
	return pts
}
