package monitors

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Geometry is a monitor rectangle in root-window pixels.
type Geometry struct {
	Width  int
	Height int
	X      int
	Y      int
}

// Size renders the geometry as WxH.
func (g Geometry) Size() string {
	return fmt.Sprintf("%dx%d", g.Width, g.Height)
}

// Entry is one selectable capture target.
type Entry struct {
	Name     string `json:"name"`
	Geometry string `json:"geometry"`
}

var (
	// 1920/527x1080/296+0+0
	listMonitorsPattern = regexp.MustCompile(`(\d+)/\d+x(\d+)/\d+\+(\d+)\+(\d+)`)
	// head #0: 1920x1080 @ 0,0
	xineramaHeadPattern = regexp.MustCompile(`head #(\d+): (\d+)x(\d+) @ (\d+),(\d+)`)
)

// ParseGeometry extracts a rectangle from the xrandr --listmonitors geometry
// token (W/mmWxH/mmH+X+Y).
func ParseGeometry(token string) (Geometry, bool) {
	m := listMonitorsPattern.FindStringSubmatch(token)
	if m == nil {
		return Geometry{}, false
	}
	return geometryFromStrings(m[1], m[2], m[3], m[4])
}

// ParseXineramaHead extracts the head number and rectangle from an xdpyinfo
// line of the form "head #N: WxH @ X,Y".
func ParseXineramaHead(line string) (int, Geometry, bool) {
	m := xineramaHeadPattern.FindStringSubmatch(line)
	if m == nil {
		return 0, Geometry{}, false
	}
	head, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, Geometry{}, false
	}
	geo, ok := geometryFromStrings(m[2], m[3], m[4], m[5])
	if !ok {
		return 0, Geometry{}, false
	}
	return head, geo, true
}

func geometryFromStrings(w, h, x, y string) (Geometry, bool) {
	values := make([]int, 0, 4)
	for _, raw := range []string{w, h, x, y} {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return Geometry{}, false
		}
		values = append(values, v)
	}
	return Geometry{Width: values[0], Height: values[1], X: values[2], Y: values[3]}, true
}

// GeometrySpec builds the capture input for a monitor origin on display.
func GeometrySpec(display string, g Geometry) string {
	return fmt.Sprintf("%s+%d,%d", display, g.X, g.Y)
}

func displayName(name string, g Geometry) string {
	return fmt.Sprintf("%s (%s) at +%d,%d", name, g.Size(), g.X, g.Y)
}

// ParseListMonitors converts `xrandr --listmonitors` output into entries.
// The header line and anything that does not carry a geometry token are
// skipped.
func ParseListMonitors(output, display string) []Entry {
	var entries []Entry
	for _, line := range strings.Split(output, "\n") {
		parts := strings.Fields(line)
		if len(parts) < 3 || !strings.HasSuffix(parts[0], ":") {
			continue
		}
		geo, ok := ParseGeometry(parts[2])
		if !ok {
			continue
		}
		name := strings.TrimLeft(parts[1], "+*")
		if name == "" {
			continue
		}
		entries = append(entries, Entry{
			Name:     displayName(name, geo),
			Geometry: GeometrySpec(display, geo),
		})
	}
	return entries
}

// ParseXinerama converts `xdpyinfo -ext XINERAMA` output into entries.
func ParseXinerama(output, display string) []Entry {
	var entries []Entry
	for _, line := range strings.Split(output, "\n") {
		head, geo, ok := ParseXineramaHead(line)
		if !ok {
			continue
		}
		entries = append(entries, Entry{
			Name:     displayName(fmt.Sprintf("Screen %d", head), geo),
			Geometry: GeometrySpec(display, geo),
		})
	}
	return entries
}
