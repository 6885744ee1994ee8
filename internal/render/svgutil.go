package render

import (
	"bytes"
	"strings"
)

func sanitizeSVG(svg []byte) []byte {
	fixed := bytes.ReplaceAll(svg, []byte("fill:000000"), []byte("fill:#000000"))
	fixed = bytes.ReplaceAll(fixed, []byte("fill: #"), []byte("fill:#"))
	fixed = bytes.ReplaceAll(fixed, []byte("stroke: #"), []byte("stroke:#"))
	return fixed
}

// paint fills the {{fill}} / {{stroke}} / {{detail}} slots of a piece template.
func paint(tmpl, fill, stroke, detail string) []byte {
	r := strings.NewReplacer("{{fill}}", fill, "{{stroke}}", stroke, "{{detail}}", detail)
	return []byte(r.Replace(tmpl))
}
