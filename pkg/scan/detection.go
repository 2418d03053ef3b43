package scan

import "strings"

// Point is a position in camera preview coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Bounds is the decoded barcode's box, used to highlight it in the preview.
type Bounds struct {
	Origin Point `json:"origin"`
	Size   Size  `json:"size"`
}

// Detection is one decoded barcode as reported by the camera.
type Detection struct {
	Type   string `json:"type"`
	Data   string `json:"data"`
	Bounds Bounds `json:"bounds"`
}

// SupportedFormats are the symbologies the scanner is configured to decode.
var SupportedFormats = []string{
	"aztec", "ean13", "ean8", "qr", "pdf417", "upc_e", "datamatrix",
	"code39", "code93", "itf14", "codabar", "code128", "upc_a",
}

// IsSupported reports whether format is one of SupportedFormats. Matching
// ignores case and separators, so "EAN-13" and "ean13" are the same.
func IsSupported(format string) bool {
	f := canonicalFormat(format)
	for _, s := range SupportedFormats {
		if canonicalFormat(s) == f {
			return true
		}
	}
	return false
}

func canonicalFormat(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("-", "", "_", "", " ", "").Replace(s)
}

// GuessFormat picks a format for a bare code typed or read from a wedge
// scanner, which reports no symbology of its own.
func GuessFormat(data string) string {
	data = strings.TrimSpace(data)
	digits := data != ""
	for _, r := range data {
		if r < '0' || r > '9' {
			digits = false
			break
		}
	}
	if !digits {
		return "code128"
	}
	switch len(data) {
	case 8:
		return "ean8"
	case 12:
		return "upc_a"
	case 14:
		return "itf14"
	}
	return "ean13"
}
