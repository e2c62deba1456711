package catalog

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// coverTypes lists image MIME types in order of preference.
var coverTypes = []string{"image/jpeg", "image/jpg", "image/png", "image/gif"}

// formatNames maps MIME types to human-readable download labels.
var formatNames = map[string]string{
	"text/html":                      "HTML",
	"application/epub+zip":           "EPUB",
	"application/x-mobipocket-ebook": "Kindle",
	"text/plain":                     "Plain Text",
	"application/pdf":                "PDF",
	"text/plain; charset=us-ascii":   "Plain Text (ASCII)",
	"text/plain; charset=utf-8":      "Plain Text (UTF-8)",
}

// CoverImage returns the preferred cover URL for the book.
func CoverImage(b Book) (string, bool) {
	for _, t := range coverTypes {
		if u, ok := b.Formats[t]; ok && u != "" {
			return u, true
		}
	}
	return "", false
}

// CoverOrPlaceholder returns the cover URL, or a generated placeholder.
func CoverOrPlaceholder(b Book) string {
	if u, ok := CoverImage(b); ok {
		return u
	}
	return PlaceholderCover(b.Title)
}

// DownloadFormats returns the non-image formats keyed by readable name.
// Unknown MIME types are kept under their raw type.
func DownloadFormats(b Book) map[string]string {
	out := make(map[string]string, len(b.Formats))
	for mime, u := range b.Formats {
		if strings.HasPrefix(mime, "image/") {
			continue
		}
		name, ok := formatNames[mime]
		if !ok {
			name = mime
		}
		out[name] = u
	}
	return out
}

// PlaceholderCover renders a deterministic gradient SVG for a title and
// returns it as a data URL.
func PlaceholderCover(title string) string {
	hash := 0
	for _, r := range title {
		hash += int(r)
	}
	hue := hash % 360
	sat := 70 + hash%20
	light := 45 + hash%15
	light2 := light - 15
	if light2 <= 0 {
		light2 = light
	}

	initials := title
	if r := []rune(title); len(r) > 2 {
		initials = string(r[:2])
	}

	svg := fmt.Sprintf(`<svg width="300" height="450" xmlns="http://www.w3.org/2000/svg">`+
		`<defs><linearGradient id="grad" x1="0%%" y1="0%%" x2="100%%" y2="100%%">`+
		`<stop offset="0%%" style="stop-color:hsl(%d,%d%%,%d%%);stop-opacity:1" />`+
		`<stop offset="100%%" style="stop-color:hsl(%d,%d%%,%d%%);stop-opacity:1" />`+
		`</linearGradient></defs>`+
		`<rect width="100%%" height="100%%" fill="url(#grad)" />`+
		`<text x="50%%" y="50%%" font-family="Arial" font-size="24" fill="white" text-anchor="middle" opacity="0.8">%s</text>`+
		`</svg>`,
		hue, sat, light, (hue+40)%360, sat, light2, escapeXML(strings.ToUpper(initials)))

	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg))
}

var xmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&apos;")

func escapeXML(s string) string { return xmlEscaper.Replace(s) }
