package convert

import (
	"path"
	"strings"
)

// maxStem bounds download names so they fit comfortably in a header.
const maxStem = 80

// DocxName turns an uploaded file name into a download name. Directories and
// the extension are dropped, the rest is lowercased and every run of
// characters other than ASCII letters and digits becomes a single "-".
// Names with nothing usable left become "document.docx".
func DocxName(upload string) string {
	base := path.Base(strings.ReplaceAll(upload, `\`, "/"))
	base = strings.TrimSuffix(base, path.Ext(base))

	var b strings.Builder
	gap := false
	for _, r := range strings.ToLower(base) {
		if !('a' <= r && r <= 'z' || '0' <= r && r <= '9') {
			gap = true
			continue
		}
		if gap && b.Len() > 0 {
			b.WriteByte('-')
		}
		gap = false
		b.WriteRune(r)
	}

	stem := b.String()
	if len(stem) > maxStem {
		stem = strings.TrimRight(stem[:maxStem], "-")
	}
	if stem == "" {
		stem = "document"
	}
	return stem + ".docx"
}
