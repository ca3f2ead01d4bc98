package convert

import (
	"fmt"
	"strings"
)

// Mode selects what each page contributes to the output document.
type Mode int

const (
	// TextAndImages writes the page text followed by the page image.
	TextAndImages Mode = iota
	// ImagesOnly writes only the page image.
	ImagesOnly
	// TextOnly writes only the page text.
	TextOnly
)

var modeNames = map[Mode]string{
	TextAndImages: "text-and-images",
	ImagesOnly:    "images-only",
	TextOnly:      "text-only",
}

var modeAliases = map[string]Mode{
	"text-and-images": TextAndImages,
	"both":            TextAndImages,
	"searchable":      TextAndImages,
	"images-only":     ImagesOnly,
	"images":          ImagesOnly,
	"text-only":       TextOnly,
	"text":            TextOnly,
}

// Modes lists every mode.
func Modes() []Mode { return []Mode{TextAndImages, ImagesOnly, TextOnly} }

// ParseMode accepts a mode name or alias, case-insensitively; "_" and "-"
// are interchangeable.
func ParseMode(s string) (Mode, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
	if m, ok := modeAliases[key]; ok {
		return m, nil
	}
	return 0, fmt.Errorf("unknown mode %q (want text-and-images|images-only|text-only)", s)
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Valid reports whether m is one of the declared modes.
func (m Mode) Valid() bool {
	_, ok := modeNames[m]
	return ok
}

// IncludesText reports whether pages contribute a text paragraph.
func (m Mode) IncludesText() bool { return m == TextAndImages || m == TextOnly }

// IncludesImages reports whether pages contribute a picture.
func (m Mode) IncludesImages() bool { return m == TextAndImages || m == ImagesOnly }

// Set implements pflag.Value.
func (m *Mode) Set(s string) error {
	v, err := ParseMode(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Type implements pflag.Value.
func (m *Mode) Type() string { return "mode" }

func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid mode %d", int(m))
	}
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) error { return m.Set(string(b)) }
