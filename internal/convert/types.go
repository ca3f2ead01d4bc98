package convert

// Result reports a file conversion done by Run.
type Result struct {
	Source     string `json:"source"`
	OutPath    string `json:"out_path"`
	Mode       string `json:"mode"`
	Pages      int    `json:"pages"`
	Paragraphs int    `json:"paragraphs"`
	Images     int    `json:"images"`
	Bytes      int    `json:"bytes"`
}

// Config drives Run.
type Config struct {
	// OutPath defaults to the input path with a .docx extension.
	OutPath    string
	Mode       Mode
	Scale      float64
	ImageWidth float64
	// MaxInputBytes rejects larger inputs when > 0.
	MaxInputBytes int64
}
