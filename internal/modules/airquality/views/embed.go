package views

import "embed"

//go:embed templates
var viewsFS embed.FS

//go:embed static
var staticFS embed.FS
