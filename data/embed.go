package data

import (
	"embed"
)

// Templates holds the invitation email bodies
//
//go:embed templates/*.html templates/*.txt
var Templates embed.FS
