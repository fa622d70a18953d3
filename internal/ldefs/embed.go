package ldefs

import (
	"embed"
	"io/fs"
)

//go:embed languages
var languages embed.FS

// Embedded returns the language definitions built into the binary.
func Embedded() fs.FS {
	sub, err := fs.Sub(languages, "languages")
	if err != nil {
		panic(err)
	}
	return sub
}
