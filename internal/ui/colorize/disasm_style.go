package colorize

import (
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"
)

// StyleName is the chroma style listings are rendered with.
const StyleName = "lifter-dark"

// ListingDark registers StyleName with chroma. Registers are teal, numbers
// pink and string annotations gold; everything else stays white.
var ListingDark = styles.Register(chroma.MustNewStyle(StyleName, chroma.StyleEntries{
	chroma.Text:       "#FFFFFF",
	chroma.Background: "bg:#1e1e1e",

	chroma.Keyword:       "#FFFFFF",
	chroma.KeywordPseudo: "#FFFFFF",
	chroma.NameFunction:  "#FFFFFF", // nasm tokenizes mnemonics as functions
	chroma.Name:          "#7C9C9D",
	chroma.NameBuiltin:   "#7C9C9D",
	chroma.NameVariable:  "#7C9C9D",

	chroma.LiteralNumber: "#FF5F87", // sub-kinds inherit

	// "; ..." trailers carry recovered strings
	chroma.Comment:        "#EACD53",
	chroma.CommentPreproc: "#EACD53",
	chroma.String:         "#EACD53",
	chroma.NameLabel:      "#FFD700",

	chroma.Operator:    "#FFFFFF",
	chroma.Punctuation: "#FFFFFF",
}))
