package textpipe

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// mojibake maps the UTF-8-decoded-as-Latin-1 artifacts that show up in
// text exported from legacy office tools back to the characters they were
// before the double decode. Anything not in this table passes through.
var mojibake = strings.NewReplacer(
	"â€™", "’",
	"â€˜", "‘",
	"â€œ", "“",
	"â€", "”",
	"â€“", "–",
	"â€”", "—",
	"â€¦", "…",
	"â€¢", "•",
	"Â ", " ",
	"Ã©", "é",
	"Ã¨", "è",
	"Ã¡", "á",
	"Ã³", "ó",
	"Ãº", "ú",
	"Ã±", "ñ",
	"Ã§", "ç",
	"Ã¼", "ü",
	"Ã¶", "ö",
	"Ã¤", "ä",
)

// spaceVariants covers zero-width characters and the non-breaking and
// full-width spaces.
var spaceVariants = strings.NewReplacer(
	"​", " ",
	"‌", " ",
	"‍", " ",
	"\uFEFF", " ",
	" ", " ",
	"　", " ",
)

var newlineRun = regexp.MustCompile(`\n{4,}`)

// Normalize repairs mis-encoded characters and canonicalises whitespace.
// Line endings become LF, exotic space characters become regular spaces,
// and runs of four or more newlines collapse to exactly three. The result
// is stable: normalising an already-normalised string is a no-op.
func Normalize(text string) string {
	text = mojibake.Replace(text)
	text = norm.NFC.String(text)

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	text = spaceVariants.Replace(text)
	text = newlineRun.ReplaceAllString(text, "\n\n\n")

	return text
}
