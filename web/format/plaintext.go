package format

import (
	"regexp"
	"strings"
)

// Markdown and symbol stripping for answers that are read aloud by a
// text-to-speech engine. Running PlainText over its own output returns
// the same string, so callers may normalize defensively.
var (
	reCodeBlock  = regexp.MustCompile("(?s)```.*?```")
	reInlineCode = regexp.MustCompile("`([^`]+)`")
	reBold       = regexp.MustCompile(`\*\*(.*?)\*\*`)
	reUnderBold  = regexp.MustCompile(`__(.*?)__`)
	reItalic     = regexp.MustCompile(`\*([^*]+)\*`)
	reUnderItal  = regexp.MustCompile(`_([^_]+)_`)
	reStrike     = regexp.MustCompile(`~~(.*?)~~`)
	reHeading    = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	reLink       = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	reRule       = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
	reFraction   = regexp.MustCompile(`(\d+)/(\d+)`)
	reWordSlash  = regexp.MustCompile(`(\w+)/(\w+)`)
	reBracket    = regexp.MustCompile(`\[([^\]]+)\]`)
	reEmptyParen = regexp.MustCompile(`\(\s*\)`)
	reParaBreak  = regexp.MustCompile(`\n{2,}`)
	reSpaces     = regexp.MustCompile(`[ \t]+`)
	reDotRun     = regexp.MustCompile(`\.{4,}`)
	reSpaceDot   = regexp.MustCompile(` +\.`)
	reLeftover   = regexp.MustCompile(`[*/\\#>|~]+`)
	reListItem   = regexp.MustCompile(`(?m)^\s*[-*]\s+`)

	bulletStripper = strings.NewReplacer(
		"•", "", "▪", "", "▫", "", "‣", "", "◦", "",
		"➤", "", "►", "", "➔", "", "→", "",
	)
)

// PlainText strips markdown markup and list symbols from text so a
// text-to-speech engine reads it naturally. Fractions become spoken
// form ("1/2" -> "1 per 2") and paragraph breaks become sentence
// breaks. The function is idempotent.
func PlainText(text string) string {
	t := text

	t = reCodeBlock.ReplaceAllString(t, " ")
	t = reInlineCode.ReplaceAllString(t, "$1")
	t = reBold.ReplaceAllString(t, "$1")
	t = reUnderBold.ReplaceAllString(t, "$1")
	t = reItalic.ReplaceAllString(t, "$1")
	t = reUnderItal.ReplaceAllString(t, "$1")
	t = reStrike.ReplaceAllString(t, "$1")
	t = reHeading.ReplaceAllString(t, "")
	t = reLink.ReplaceAllString(t, "$1")
	t = reRule.ReplaceAllString(t, "")

	t = reFraction.ReplaceAllString(t, "$1 per $2")
	t = reWordSlash.ReplaceAllString(t, "$1 $2")
	t = strings.ReplaceAll(t, "/", " ")

	t = reBracket.ReplaceAllString(t, "$1")
	t = reEmptyParen.ReplaceAllString(t, "")
	t = bulletStripper.Replace(t)

	// List markers at line starts become plain prose.
	t = reListItem.ReplaceAllString(t, "")

	t = reParaBreak.ReplaceAllString(t, ". ")
	t = strings.ReplaceAll(t, "\n", " ")

	t = reLeftover.ReplaceAllString(t, " ")
	t = reSpaces.ReplaceAllString(t, " ")
	t = reDotRun.ReplaceAllString(t, ".")
	t = reSpaceDot.ReplaceAllString(t, ".")
	t = reSpaces.ReplaceAllString(t, " ")

	return strings.TrimSpace(t)
}
