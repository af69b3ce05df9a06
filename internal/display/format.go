package display

import (
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// LanguageAddon holds the host's own localised strings.
const LanguageAddon = "resource.language.en_gb"

// Localizer returns string id of an addon's strings.po, if present.
type Localizer func(addonID string, id int) (string, bool)

var (
	localizeRe = regexp.MustCompile(`\$LOCALIZE\[(\d+)\]`)
	addonRe    = regexp.MustCompile(`\$ADDON\[(\S+?)\s(\d+)\]`)
	colorRe    = regexp.MustCompile(`(?s)\[COLOR\s+[^\]]+\](.*?)\[/COLOR\]`)
	anyTagRe   = regexp.MustCompile(`\[[^\]]+?\]`)

	// Regexp has no backreferences, so one pattern per tag.
	styleTags = map[string]*regexp.Regexp{}
)

func init() {
	for _, tag := range []string{"B", "I", "LIGHT", "UPPERCASE", "LOWERCASE", "CAPITALIZE"} {
		styleTags[tag] = regexp.MustCompile(`(?s)\[` + tag + `\](.*?)\[/` + tag + `\]`)
	}
}

// Format expands localisation references and removes host label markup.
// Case tags are applied; [CR] becomes a newline.
func Format(text string, localize Localizer) string {
	if localize != nil {
		text = localizeRe.ReplaceAllStringFunc(text, func(m string) string {
			id, _ := strconv.Atoi(localizeRe.FindStringSubmatch(m)[1])
			if s, ok := localize(LanguageAddon, id); ok {
				return s
			}
			return m
		})
		text = addonRe.ReplaceAllStringFunc(text, func(m string) string {
			sub := addonRe.FindStringSubmatch(m)
			id, _ := strconv.Atoi(sub[2])
			if s, ok := localize(sub[1], id); ok {
				return s
			}
			return m
		})
	}

	text = colorRe.ReplaceAllString(text, "$1")
	for _, tag := range []string{"B", "I", "LIGHT"} {
		text = styleTags[tag].ReplaceAllString(text, "$1")
	}
	text = styleTags["UPPERCASE"].ReplaceAllStringFunc(text, func(m string) string {
		return strings.ToUpper(styleTags["UPPERCASE"].FindStringSubmatch(m)[1])
	})
	text = styleTags["LOWERCASE"].ReplaceAllStringFunc(text, func(m string) string {
		return strings.ToLower(styleTags["LOWERCASE"].FindStringSubmatch(m)[1])
	})
	text = styleTags["CAPITALIZE"].ReplaceAllStringFunc(text, func(m string) string {
		return capitalize(styleTags["CAPITALIZE"].FindStringSubmatch(m)[1])
	})
	return strings.ReplaceAll(text, "[CR]", "\n")
}

// Label formats text for a single line: markup left over after Format is
// dropped and line breaks become spaces.
func Label(text string, localize Localizer) string {
	text = Format(text, localize)
	text = anyTagRe.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "\n", " ")
	return strings.TrimSpace(text)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	lower := strings.ToLower(s)
	return strings.ToUpper(lower[:1]) + lower[1:]
}

// DecodeParam decodes a hex encoded JSON value carried in a "_json_"
// parameter. Other parameters and undecodable values are returned as is.
func DecodeParam(key, value string) string {
	if !strings.EqualFold(key, "_json_") {
		return value
	}
	raw, err := hex.DecodeString(value)
	if err != nil || !gjson.ValidBytes(raw) {
		return value
	}
	return string(raw)
}

// Crop shortens s to width runes, marking the cut with "...".
func Crop(s string, width int) string {
	if width <= 3 {
		return s
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}
