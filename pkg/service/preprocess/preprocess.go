package preprocess

import (
	"html"
	"regexp"
	"strings"
)

// noisePatterns remove Korean news boilerplate: reporter bylines, agency tags, copyright
// notices, related-article links and share prompts.
var noisePatterns = compileAll(
	`[가-힣]{2,4}\s*기자\s*[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+`,
	`[가-힣]{2,4}\s*기자\s*\([^)]+\)`,
	`[가-힣]{2,4}\s*특파원`,
	`\[[가-힣A-Za-z0-9\s]+뉴스\]`,
	`\[[가-힣]+\s*=\s*[가-힣]+\s*기자\]`,
	`\(서울=[가-힣]+\)`,
	`\(종합\d*\)`,
	`\((상보|속보)\)`,
	`무단\s*(전재|복제|배포).*?금지`,
	`저작권.*?[가-힣]+에\s*있습니다`,
	`[ⓒ©].*$`,
	`[▶▷►→]\s*관련.*$`,
	`[▶▷►→]\s*[가-힣]+.*$`,
	`\[관련기사\].*$`,
	`자세한\s*내용은.*?확인`,
	`문의\s*:?\s*\d{2,4}[-\s]?\d{3,4}[-\s]?\d{4}`,
	`(페이스북|트위터|카카오).*?공유`,
)

var (
	tagPattern       = regexp.MustCompile(`<[^>]*>`)
	singleQuotes     = regexp.MustCompile("[‘’`]")
	doubleQuotes     = regexp.MustCompile(`[“”]`)
	dashes           = regexp.MustCompile(`[‐‑‒–—―]`)
	ellipses         = regexp.MustCompile(`[…⋯]|\.{4,}`)
	specialSpaces    = regexp.MustCompile(`[\x{00a0}\x{2000}-\x{200b}\x{3000}]`)
	horizontalSpaces = regexp.MustCompile(`[ \t]+`)
	blankLines       = regexp.MustCompile(`\n{3,}`)
)

func compileAll(patterns ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		compiled[i] = regexp.MustCompile(`(?mi)` + p)
	}
	return compiled
}

// StripTags removes HTML tags and decodes entities. Whitespace is collapsed.
func StripTags(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

// Clean normalizes an article body for embedding. The result has no leading or trailing
// whitespace, single spaces within lines and at most one blank line between paragraphs.
func Clean(text string) string {
	if text == "" {
		return ""
	}

	text = html.UnescapeString(tagPattern.ReplaceAllString(text, ""))
	for _, p := range noisePatterns {
		text = p.ReplaceAllString(text, "")
	}

	text = singleQuotes.ReplaceAllString(text, "'")
	text = doubleQuotes.ReplaceAllString(text, `"`)
	text = dashes.ReplaceAllString(text, "-")
	text = ellipses.ReplaceAllString(text, "...")
	text = specialSpaces.ReplaceAllString(text, " ")

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = horizontalSpaces.ReplaceAllString(text, " ")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")

	return strings.TrimSpace(text)
}
