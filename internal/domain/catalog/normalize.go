package catalog

import (
	"html"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// MaxSlugLength bounds a bare slug before any uniqueness suffix.
	MaxSlugLength = 80
	// MaxHandleLength bounds a full product handle including the id suffix.
	MaxHandleLength = 100
	// MaxTagLength bounds a normalized tag.
	MaxTagLength = 60
)

var (
	paragraphRe  = regexp.MustCompile(`(?i)</p\s*>|</div\s*>|</h[1-6]\s*>`)
	lineBreakRe  = regexp.MustCompile(`(?i)<br\s*/?\s*>|</li\s*>`)
	tagRe        = regexp.MustCompile(`<[^>]*>`)
	spaceRunRe   = regexp.MustCompile(`[ \t]+`)
	newlineRunRe = regexp.MustCompile(`\n{3,}`)
	slugSepRe    = regexp.MustCompile(`[^a-z0-9]+`)
)

// DecodeText decodes HTML entities and trims surrounding whitespace. Legacy
// description tables store entity-encoded text, so every free-text column
// passes through here first.
func DecodeText(s string) string {
	return strings.TrimSpace(html.UnescapeString(s))
}

// CleanDescription strips embedded markup from a legacy HTML description
// while preserving paragraph and line-break boundaries as newlines.
func CleanDescription(s string) string {
	s = html.UnescapeString(s)
	s = paragraphRe.ReplaceAllString(s, "\n\n")
	s = lineBreakRe.ReplaceAllString(s, "\n")
	s = tagRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s) // double-encoded content is common in old dumps
	s = spaceRunRe.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")
	s = newlineRunRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// SplitMultiValue splits a delimiter-joined column into an ordered,
// de-duplicated list, dropping empty segments.
func SplitMultiValue(s, sep string) []string {
	if s == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, part := range strings.Split(s, sep) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, ok := seen[part]; ok {
			continue
		}
		seen[part] = struct{}{}
		out = append(out, part)
	}
	return out
}

// ToMinorUnits converts a decimal major-unit amount to integer minor units
// (x100, rounded to the nearest integer).
func ToMinorUnits(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify builds a URL-safe slug: entity-decoded, diacritics folded to ASCII,
// lowercased, non-alphanumeric runs collapsed to single hyphens, truncated to
// MaxSlugLength.
func Slugify(s string) string {
	return slugify(s, MaxSlugLength)
}

func slugify(s string, maxLen int) string {
	s = DecodeText(s)
	if folded, _, err := transform.String(diacriticStripper, s); err == nil {
		s = folded
	}
	s = strings.ToLower(s)
	s = slugSepRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxLen {
		s = strings.Trim(s[:maxLen], "-")
	}
	return s
}

// ProductHandle derives the unique handle for a source product. The handle is
// slug(name) plus a "-<id>" suffix; the slug is trimmed so the total never
// exceeds MaxHandleLength while the id suffix is always preserved. The suffix
// keeps handles distinct even when two product names slugify identically.
func ProductHandle(name string, id int) string {
	suffix := "-" + strconv.Itoa(id)
	slug := slugify(name, MaxHandleLength-len(suffix))
	if slug == "" {
		slug = "product"
	}
	return slug + suffix
}

// AbsoluteImageURL turns a relative legacy image path into an absolute URL
// under base. Already-absolute paths pass through unchanged.
func AbsoluteImageURL(base, path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if base == "" {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// NormalizeTag cleans raw tag text: entities decoded, characters outside
// letters/digits/space/hyphen/ampersand stripped, whitespace collapsed,
// truncated to MaxTagLength. Returns "" when nothing survives; callers drop
// empty results silently.
func NormalizeTag(s string) string {
	s = DecodeText(s)
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case r == ' ', r == '-', r == '&':
			b.WriteRune(r)
		}
	}
	s = strings.TrimSpace(spaceRunRe.ReplaceAllString(b.String(), " "))
	if rs := []rune(s); len(rs) > MaxTagLength {
		s = strings.TrimSpace(string(rs[:MaxTagLength]))
	}
	return s
}
