package fingerprint

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"
)

// MaxTitleLen bounds the composed report title in Unicode codepoints
const MaxTitleLen = 500

// Normalization regexes compiled once at package init. The replacement
// order in Normalize is part of the dedup contract: hex runs are collapsed
// before UUIDs and integers before IPs, so the UUID and IP patterns match
// the placeholder shapes left behind by the earlier passes. The email
// classes include the placeholder brackets for the same reason: a numeric
// local part is already "<num>" by the time the email pass runs, and
// "<num>@example.com" must still read as an address.
var (
	reHexRun    = regexp.MustCompile(`[0-9a-f]{8,}`)
	reUUID      = regexp.MustCompile(`<hex>-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-<hex>`)
	reInteger   = regexp.MustCompile(`\b\d+\b`)
	reEmail     = regexp.MustCompile(`[a-z0-9._%+<>-]+@[a-z0-9.<>-]+`)
	reIPv4      = regexp.MustCompile(`<num>(\.<num>){3}`)
	reQuoted    = regexp.MustCompile("'[^']*'|\"[^\"]*\"|`[^`]*`")
	reMixedID   = regexp.MustCompile(`\b[a-z][a-z0-9]*\d[a-z0-9]*\b`)
	reSnakeID   = regexp.MustCompile(`\b[a-z0-9]+(?:_[a-z0-9]+)+\b`)
	reWhitespce = regexp.MustCompile(`\s+`)
)

// Location is the source position a client attached to an occurrence
type Location struct {
	File   string
	Line   uint32
	Column *uint32
}

// Tag renders the location as "<file>:<line>", or "Unknown" when absent
func (l *Location) Tag() string {
	if l == nil || l.File == "" {
		return "Unknown"
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// ComposeTitle builds "<title> in <location>" bounded to MaxTitleLen
// codepoints, counting runes, not bytes. The title part gives way first;
// when the location tag alone busts the bound (file paths are
// client-supplied and unbounded) the composed tail is cut instead, so the
// bound holds unconditionally.
func ComposeTitle(title string, loc *Location) string {
	suffix := " in " + loc.Tag()
	if len([]rune(title))+len([]rune(suffix)) <= MaxTitleLen {
		return title + suffix
	}

	budget := MaxTitleLen - len([]rune(suffix))
	if budget >= 1 {
		return string([]rune(title)[:budget-1]) + "…" + suffix
	}

	composed := []rune(title + suffix)
	return string(composed[:MaxTitleLen-1]) + "…"
}

// Normalize rewrites a composed title into its stable signature. The
// substitutions run in a fixed order; reordering changes outcomes for
// titles containing overlapping pattern types (a hex run that is also
// numeric, an integer inside an IP).
func Normalize(title string) string {
	s := strings.ToLower(title)
	s = reHexRun.ReplaceAllString(s, "<hex>")
	s = reUUID.ReplaceAllString(s, "<uuid>")
	s = reInteger.ReplaceAllString(s, "<num>")
	s = reEmail.ReplaceAllString(s, "<email>")
	s = reIPv4.ReplaceAllString(s, "<ip>")
	s = reQuoted.ReplaceAllString(s, "<str>")
	s = reMixedID.ReplaceAllString(s, "<id>")
	s = reSnakeID.ReplaceAllStringFunc(s, func(token string) string {
		if strings.ContainsAny(token, "0123456789") {
			return "<id>"
		}
		return token
	})
	s = reWhitespce.ReplaceAllString(s, " ")

	return strings.TrimSpace(s)
}

// EnvironmentHash digests the environment name, empty string included, so
// reports in different environments never collide
func EnvironmentHash(name string) string {
	sum := sha256.Sum256([]byte(name))
	return fmt.Sprintf("%x", sum)
}

// Uid derives the dedup key for an occurrence. Identical normalized titles
// within one project and environment bucket always map to the same uid.
func Uid(projectID uint, environmentName, normalizedTitle string) string {
	payload := fmt.Sprintf("%d:%s:%s", projectID, EnvironmentHash(environmentName), normalizedTitle)
	sum := sha256.Sum256([]byte(payload))
	return fmt.Sprintf("%x", sum)
}
