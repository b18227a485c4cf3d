package matcher

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// "(feat. X)", "[ft. X]", "(with X)"
	bracketFeaturing = regexp.MustCompile(`(?i)\s*[\(\[]\s*(feat\.?|ft\.?|featuring|with)\s[^\)\]]*[\)\]]`)
	// "Title feat. X" with no brackets; everything after the marker goes.
	bareFeaturing = regexp.MustCompile(`(?i)\s+(feat\.?|ft\.?|featuring)\s.*$`)
	// "(Official Music Video)", "[Lyrics]", "(Remastered 2011)" and friends.
	bracketDecoration = regexp.MustCompile(`(?i)\s*[\(\[][^\)\]]*\b(official|lyrics?|audio|video|visuali[sz]er|remaster(ed)?|hd|hq|4k|explicit)\b[^\)\]]*[\)\]]`)
	// "Title - Remastered 2011", "Title - 2009 Remaster"
	dashRemaster = regexp.MustCompile(`(?i)\s+-\s+[^-]*\bremaster(ed)?\b.*$`)
	// Splits a credit list down to the primary artist.
	artistSeparators = regexp.MustCompile(`\s*(,|;|&|\sx\s|\svs\.?\s)\s*`)
)

// fold lowercases s with Unicode case folding and strips diacritics, so that
// "Beyoncé" and "BEYONCE" compare equal.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return cases.Fold().String(out)
}

// squash keeps letters and digits, turns separators into single spaces and
// drops any other punctuation.
func squash(s string) string {
	s = strings.ReplaceAll(s, "&", " and ")

	var b strings.Builder
	lastWasSpace := true
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastWasSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '/':
			if !lastWasSpace {
				b.WriteRune(' ')
				lastWasSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// NormalizeTitle prepares a track title for comparison and search.
func NormalizeTitle(title string) string {
	title = bracketFeaturing.ReplaceAllString(title, "")
	title = bracketDecoration.ReplaceAllString(title, "")
	title = dashRemaster.ReplaceAllString(title, "")
	title = bareFeaturing.ReplaceAllString(title, "")
	return squash(fold(title))
}

// NormalizeArtist prepares an artist credit for comparison. Channel-style
// suffixes such as "VEVO" and " - Topic" are removed.
func NormalizeArtist(artist string) string {
	artist = bareFeaturing.ReplaceAllString(artist, "")
	a := fold(strings.TrimSpace(artist))
	a = strings.TrimSuffix(a, " - topic")
	a = strings.TrimSuffix(a, "vevo")
	a = strings.TrimSuffix(a, " official")
	return squash(a)
}

// PrimaryArtist returns the first credited artist, normalized.
func PrimaryArtist(artist string) string {
	artist = bareFeaturing.ReplaceAllString(artist, "")
	parts := artistSeparators.Split(artist, 2)
	return NormalizeArtist(parts[0])
}

// similarity returns 1 - normalized Levenshtein distance, in [0, 1].
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	lenA := len([]rune(a))
	lenB := len([]rune(b))
	if lenA == 0 || lenB == 0 {
		return 0.0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(max(lenA, lenB))
}

// artistSimilarity compares full credits and primary artists, and gives a
// floor to whole-word containment ("queen" within "queen and david bowie").
func artistSimilarity(src, cand string) float64 {
	fullA, fullB := NormalizeArtist(src), NormalizeArtist(cand)
	if fullA == "" || fullB == "" {
		return 0.0
	}

	best := max(similarity(fullA, fullB), similarity(PrimaryArtist(src), PrimaryArtist(cand)))
	if best < containmentFloor && (containsWord(fullA, fullB) || containsWord(fullB, fullA)) {
		best = containmentFloor
	}
	return best
}

const containmentFloor = 0.9

func containsWord(haystack, needle string) bool {
	if len([]rune(needle)) < 3 {
		return false
	}
	return strings.Contains(" "+haystack+" ", " "+needle+" ")
}
