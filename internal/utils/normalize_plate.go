package utils

import (
	"regexp"
	"strings"
)

// plateGrammar is the accepted plate shape after recognition-time
// normalization: 2 letters, 1-2 digits, 1-3 letters, 3-4 digits.
var plateGrammar = regexp.MustCompile(`(?i)[A-Z]{2}[0-9]{1,2}[A-Z]{1,3}[0-9]{3,4}`)

// stripNonAlnum uppercases raw and removes everything that is not a letter
// or a digit.
func stripNonAlnum(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.ToUpper(raw) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isDigit(b byte) bool  { return b >= '0' && b <= '9' }
func isLetter(b byte) bool { return b >= 'A' && b <= 'Z' }

// NormalizePlateForRecognition canonicalizes a raw OCR string before grammar
// matching. Substitutions prefer digits at ambiguous letter/digit boundaries
// so the fixed plate grammar can match; the order of the rules is load-bearing
// and must not be rearranged.
//
// Rules, applied over the uppercased, punctuation-stripped string with
// neighbour context taken from that same string:
//   - Q is always read as 0.
//   - O next to at least one digit (between digits, digit and end, or digit
//     and letter) is read as 0.
//   - 1, I or L immediately after a D becomes L, restoring "DL" district
//     codes that OCR renders as "D1" or "DI".
//   - I elsewhere is read as 1; L elsewhere is read as 1 only when it touches
//     a digit.
//   - Z is read as 2.
//   - B or S flanked by digits on both sides is read as 8 or 5; conversely 8
//     or 5 flanked by letters on both sides is restored to B or S.
func NormalizePlateForRecognition(raw string) string {
	s := stripNonAlnum(raw)
	if s == "" {
		return ""
	}

	out := []byte(s)
	last := len(s) - 1
	for i := 0; i < len(s); i++ {
		c := s[i]
		var prev, next byte
		if i > 0 {
			prev = s[i-1]
		}
		if i < last {
			next = s[i+1]
		}
		digitNeighbour := isDigit(prev) || isDigit(next)
		digitFlanked := isDigit(prev) && isDigit(next)
		letterFlanked := isLetter(prev) && isLetter(next)

		switch c {
		case 'Q':
			out[i] = '0'
		case 'O':
			if digitNeighbour {
				out[i] = '0'
			}
		case '1', 'I', 'L':
			switch {
			case prev == 'D':
				out[i] = 'L'
			case c == 'I':
				out[i] = '1'
			case c == 'L' && digitNeighbour:
				out[i] = '1'
			}
		case 'Z':
			out[i] = '2'
		case 'B':
			if digitFlanked {
				out[i] = '8'
			}
		case 'S':
			if digitFlanked {
				out[i] = '5'
			}
		case '8':
			if letterFlanked {
				out[i] = 'B'
			}
		case '5':
			if letterFlanked {
				out[i] = 'S'
			}
		}
	}
	return string(out)
}

// MatchPlate normalizes raw recognized text and returns the first substring
// satisfying the plate grammar, or "" when none is found.
func MatchPlate(raw string) string {
	normalized := NormalizePlateForRecognition(raw)
	if normalized == "" {
		return ""
	}
	return plateGrammar.FindString(normalized)
}

// NormalizePlateForMatch canonicalizes an already-extracted plate string
// before cross-capture equality comparison. Deliberately looser than
// recognition-time normalization: it absorbs residual OCR drift between
// captures (one capture reading "8" where another read "B") and prefers
// letters at the known-confusable positions.
func NormalizePlateForMatch(raw string) string {
	upper := strings.ToUpper(strings.TrimSpace(raw))

	// Whole-token rewrites operate on the raw token boundaries, before
	// punctuation is stripped.
	tokens := strings.FieldsFunc(upper, func(r rune) bool {
		return !((r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'))
	})
	for i, tok := range tokens {
		if tok == "D1" || tok == "DI" {
			tokens[i] = "DL"
		}
	}
	s := strings.Join(tokens, "")

	out := []byte(s)
	for i := 1; i < len(out); i++ {
		if out[i-1] == 'D' && (out[i] == '1' || out[i] == 'I') {
			out[i] = 'L'
		}
	}
	for i := range out {
		if out[i] == '8' {
			out[i] = 'B'
		}
	}
	return string(out)
}
