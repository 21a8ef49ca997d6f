package printpdf

import "strings"

// Title sizing bounds, in points. The floor keeps short-run print titles
// legible even when the heuristic would shrink further.
const (
	maxTitleSizePt = 64.0
	minTitleSizePt = 20.0

	// bodySizePt is the fixed size for story text pages.
	bodySizePt = 14.0

	// lineSpacing multiplies the font size to get the baseline advance.
	lineSpacing = 1.35
)

// widthFunc measures the rendered width of s, in inches, at the given
// font size in points. The PDF builder backs this with the current font's
// metrics; tests use a synthetic measure.
type widthFunc func(s string, sizePt float64) float64

// lineHeightIn converts a font size in points to a baseline advance in inches.
func lineHeightIn(sizePt float64) float64 {
	return sizePt / 72.0 * lineSpacing
}

// wrapText greedily wraps text into lines no wider than maxW inches at the
// given size. Words that alone exceed maxW are split by characters rather
// than overflowing the safe area.
func wrapText(text string, sizePt, maxW float64, width widthFunc) []string {
	var lines []string
	for _, para := range strings.Split(strings.TrimSpace(text), "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		cur := ""
		for _, w := range words {
			for width(w, sizePt) > maxW && len(w) > 1 {
				// Hard-split an unbreakable word.
				cut := len(w)
				for cut > 1 && width(w[:cut], sizePt) > maxW {
					cut--
				}
				if cur != "" {
					lines = append(lines, cur)
					cur = ""
				}
				lines = append(lines, w[:cut])
				w = w[cut:]
			}
			cand := w
			if cur != "" {
				cand = cur + " " + w
			}
			if width(cand, sizePt) <= maxW {
				cur = cand
			} else {
				if cur != "" {
					lines = append(lines, cur)
				}
				cur = w
			}
		}
		if cur != "" {
			lines = append(lines, cur)
		}
	}
	return lines
}

// titleFontSize picks the largest font size for the cover title that
// satisfies three constraints, floored at the legibility minimum:
//
//  1. by line count — long titles start from a smaller base size,
//  2. by width — the longest wrapped line must fit availW,
//  3. by height — the wrapped block must fit availH.
//
// The candidates are each computed independently and the minimum wins.
// This is a deterministic heuristic, not a solver: wrapping is evaluated
// at the line-count candidate and not re-run per candidate.
func titleFontSize(title string, availW, availH float64, width widthFunc) (sizePt float64, lines []string) {
	// Candidate 1: by line count at the maximum size.
	base := maxTitleSizePt
	probe := wrapText(title, base, availW, width)
	switch {
	case len(probe) >= 4:
		base = maxTitleSizePt * 0.55
	case len(probe) == 3:
		base = maxTitleSizePt * 0.7
	case len(probe) == 2:
		base = maxTitleSizePt * 0.85
	}

	lines = wrapText(title, base, availW, width)

	// Candidate 2: by longest-line width. Width scales linearly with the
	// font size, so project from the measurement at base size.
	byWidth := base
	for _, ln := range lines {
		w := width(ln, base)
		if w > availW {
			if s := base * availW / w; s < byWidth {
				byWidth = s
			}
		}
	}

	// Candidate 3: by available height.
	byHeight := base
	if block := float64(len(lines)) * lineHeightIn(base); block > availH {
		byHeight = base * availH / block
	}

	sizePt = base
	if byWidth < sizePt {
		sizePt = byWidth
	}
	if byHeight < sizePt {
		sizePt = byHeight
	}
	if sizePt < minTitleSizePt {
		sizePt = minTitleSizePt
	}

	// Re-wrap at the final size so callers draw what was measured.
	lines = wrapText(title, sizePt, availW, width)
	return sizePt, lines
}
