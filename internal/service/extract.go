package service

import (
	"regexp"
	"strings"

	"github.com/arnav/capsera/internal/prompts"
)

// Caption length bounds. Shorter fragments are usually labels, headers, or
// bare hashtag runs; longer ones are prose the model failed to trim.
const (
	minCaptionLen = 20
	maxCaptionLen = 200

	windowMinLen = 30
	windowWords  = 15
)

// extractTier is one strategy for mining captions out of model text. A tier
// returns every candidate it can find; the chain keeps the first tier that
// produces at least three.
type extractTier func(text string) []string

// extractTiers is ordered from highest precision to loosest heuristic.
var extractTiers = []extractTier{
	extractFencedArray,
	extractOpenFencedArray,
	extractEnumerated,
	extractQuoted,
	extractListLines,
	extractWordWindows,
}

var (
	fencedArrayRe     = regexp.MustCompile("```(?:json)?\\s*\\[([^\\]]+)\\]\\s*```")
	openFencedArrayRe = regexp.MustCompile("```(?:json)?\\s*\\[([^\\]]+)")
	enumeratedRe      = regexp.MustCompile(`\[\d+\]\s*\*\*[^*]+\*\*:\s*"([^"]+)"`)
	quotedRe          = regexp.MustCompile(`"([^"]{20,200})"`)
	numberedLineRe    = regexp.MustCompile(`^\d+\.\s*`)
)

// ExtractCaptions mines exactly three caption strings out of a raw model
// response. It isolates the caption section when the instructed heading is
// present, then walks the tier chain. Returns nil when no tier finds three
// usable candidates; it never returns one or two.
// Parameters:
//   - raw: free-form model output.
// Returns:
//   - []string: exactly three captions, or nil on failure.
func ExtractCaptions(raw string) []string {
	section := isolateSection(raw)

	for _, tier := range extractTiers {
		if candidates := tier(section); len(candidates) >= 3 {
			return candidates[:3]
		}
	}
	return nil
}

// isolateSection narrows parsing to the text after the caption heading the
// prompt asked for, tolerating known variants. Without any marker the whole
// response is parsed.
func isolateSection(raw string) string {
	if _, after, found := strings.Cut(raw, prompts.CaptionSectionMarker); found {
		return after
	}
	for _, marker := range prompts.AltSectionMarkers {
		if _, after, found := strings.Cut(raw, marker); found {
			return after
		}
	}
	return raw
}

// usableCaption reports whether a candidate falls inside the caption length
// bounds after trimming.
func usableCaption(s string) bool {
	return len(s) > minCaptionLen && len(s) < maxCaptionLen
}

// extractFencedArray pulls quoted strings out of a fenced JSON-style array
// block, the format the prompt asks for.
func extractFencedArray(text string) []string {
	match := fencedArrayRe.FindStringSubmatch(text)
	if match == nil {
		return nil
	}
	return quotedStrings(match[1])
}

// extractOpenFencedArray tolerates truncated output: an opening fence and
// bracket with no closing fence.
func extractOpenFencedArray(text string) []string {
	match := openFencedArrayRe.FindStringSubmatch(text)
	if match == nil {
		return nil
	}
	return quotedStrings(match[1])
}

// quotedStrings collects length-bounded double-quoted substrings. Fewer than
// three means the block was not a caption list.
func quotedStrings(block string) []string {
	matches := quotedRe.FindAllStringSubmatch(block, -1)
	if len(matches) < 3 {
		return nil
	}
	var captions []string
	for _, m := range matches {
		caption := strings.TrimSpace(m[1])
		if usableCaption(caption) {
			captions = append(captions, caption)
		}
	}
	return captions
}

// extractEnumerated matches the `[1] **Label**: "text"` listing some models
// produce instead of an array.
func extractEnumerated(text string) []string {
	matches := enumeratedRe.FindAllStringSubmatch(text, -1)
	if len(matches) < 3 {
		return nil
	}
	var captions []string
	for _, m := range matches {
		caption := strings.TrimSpace(m[1])
		if usableCaption(caption) {
			captions = append(captions, caption)
		}
	}
	return captions
}

// extractQuoted scans the whole section for any length-bounded quoted
// strings.
func extractQuoted(text string) []string {
	return quotedStrings(text)
}

// extractListLines accepts numbered or bulleted lines, stripped of their
// markers.
func extractListLines(text string) []string {
	var captions []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		var caption string
		switch {
		case numberedLineRe.MatchString(trimmed):
			caption = strings.TrimSpace(numberedLineRe.ReplaceAllString(trimmed, ""))
		case strings.HasPrefix(trimmed, "-"):
			caption = strings.TrimSpace(strings.TrimPrefix(trimmed, "-"))
		case strings.HasPrefix(trimmed, "•"):
			caption = strings.TrimSpace(strings.TrimPrefix(trimmed, "•"))
		default:
			continue
		}

		if usableCaption(caption) {
			captions = append(captions, caption)
		}
	}
	return captions
}

// extractWordWindows is the last resort: slide a fixed word window over the
// de-structured text and accept windows that look caption-sized and carry
// none of the instruction keywords.
func extractWordWindows(text string) []string {
	cleaned := strings.NewReplacer("```", "", "[", "", "]", "").Replace(text)
	words := strings.Fields(cleaned)

	var captions []string
	for i := 0; i+windowWords <= len(words); i++ {
		candidate := strings.Join(words[i:i+windowWords], " ")
		if len(candidate) <= windowMinLen || len(candidate) >= maxCaptionLen {
			continue
		}
		if strings.Contains(candidate, "STEP") || strings.Contains(candidate, "CAPTIONS") {
			continue
		}
		captions = append(captions, candidate)
		if len(captions) >= 3 {
			break
		}
	}
	return captions
}
