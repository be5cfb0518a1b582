package grading

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// Model replies are adversarial by unreliability: markdown fencing, stray
// prose, unescaped control characters, trailing commas, truncated objects.
// Repair runs an ordered chain of independent recovery strategies and never
// fails; when nothing structural can be salvaged it degrades to harvesting
// individual fields, and finally to a zeroed result that records the
// failure in its issues list.

// MalformedResponseIssue is recorded on the degraded result when no usable
// content could be recovered from a model reply.
const MalformedResponseIssue = "AI response malformed"

// PartialRecoveryIssue is recorded when only individual fields could be
// pulled out of an unparseable reply.
const PartialRecoveryIssue = "AI response partially recovered via field extraction"

type repairStrategy func(string) (StructuredGradingResult, bool)

// Repair turns a raw model reply into a structured grading result,
// degrading gracefully instead of returning an error. Each strategy is pure
// and attempted only when the previous one failed to yield valid JSON.
func Repair(raw string) StructuredGradingResult {
	strategies := []repairStrategy{
		parseFencedBlock,
		parseBraceSpan,
		parseCleaned,
		parseLibraryRepair,
		parseBalancedScan,
		harvestFields,
	}

	for _, strategy := range strategies {
		if result, ok := strategy(raw); ok {
			return result
		}
	}

	return degradedResult()
}

// parseFencedBlock extracts the first triple-backtick code block, with or
// without a json language tag, and parses its contents.
func parseFencedBlock(raw string) (StructuredGradingResult, bool) {
	match := fencedBlockPattern.FindStringSubmatch(raw)
	if match == nil {
		return StructuredGradingResult{}, false
	}
	return parseResult(match[1])
}

// parseBraceSpan greedily extracts the text between the first '{' and the
// last '}' and parses it.
func parseBraceSpan(raw string) (StructuredGradingResult, bool) {
	span, ok := braceSpan(raw)
	if !ok {
		return StructuredGradingResult{}, false
	}
	return parseResult(span)
}

// parseCleaned applies syntactic repairs to the brace span before parsing:
// trailing commas before closing brackets are removed and control characters
// outside printable range are dropped.
func parseCleaned(raw string) (StructuredGradingResult, bool) {
	span, ok := braceSpan(raw)
	if !ok {
		return StructuredGradingResult{}, false
	}
	return parseResult(cleanSyntax(span))
}

// parseLibraryRepair runs the jsonrepair library over the brace span, which
// fixes unquoted keys, single quotes, unescaped newlines and similar
// breakage the hand-rolled cleanup does not cover.
func parseLibraryRepair(raw string) (StructuredGradingResult, bool) {
	span, ok := braceSpan(raw)
	if !ok {
		span = raw
	}

	repaired, err := jsonrepair.JSONRepair(span)
	if err != nil {
		return StructuredGradingResult{}, false
	}
	return parseResult(repaired)
}

// parseBalancedScan walks the text character by character, tracking string
// and escape state so braces inside quoted strings are ignored, and extracts
// the longest well-balanced top-level object.
func parseBalancedScan(raw string) (StructuredGradingResult, bool) {
	candidate := longestBalancedObject(raw)
	if candidate == "" {
		return StructuredGradingResult{}, false
	}
	return parseResult(cleanSyntax(candidate))
}

// harvestFields is the last structural resort: individually critical fields
// are pulled out of the raw text with regular expressions and assembled into
// a minimal degraded result.
func harvestFields(raw string) (StructuredGradingResult, bool) {
	var result StructuredGradingResult
	found := false

	if match := rollNumberPattern.FindStringSubmatch(raw); match != nil {
		result.RollNumber = FlexString(strings.TrimSpace(match[1]))
		found = true
	}
	if match := totalScorePattern.FindStringSubmatch(raw); match != nil {
		if value, err := strconv.ParseFloat(match[1], 64); err == nil {
			result.TotalScore = FlexFloat(value)
			found = true
		}
	}
	if match := gradePattern.FindStringSubmatch(raw); match != nil {
		result.Grade = strings.ToUpper(match[1])
		found = true
	}
	if match := remarksPattern.FindStringSubmatch(raw); match != nil {
		result.Remarks = strings.TrimSpace(match[1])
		found = true
	}

	if !found {
		return StructuredGradingResult{}, false
	}

	result.Issues = []string{PartialRecoveryIssue}
	return result, true
}

func degradedResult() StructuredGradingResult {
	return StructuredGradingResult{
		Grade:  "F",
		Issues: []string{MalformedResponseIssue},
	}
}

// parseResult accepts a candidate substring only when it is a valid JSON
// object decodable into the tolerant result shape.
func parseResult(candidate string) (StructuredGradingResult, bool) {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" || candidate[0] != '{' {
		return StructuredGradingResult{}, false
	}

	var result StructuredGradingResult
	if err := json.Unmarshal([]byte(candidate), &result); err != nil {
		return StructuredGradingResult{}, false
	}
	return result, true
}

func braceSpan(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

// cleanSyntax strips trailing commas before closing brackets and removes
// control characters that are not valid inside JSON.
func cleanSyntax(candidate string) string {
	candidate = trailingCommaPattern.ReplaceAllString(candidate, "$1")

	var b strings.Builder
	b.Grow(len(candidate))
	for _, r := range candidate {
		if r < 0x20 && r != '\n' && r != '\r' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// longestBalancedObject returns the longest top-level {...} span whose
// braces balance outside of string literals, or "" when no span closes.
func longestBalancedObject(raw string) string {
	best := ""
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i := 0; i < len(raw); i++ {
		ch := raw[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				candidate := raw[start : i+1]
				if len(candidate) > len(best) {
					best = candidate
				}
				start = -1
			}
		}
	}

	return best
}

var (
	fencedBlockPattern   = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	trailingCommaPattern = regexp.MustCompile(`,\s*([\]}])`)
	rollNumberPattern    = regexp.MustCompile(`(?i)"?roll[_\s]?(?:number|no)"?\s*[:=]\s*"?([0-9][0-9\s-]*)`)
	totalScorePattern    = regexp.MustCompile(`(?i)"?total[_\s]?score"?\s*[:=]\s*"?(-?\d+(?:\.\d+)?)`)
	gradePattern         = regexp.MustCompile(`(?i)"?grade"?\s*[:=]\s*"?([ABCD]\+?|F)`)
	remarksPattern       = regexp.MustCompile(`(?i)"?remarks"?\s*[:=]\s*"([^"]+)"`)
)
