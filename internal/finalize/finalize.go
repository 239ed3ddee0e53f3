// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package finalize

import (
	"regexp"
	"strings"
)

// =============================================================================
// REASONING DELIMITERS
// =============================================================================

// Recognized reasoning/thinking delimiter pairs. This is a closed set on
// purpose: new spellings get added here, in one place, instead of being
// matched ad hoc around the codebase.
var reasoningDelimiters = []struct {
	Open  string
	Close string
}{
	{"<think>", "</think>"},
	{"<thinking>", "</thinking>"},
	{"<reasoning>", "</reasoning>"},
	{"[think]", "[/think]"},
}

// reasoningBlockRegexps match complete delimiter blocks, case-insensitive,
// spanning newlines. Compiled once at startup.
var reasoningBlockRegexps = func() []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(reasoningDelimiters))
	for _, d := range reasoningDelimiters {
		pattern := "(?is)" + regexp.QuoteMeta(d.Open) + ".*?" + regexp.QuoteMeta(d.Close)
		res = append(res, regexp.MustCompile(pattern))
	}
	return res
}()

// excessNewlines collapses runs of 3+ newlines left behind by stripping.
var excessNewlines = regexp.MustCompile(`\n{3,}`)

// InlineDelimiter reports the first reasoning delimiter opener found
// inside s, if any. Used by the stream layer for diagnostics only: deltas
// are never stripped mid-stream, because a delimiter can straddle a chunk
// boundary and truncating a delta would lose token fragments.
func InlineDelimiter(s string) (string, bool) {
	lower := strings.ToLower(s)
	for _, d := range reasoningDelimiters {
		if strings.Contains(lower, d.Open) {
			return d.Open, true
		}
	}
	return "", false
}

// StripReasoning removes complete reasoning delimiter blocks from text and
// collapses the newline runs the removal leaves behind. The result is also
// trimmed of surrounding whitespace: it becomes the persisted assistant
// message, and a block stripped from either edge of the response would
// otherwise leave stray blank lines in the session history.
//
// If stripping reduces a non-empty input to nothing, the original text is
// returned and fellBack is true. That guards a known failure mode (a model
// wrapping its entire answer in <think> tags), not an intended feature.
func StripReasoning(text string) (result string, fellBack bool) {
	if text == "" {
		return "", false
	}

	stripped := text
	for _, re := range reasoningBlockRegexps {
		stripped = re.ReplaceAllString(stripped, "")
	}
	stripped = excessNewlines.ReplaceAllString(stripped, "\n\n")
	stripped = strings.TrimSpace(stripped)

	if stripped == "" && strings.TrimSpace(text) != "" {
		return text, true
	}
	return stripped, false
}

// =============================================================================
// CODE BLOCK CLASSIFICATION
// =============================================================================

// Coverage thresholds for code-block dominance. Empirically chosen;
// configurable via the [finalize] config section rather than hard law.
const (
	// DominantBlockCoverage is the character share above which a single
	// fenced block is treated as the payload of the response.
	DominantBlockCoverage = 0.95

	// PureBlockCoverage is the share above which the payload counts as
	// pure code rather than code with a one-line caption.
	PureBlockCoverage = 0.98
)

// FileResult is the normalized payload for file-output callers.
type FileResult struct {
	// Text is the content to write: fence interior when a block dominates,
	// the input text otherwise.
	Text string

	// Language is the fence's language tag when one block dominates.
	Language string

	// IsPureCodeBlock is true when the response is essentially one code
	// sample, making it eligible for extension-based file naming.
	IsPureCodeBlock bool
}

// fencedBlock is one parsed ``` block with its span in the source text.
type fencedBlock struct {
	language string
	interior string
	start    int // offset of the opening fence line
	end      int // offset just past the closing fence line
}

// parseFencedBlocks finds complete fenced code blocks. An opening fence
// without a closing fence is not a block.
func parseFencedBlocks(text string) []fencedBlock {
	var blocks []fencedBlock

	offset := 0
	var open *fencedBlock
	var interior strings.Builder

	for offset <= len(text) {
		lineEnd := strings.IndexByte(text[offset:], '\n')
		var line string
		next := len(text)
		if lineEnd >= 0 {
			line = text[offset : offset+lineEnd]
			next = offset + lineEnd + 1
		} else {
			line = text[offset:]
		}

		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			if open == nil {
				open = &fencedBlock{
					language: strings.TrimSpace(strings.TrimPrefix(trimmed, "```")),
					start:    offset,
				}
				interior.Reset()
			} else {
				open.interior = strings.TrimSuffix(interior.String(), "\n")
				open.end = next
				if lineEnd < 0 {
					open.end = len(text)
				}
				blocks = append(blocks, *open)
				open = nil
			}
		} else if open != nil {
			interior.WriteString(line)
			interior.WriteString("\n")
		}

		if lineEnd < 0 {
			break
		}
		offset = next
	}

	return blocks
}

// ForFile classifies text for file output. dominant and pure are coverage
// thresholds; pass 0 to use the package defaults.
//
// Classification, in order:
//  1. Exactly one fenced block spanning the entire trimmed text: pure
//     code, language extracted, text replaced with the interior.
//  2. Exactly one block covering more than the dominant share: payload is
//     the interior; pure only above the pure share (distinguishing "pure
//     code" from "code with a one-line caption").
//  3. Multiple blocks together covering more than the dominant share:
//     fences stripped, mixed content, no language.
//  4. Otherwise the text is returned unchanged.
func ForFile(text string, dominant, pure float64) FileResult {
	if dominant <= 0 || dominant > 1 {
		dominant = DominantBlockCoverage
	}
	if pure <= 0 || pure > 1 {
		pure = PureBlockCoverage
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return FileResult{Text: text}
	}

	blocks := parseFencedBlocks(trimmed)
	if len(blocks) == 0 {
		return FileResult{Text: text}
	}

	// Single block spanning the whole response.
	if len(blocks) == 1 && blocks[0].start == 0 && blocks[0].end == len(trimmed) {
		return FileResult{
			Text:            blocks[0].interior,
			Language:        blocks[0].language,
			IsPureCodeBlock: true,
		}
	}

	covered := 0
	for _, b := range blocks {
		covered += b.end - b.start
	}
	coverage := float64(covered) / float64(len(trimmed))

	if len(blocks) == 1 && coverage > dominant {
		return FileResult{
			Text:            blocks[0].interior,
			Language:        blocks[0].language,
			IsPureCodeBlock: coverage > pure,
		}
	}

	if len(blocks) > 1 && coverage > dominant {
		return FileResult{Text: stripFences(trimmed)}
	}

	return FileResult{Text: text}
}

// stripFences removes fence lines, keeping interiors and prose.
func stripFences(text string) string {
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// =============================================================================
// EXTENSION MAPPING
// =============================================================================

// languageExtensions maps fence language tags to file extensions.
var languageExtensions = map[string]string{
	"bash":       ".sh",
	"c":          ".c",
	"cpp":        ".cpp",
	"csharp":     ".cs",
	"css":        ".css",
	"go":         ".go",
	"golang":     ".go",
	"html":       ".html",
	"java":       ".java",
	"javascript": ".js",
	"js":         ".js",
	"json":       ".json",
	"kotlin":     ".kt",
	"lua":        ".lua",
	"markdown":   ".md",
	"perl":       ".pl",
	"php":        ".php",
	"py":         ".py",
	"python":     ".py",
	"ruby":       ".rb",
	"rust":       ".rs",
	"sh":         ".sh",
	"shell":      ".sh",
	"sql":        ".sql",
	"toml":       ".toml",
	"ts":         ".ts",
	"typescript": ".ts",
	"xml":        ".xml",
	"yaml":       ".yaml",
	"yml":        ".yaml",
	"zsh":        ".sh",
}

// Extension returns the file extension for a result. Pure code blocks map
// their language tag; everything else defaults to ".txt".
func (r FileResult) Extension() string {
	if !r.IsPureCodeBlock {
		return ".txt"
	}
	if ext, ok := languageExtensions[strings.ToLower(r.Language)]; ok {
		return ext
	}
	return ".txt"
}
