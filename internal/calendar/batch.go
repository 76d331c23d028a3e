package calendar

import (
	"regexp"
	"strings"
)

// batchLine matches one pasted line: a 1-2 digit day, a slash, a 1-2 digit
// month, then optionally a separator (hyphen, en dash, em dash or colon)
// followed by free text.
var batchLine = regexp.MustCompile(`(\d{1,2})/(\d{1,2})(?:\s*[-–—:]\s*(.*))?`)

// BatchEntry is one dated event produced from pasted free text.
type BatchEntry struct {
	Date  string // canonical DD/MM key
	Label string
}

// ParseBatch extracts dated events from newline-delimited free text, as
// pasted into the category dialog. Blank lines and lines without a leading
// D/M date are dropped silently. When a line carries trailing text the label
// becomes "CATEGORY - TRAILING TEXT" with the trailing part uppercased;
// otherwise the bare category label is used.
//
// Day and month are zero-padded but not range-checked: "40/13" yields a
// syntactically valid key that will simply never land on a grid cell. An
// empty result means no line parsed; callers must surface that to the user
// instead of issuing a zero-row save.
func ParseBatch(raw, category string) []BatchEntry {
	var out []BatchEntry
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := batchLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		label := category
		if extra := strings.ToUpper(strings.TrimSpace(m[3])); extra != "" {
			label = category + " - " + extra
		}

		out = append(out, BatchEntry{
			Date:  pad2(m[1]) + "/" + pad2(m[2]),
			Label: label,
		})
	}
	return out
}
