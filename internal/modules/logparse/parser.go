package logparse

import (
	"regexp"
	"strconv"
	"strings"

	types "github.com/yungbote/spackmon-backend/internal/domain"
)

const defaultContext = 3

// Parser turns raw phase output into error and warning events.
type Parser interface {
	Parse(output string) (errs []types.LogEvent, warnings []types.LogEvent)
}

// LineParser is the built in Parser. It recognises compiler diagnostics of the form
// file:line[:col]: error|warning: text and free standing error/warning markers.
type LineParser struct {
	Context int
}

func NewLineParser() *LineParser { return &LineParser{Context: defaultContext} }

var (
	diagnosticRe = regexp.MustCompile(`^(.+?):(\d+)(?::\d+)?:\s*(fatal error|error|warning):\s*(.*)$`)
	errorRe      = regexp.MustCompile(`(?i)(^|\s)(error|fatal|failed)(:|\s)`)
	warningRe    = regexp.MustCompile(`(?i)(^|\s)warning:`)
	noErrorRe    = regexp.MustCompile(`(?i)(-Werror|no error|0 errors|error\.[ch]|errors?\.(o|c|cpp|h))`)
)

func (p *LineParser) Parse(output string) ([]types.LogEvent, []types.LogEvent) {
	if strings.TrimSpace(output) == "" {
		return nil, nil
	}
	n := p.Context
	if n < 0 {
		n = 0
	}
	lines := strings.Split(strings.ReplaceAll(output, "\r\n", "\n"), "\n")

	var errs, warns []types.LogEvent
	errIdx := map[string]int{}
	warnIdx := map[string]int{}

	for i, raw := range lines {
		line := strings.TrimRight(raw, " \t")
		if line == "" {
			continue
		}
		kind, ev := classify(line)
		if kind == "" {
			continue
		}
		lineNo := i + 1
		start := max(0, i-n)
		end := min(len(lines), i+n+1)
		startNo, endNo := start+1, end
		ev.LineNo = &lineNo
		ev.StartLine = &startNo
		ev.EndLine = &endNo
		ev.PreContext = strings.Join(lines[start:i], "\n")
		ev.PostContext = strings.Join(lines[i+1:end], "\n")

		// identical diagnostics collapse into the first occurrence
		key := ev.SourceFile + "\x00" + ev.Text
		switch kind {
		case "error":
			if j, ok := errIdx[key]; ok {
				*errs[j].RepeatCount++
				continue
			}
			one := 1
			ev.RepeatCount = &one
			errIdx[key] = len(errs)
			errs = append(errs, ev)
		case "warning":
			if j, ok := warnIdx[key]; ok {
				*warns[j].RepeatCount++
				continue
			}
			one := 1
			ev.RepeatCount = &one
			warnIdx[key] = len(warns)
			warns = append(warns, ev)
		}
	}
	return errs, warns
}

func classify(line string) (string, types.LogEvent) {
	if m := diagnosticRe.FindStringSubmatch(line); m != nil {
		ev := types.LogEvent{SourceFile: m[1], Text: line}
		if n, err := strconv.Atoi(m[2]); err == nil {
			ev.SourceLineNo = &n
		}
		if m[3] == "warning" {
			return "warning", ev
		}
		return "error", ev
	}
	if warningRe.MatchString(line) {
		return "warning", types.LogEvent{Text: line}
	}
	if errorRe.MatchString(line) && !noErrorRe.MatchString(line) {
		return "error", types.LogEvent{Text: line}
	}
	return "", types.LogEvent{}
}
