// Package stringtest builds multi-line strings for test expectations.
package stringtest

import "strings"

// JoinLF joins multiple strings with LF line endings.
//
//	want := stringtest.JoinLF(
//		"video_id,frame_max_constricao",
//		"7,42",
//	) // -> "video_id,frame_max_constricao\n7,42"
func JoinLF(ss ...string) string {
	return strings.Join(ss, "\n")
}

// Input strips one leading and one trailing newline from s and removes the
// indentation common to all non-blank lines, so fixtures can be written as
// indented raw string literals.
func Input(s string) string {
	s = strings.TrimPrefix(s, "\n")
	s = strings.TrimSuffix(s, "\n")

	lines := strings.Split(s, "\n")

	indent := -1

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}

		n := len(line) - len(strings.TrimLeft(line, " \t"))
		if indent < 0 || n < indent {
			indent = n
		}
	}

	if indent <= 0 {
		return s
	}

	for i, line := range lines {
		if len(line) >= indent {
			lines[i] = line[indent:]
		} else {
			lines[i] = strings.TrimLeft(line, " \t")
		}
	}

	return strings.Join(lines, "\n")
}

// Lines splits s into lines, ignoring a final newline. An empty s has no
// lines.
func Lines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}

	return strings.Split(s, "\n")
}
