// Package tagrewrite finds and rewrites the content of known XML tags on a
// single line of text. Lines are treated as opaque text: a tag whose value
// spans several lines is never matched.
package tagrewrite

import (
	"regexp"
	"strings"
	"sync"
)

const (
	cdataOpen  = "<![CDATA["
	cdataClose = "]]>"
)

// TagMatch is one occurrence of a tag on a line.
type TagMatch struct {
	Tag   string
	Value string // unwrapped content
	Raw   string // exact matched text, wrapper included
	Start int    // byte offset of Raw within the line
	End   int
	CDATA bool
}

// Render builds the tag text for value using the same wrapper as the match.
func (m TagMatch) Render(value string) string {
	return render(m.Tag, value, m.CDATA)
}

func render(tag, value string, cdata bool) string {
	var b strings.Builder
	b.WriteString("<")
	b.WriteString(tag)
	b.WriteString(">")
	if cdata {
		b.WriteString(cdataOpen)
		b.WriteString(value)
		b.WriteString(cdataClose)
	} else {
		b.WriteString(value)
	}
	b.WriteString("</")
	b.WriteString(tag)
	b.WriteString(">")
	return b.String()
}

type patternKey struct {
	tag      string
	optional bool
}

var (
	patternsMu sync.Mutex
	patterns   = map[patternKey]*regexp.Regexp{}
)

// pattern returns the compiled expression for tag. Required tags need at
// least one character of content, plain or inside CDATA; optional tags also
// match <tag></tag> and an empty CDATA section.
func pattern(tag string, optional bool) *regexp.Regexp {
	key := patternKey{tag, optional}

	patternsMu.Lock()
	defer patternsMu.Unlock()

	if re, ok := patterns[key]; ok {
		return re
	}

	q := regexp.QuoteMeta(tag)
	body := `(?:<!\[CDATA\[(.+?)\]\]>|([^<]+))`
	if optional {
		body = `(?:<!\[CDATA\[(.*?)\]\]>|([^<]+))?`
	}
	re := regexp.MustCompile("<" + q + ">" + body + "</" + q + ">")
	patterns[key] = re
	return re
}

// Find returns every occurrence of tag on line, left to right.
func Find(line, tag string, optional bool) []TagMatch {
	idx := pattern(tag, optional).FindAllStringSubmatchIndex(line, -1)
	if len(idx) == 0 {
		return nil
	}

	matches := make([]TagMatch, 0, len(idx))
	for _, loc := range idx {
		m := TagMatch{
			Tag:   tag,
			Raw:   line[loc[0]:loc[1]],
			Start: loc[0],
			End:   loc[1],
		}
		switch {
		case loc[2] >= 0:
			m.CDATA = true
			m.Value = line[loc[2]:loc[3]]
		case loc[4] >= 0:
			m.Value = line[loc[4]:loc[5]]
		}
		matches = append(matches, m)
	}
	return matches
}

// Rewrite replaces the content of every occurrence of tag on line with
// newValue and returns the new line with the number of occurrences.
// A line without the tag is returned unchanged.
func Rewrite(line, tag, newValue string, optional bool) (string, int) {
	return RewriteFunc(line, tag, optional, func(string) string { return newValue })
}

// RewriteFunc is Rewrite with a replacement computed from the old value.
// Replacements are spliced in by offset, right to left, so text elsewhere on
// the line that happens to equal a matched span is never touched.
func RewriteFunc(line, tag string, optional bool, fn func(old string) string) (string, int) {
	matches := Find(line, tag, optional)
	if len(matches) == 0 {
		return line, 0
	}

	out := line
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		out = out[:m.Start] + m.Render(fn(m.Value)) + out[m.End:]
	}
	return out, len(matches)
}

// FirstValue returns the first non-empty value of tag on line.
func FirstValue(line, tag string) (string, bool) {
	matches := Find(line, tag, false)
	for _, m := range matches {
		if m.Value != "" {
			return m.Value, true
		}
	}
	return "", false
}
