package inspect

import (
	"bytes"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
)

// Note is a parsed sibling text file. Header lines are "key: value"; a
// "description:" line starts the free-text body.
type Note struct {
	Title       string            `json:"title,omitempty"`
	Author      string            `json:"author,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Description string            `json:"description,omitempty"`
	Meta        map[string]string `json:"meta,omitempty"`
	HTML        string            `json:"html"`
}

var headerLine = regexp.MustCompile(`^([^:]+):\s*(.*)$`)

var notePolicy = func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").OnElements("div", "p", "span")
	return p
}()

// ParseNote parses note text and renders its sanitised HTML fragment
func ParseNote(text string) *Note {
	n := &Note{Meta: map[string]string{}}
	var desc strings.Builder
	inDescription := false

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if inDescription {
			desc.WriteString(line + "\n")
			continue
		}

		m := headerLine.FindStringSubmatch(line)
		if m == nil {
			desc.WriteString(line + "\n")
			continue
		}

		key := strings.ToLower(strings.TrimSpace(m[1]))
		value := strings.TrimSpace(m[2])
		n.Meta[key] = value
		if key == "description" {
			inDescription = true
			desc.Reset()
			desc.WriteString(value + "\n")
		}
	}

	n.Title = n.Meta["title"]
	n.Author = n.Meta["author"]
	if tags := n.Meta["tags"]; tags != "" {
		for _, tag := range strings.Split(tags, ",") {
			n.Tags = append(n.Tags, strings.TrimSpace(tag))
		}
	}
	n.Description = desc.String()
	n.HTML = renderNote(n)
	return n
}

func renderNote(n *Note) string {
	var b strings.Builder
	b.WriteString(`<div class="styled-text-preview">`)
	if n.Title != "" {
		b.WriteString("<h3>" + n.Title + "</h3>")
	}
	if n.Author != "" {
		b.WriteString(`<p class="meta-item"><strong>Author:</strong> ` + n.Author + "</p>")
	}
	if len(n.Tags) > 0 {
		b.WriteString(`<div class="meta-item meta-tags"><strong>Tags:</strong> `)
		for _, tag := range n.Tags {
			b.WriteString("<span>" + tag + "</span>")
		}
		b.WriteString("</div>")
	}
	if n.Description != "" {
		b.WriteString(`<div class="description"><p>` + strings.ReplaceAll(n.Description, "\n", "<br>") + "</p></div>")
	}
	b.WriteString("</div>")
	return notePolicy.Sanitize(b.String())
}

// DecodeText converts note bytes to UTF-8, detecting legacy encodings
func DecodeText(data []byte) string {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if utf8.Valid(data) {
		return string(data)
	}

	result, err := chardet.NewTextDetector().DetectBest(data)
	if err != nil || result == nil {
		return string(data)
	}
	enc, _ := charset.Lookup(result.Charset)
	if enc == nil {
		return string(data)
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return string(data)
	}
	return string(out)
}
