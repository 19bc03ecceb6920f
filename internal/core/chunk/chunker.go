// Package chunk splits extracted report text into pieces that fit one model request.
package chunk

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMaxChars is the per-request text budget in characters.
const DefaultMaxChars = 100000

var (
	reParagraphBreak = regexp.MustCompile(`\n[ \t\r\f\v]*\n\s*`)
	reSentenceEnd    = regexp.MustCompile(`\.\s+`)
)

// Split returns the ordered chunks of text, each at most maxChars characters.
//
// Text within the limit is returned untouched as a single chunk. Otherwise
// whole paragraphs are packed greedily; a paragraph that alone exceeds the
// limit is packed sentence by sentence instead. A single sentence longer than
// maxChars is emitted as its own oversized chunk and is not cut further.
func Split(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if utf8.RuneCountInString(text) <= maxChars {
		return []string{text}
	}

	paras := &packer{max: maxChars, sep: "\n\n"}
	for _, para := range reParagraphBreak.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if utf8.RuneCountInString(para) <= maxChars {
			paras.add(para)
			continue
		}

		paras.flush()
		sentences := &packer{max: maxChars, sep: " "}
		for _, s := range splitSentences(para) {
			sentences.add(s)
		}
		sentences.flush()
		paras.chunks = append(paras.chunks, sentences.chunks...)
	}
	paras.flush()

	if len(paras.chunks) == 0 {
		// whitespace only
		return []string{text}
	}
	return paras.chunks
}

// splitSentences cuts after each period that is followed by whitespace.
func splitSentences(p string) []string {
	var out []string
	start := 0
	for _, loc := range reSentenceEnd.FindAllStringIndex(p, -1) {
		out = append(out, p[start:loc[0]+1])
		start = loc[1]
	}
	if start < len(p) {
		out = append(out, p[start:])
	}
	return out
}

type packer struct {
	max    int
	sep    string
	size   int
	buf    strings.Builder
	chunks []string
}

func (p *packer) add(piece string) {
	n := utf8.RuneCountInString(piece)
	sepLen := utf8.RuneCountInString(p.sep)
	if p.size > 0 && p.size+sepLen+n > p.max {
		p.flush()
	}
	if p.size > 0 {
		p.buf.WriteString(p.sep)
		p.size += sepLen
	}
	p.buf.WriteString(piece)
	p.size += n
}

func (p *packer) flush() {
	if p.size == 0 {
		return
	}
	p.chunks = append(p.chunks, p.buf.String())
	p.buf.Reset()
	p.size = 0
}
