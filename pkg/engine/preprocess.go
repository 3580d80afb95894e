package engine

import (
	"fmt"
	"sort"
	"strings"
)

// keywords lists the keyword arguments any builtin accepts.
var keywords = map[string]bool{
	"to": true,
	"by": true,
}

func keywordList() string {
	names := make([]string, 0, len(keywords))
	for k := range keywords {
		names = append(names, ":"+k)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// rewriter turns handle-script source into zygomys source. Line breaks
// are copied one for one so zygomys line numbers match the script.
type rewriter struct {
	src       string
	out       strings.Builder
	pos       int
	line      int
	lineStart int
	errs      []EvalError
}

// preprocessSource rewrites a handle script for zygomys:
//
//   - :to and :by become the string literals "__kw_to" and "__kw_by";
//     any other keyword is reported as an error.
//   - hyphenated names become snake_case (clear-handles -> clear_handles),
//     since zygomys reads a bare hyphen as subtraction.
//   - ; comments become // comments.
//
// Double-quoted strings pass through unchanged.
func preprocessSource(source string) (string, []EvalError) {
	r := &rewriter{src: source, line: 1}
	r.out.Grow(len(source) + len(source)/4)
	for r.pos < len(r.src) {
		switch c := r.src[r.pos]; {
		case c == '\n':
			r.newline()
		case c == '"':
			r.str()
		case c == ';':
			r.comment()
		case c == ':' && r.pos+1 < len(r.src) && isLetter(r.src[r.pos+1]):
			r.keyword()
		case c == '-' && r.inName():
			r.out.WriteByte('_')
			r.pos++
		default:
			r.out.WriteByte(c)
			r.pos++
		}
	}
	return r.out.String(), r.errs
}

func (r *rewriter) newline() {
	r.out.WriteByte('\n')
	r.pos++
	r.line++
	r.lineStart = r.pos
}

// str copies a string literal, honoring backslash escapes. An
// unterminated string is copied as is for zygomys to reject.
func (r *rewriter) str() {
	r.out.WriteByte('"')
	r.pos++
	for r.pos < len(r.src) {
		c := r.src[r.pos]
		switch {
		case c == '\\' && r.pos+1 < len(r.src):
			r.out.WriteString(r.src[r.pos : r.pos+2])
			r.pos += 2
		case c == '"':
			r.out.WriteByte(c)
			r.pos++
			return
		case c == '\n':
			r.newline()
		default:
			r.out.WriteByte(c)
			r.pos++
		}
	}
}

// comment rewrites a run of ; to // and copies the rest of the line.
func (r *rewriter) comment() {
	r.out.WriteString("//")
	for r.pos < len(r.src) && r.src[r.pos] == ';' {
		r.pos++
	}
	end := strings.IndexByte(r.src[r.pos:], '\n')
	if end < 0 {
		end = len(r.src) - r.pos
	}
	r.out.WriteString(r.src[r.pos : r.pos+end])
	r.pos += end
}

func (r *rewriter) keyword() {
	col := r.pos - r.lineStart + 1
	start := r.pos + 1
	end := start
	for end < len(r.src) && isKWChar(r.src[end]) {
		end++
	}
	name := r.src[start:end]
	if !keywords[name] {
		r.errs = append(r.errs, EvalError{
			Line:    r.line,
			Col:     col,
			Message: fmt.Sprintf("unknown keyword :%s, expected one of %s", name, keywordList()),
		})
	}
	r.out.WriteString(`"` + kwPrefix + name + `"`)
	r.pos = end
}

// inName reports whether the hyphen at pos joins two parts of a name,
// as opposed to a minus sign or a negative literal.
func (r *rewriter) inName() bool {
	return r.pos > 0 && r.pos+1 < len(r.src) &&
		isIdentChar(r.src[r.pos-1]) && isLetter(r.src[r.pos+1])
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}
