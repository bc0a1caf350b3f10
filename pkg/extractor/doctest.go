package extractor

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

const (
	promptPS1 = ">>>"
	promptPS2 = "..."
)

// docExample is the source of one doctest example before parsing.
type docExample struct {
	// line is the 0-based line of the example's first prompt within the docstring.
	line   int
	source string
}

// findDocExamples scans docstring text for interactive examples: a ">>>"
// prompt line, optional "..." continuation lines at the same indentation,
// then expected output up to a blank line or the next prompt.
func findDocExamples(doc string) []docExample {
	lines := strings.Split(doc, "\n")
	var examples []docExample

	for i := 0; i < len(lines); {
		indent, ok := promptIndent(lines[i], promptPS1)
		if !ok {
			i++
			continue
		}

		start := i
		source := []string{stripPrompt(lines[i], indent)}
		i++
		for i < len(lines) && isContinuation(lines[i], indent) {
			source = append(source, stripPrompt(lines[i], indent))
			i++
		}
		// Expected output runs until a blank line or a new prompt.
		for i < len(lines) && strings.TrimSpace(lines[i]) != "" {
			if _, ok := promptIndent(lines[i], promptPS1); ok {
				break
			}
			i++
		}

		examples = append(examples, docExample{
			line:   start,
			source: strings.Join(source, "\n") + "\n",
		})
	}

	return examples
}

// promptIndent returns the indentation of a line starting with the prompt.
// The prompt must be followed by a space or end the line.
func promptIndent(line, prompt string) (int, bool) {
	trimmed := strings.TrimLeft(line, " ")
	indent := len(line) - len(trimmed)
	if !strings.HasPrefix(trimmed, prompt) {
		return 0, false
	}
	rest := trimmed[len(prompt):]
	if rest != "" && rest[0] != ' ' {
		return 0, false
	}
	return indent, true
}

func isContinuation(line string, indent int) bool {
	got, ok := promptIndent(line, promptPS2)
	return ok && got == indent
}

// stripPrompt drops the indentation, the prompt and the single space after it.
func stripPrompt(line string, indent int) string {
	cut := indent + len(promptPS1) + 1
	if len(line) <= cut {
		return ""
	}
	return line[cut:]
}

// docstringText returns the text between the quotes of a string literal
// usable as a docstring. Byte strings and f-strings are not docstrings.
func docstringText(raw string) (string, bool) {
	i := 0
	for i < len(raw) && strings.IndexByte("rRuUbBfF", raw[i]) >= 0 {
		i++
	}
	if strings.ContainsAny(raw[:i], "bBfF") {
		return "", false
	}

	body := raw[i:]
	for _, quote := range []string{`"""`, `'''`, `"`, `'`} {
		if len(body) >= 2*len(quote) && strings.HasPrefix(body, quote) && strings.HasSuffix(body, quote) {
			return body[len(quote) : len(body)-len(quote)], true
		}
	}
	return "", false
}

// docstringNode returns the string literal that opens a module or block body.
func docstringNode(body *sitter.Node) *sitter.Node {
	if body == nil {
		return nil
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		stmt := body.NamedChild(i)
		if stmt.Type() == "comment" {
			continue
		}
		if stmt.Type() != "expression_statement" || stmt.NamedChildCount() != 1 {
			return nil
		}
		if expr := stmt.NamedChild(0); expr.Type() == "string" {
			return expr
		}
		return nil
	}
	return nil
}
