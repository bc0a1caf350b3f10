package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindDocExamples(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		expected []docExample
	}{
		{
			name:     "no prompts",
			doc:      "Just prose.\n\nMore prose.",
			expected: nil,
		},
		{
			name: "single example with output",
			doc:  "Intro.\n\n>>> import os\n>>> os.sep\n'/'\n",
			expected: []docExample{
				{line: 2, source: "import os\n"},
				{line: 3, source: "os.sep\n"},
			},
		},
		{
			name: "continuation lines",
			doc:  "    >>> for i in x:\n    ...     print(i)\n    1\n",
			expected: []docExample{
				{line: 0, source: "for i in x:\n    print(i)\n"},
			},
		},
		{
			name: "output ends at blank line",
			doc:  ">>> f()\nresult\n\n>>> g()\n",
			expected: []docExample{
				{line: 0, source: "f()\n"},
				{line: 3, source: "g()\n"},
			},
		},
		{
			name:     "prompt needs a space",
			doc:      ">>>x = 1\n",
			expected: nil,
		},
		{
			name: "bare prompt",
			doc:  ">>>\n",
			expected: []docExample{
				{line: 0, source: "\n"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, findDocExamples(tt.doc))
		})
	}
}

func TestDocstringText(t *testing.T) {
	tests := []struct {
		raw  string
		text string
		ok   bool
	}{
		{raw: `"""doc"""`, text: "doc", ok: true},
		{raw: `'''doc'''`, text: "doc", ok: true},
		{raw: `"doc"`, text: "doc", ok: true},
		{raw: `r"""raw\n"""`, text: `raw\n`, ok: true},
		{raw: `u'doc'`, text: "doc", ok: true},
		{raw: `b"""bytes"""`, ok: false},
		{raw: `f"""{x}"""`, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			text, ok := docstringText(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.text, text)
		})
	}
}

func TestLanguageRegistry(t *testing.T) {
	registry := NewLanguageRegistry()
	assert.True(t, registry.IsSupported("a/b.py"))
	assert.True(t, registry.IsSupported("a/B.PY"))
	assert.False(t, registry.IsSupported("a/b.pyc"))

	registry.Register("pyw")
	assert.Equal(t, []string{".py", ".pyw"}, registry.GetSupportedExtensions())

	name, ok := registry.TrimExtension("mod.py")
	assert.True(t, ok)
	assert.Equal(t, "mod", name)
	_, ok = registry.TrimExtension("README")
	assert.False(t, ok)
}
