package copilot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeSectionsSummaryPrecedence(t *testing.T) {
	t.Parallel()

	a := Sections{Summary: "from vision"}
	b := Sections{Summary: "from ocr"}

	assert.Equal(t, "from vision", MergeSections(a, b).Summary)
	assert.Equal(t, "from ocr", MergeSections(Sections{Summary: "  "}, b).Summary)
	assert.Equal(t, FallbackSummary, MergeSections(Sections{}, Sections{}).Summary)
}

func TestMergeSectionsUnionsInFirstSeenOrder(t *testing.T) {
	t.Parallel()

	a := Sections{KeyItems: []string{" main.go ", "line 42", ""}, Suggestions: []string{"Run tests"}}
	b := Sections{KeyItems: []string{"line 42", "Line 42", "exit 1"}, Suggestions: []string{"Run tests ", "Fix import"}}

	got := MergeSections(a, b)
	assert.Equal(t, []string{"main.go", "line 42", "Line 42", "exit 1"}, got.KeyItems)
	assert.Equal(t, []string{"Run tests", "Fix import"}, got.Suggestions)
}

func TestMergeSectionsSetProperties(t *testing.T) {
	t.Parallel()

	a := Sections{Summary: "a", KeyItems: []string{"x", "y", "x"}, Suggestions: []string{"s1"}}
	b := Sections{Summary: "b", KeyItems: []string{"z", "y"}, Suggestions: []string{"s2", "s1"}}

	ab, ba := MergeSections(a, b), MergeSections(b, a)
	assert.ElementsMatch(t, ab.KeyItems, ba.KeyItems)
	assert.ElementsMatch(t, ab.Suggestions, ba.Suggestions)
	assert.Equal(t, "a", ab.Summary)
	assert.Equal(t, "b", ba.Summary)

	aa := MergeSections(a, a)
	assert.Equal(t, Sections{Summary: "a", KeyItems: []string{"x", "y"}, Suggestions: []string{"s1"}}, aa)
	assert.Equal(t, aa, MergeSections(aa, aa))
}

func TestMergeSectionsNeverNilLists(t *testing.T) {
	t.Parallel()

	got := MergeSections(Sections{}, Sections{})
	assert.NotNil(t, got.KeyItems)
	assert.NotNil(t, got.Suggestions)
}

func TestRenderSections(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   Sections
		want string
	}{
		{
			name: "summary only",
			in:   Sections{Summary: "x", KeyItems: []string{}, Suggestions: []string{}},
			want: "x",
		},
		{
			name: "all parts",
			in: Sections{
				Summary:     "Build failed.",
				KeyItems:    []string{"main.go:12", "undefined: foo"},
				Suggestions: []string{"Define foo"},
			},
			want: "Build failed.\n\nKey details:\n- main.go:12\n- undefined: foo\n\nNext steps:\n- Define foo",
		},
		{
			name: "suggestions without key items",
			in:   Sections{Summary: "ok", Suggestions: []string{"Ask me", " ", "Ask me"}},
			want: "ok\n\nNext steps:\n- Ask me",
		},
		{
			name: "empty summary",
			in:   Sections{KeyItems: []string{"a"}},
			want: FallbackSummary + "\n\nKey details:\n- a",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := RenderSections(tc.in)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, got, RenderSections(tc.in))
		})
	}
}

func TestRenderOmitsEmptyHeaders(t *testing.T) {
	t.Parallel()

	got := RenderSections(Sections{Summary: "x"})
	assert.NotContains(t, got, "Key details")
	assert.NotContains(t, got, "Next steps")
}
