package parser

import (
	"strings"
	"testing"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\ntitle: Hello\ntags:\n  - go\n  - ansuz\n---\n# Hello\nBody text.\n")
	d, err := Parse("note.md", input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Format != FormatMarkdown {
		t.Errorf("format = %q, want %q", d.Format, FormatMarkdown)
	}
	if d.Title != "Hello" {
		t.Errorf("title = %q, want %q", d.Title, "Hello")
	}
	if len(d.Tags) < 2 || d.Tags[0] != "go" || d.Tags[1] != "ansuz" {
		t.Errorf("tags = %v, want [go ansuz]", d.Tags)
	}
	if d.Text != "Hello\nBody text." {
		t.Errorf("text = %q", d.Text)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	d, err := Parse("n.md", []byte("# Just a heading\nSome text.\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", d.Frontmatter)
	}
	if d.Title != "Just a heading" {
		t.Errorf("title = %q, want %q", d.Title, "Just a heading")
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	d, err := Parse("n.md", []byte("---\n: invalid: yaml: {{{\n---\nBody\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Frontmatter != nil {
		t.Errorf("expected nil frontmatter for invalid yaml")
	}
	if !strings.Contains(d.Text, "Body") {
		t.Errorf("text = %q, want it to contain Body", d.Text)
	}
}

func TestParse_MarkdownStripsMarkup(t *testing.T) {
	input := "Some **bold** and `code` with a [link](https://example.com).\n\n- first\n- second\n\n```\nfmt.Println()\n```\n"
	d, err := Parse("n.md", []byte(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Some bold and code with a link.", "- first", "- second", "fmt.Println()"} {
		if !strings.Contains(d.Text, want) {
			t.Errorf("text %q missing %q", d.Text, want)
		}
	}
	for _, banned := range []string{"**", "](", "```"} {
		if strings.Contains(d.Text, banned) {
			t.Errorf("text %q still contains markup %q", d.Text, banned)
		}
	}
}

func TestParse_InlineTags(t *testing.T) {
	d, err := Parse("n.md", []byte("Learning #golang and #sqlite today, #golang again.\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(d.Tags) != 2 || d.Tags[0] != "golang" || d.Tags[1] != "sqlite" {
		t.Errorf("tags = %v, want [golang sqlite]", d.Tags)
	}
}

func TestParse_HTML(t *testing.T) {
	input := `<html><head><title>Capitals</title><style>p{color:red}</style></head>
<body><script>var x = 1;</script><h1>Europe</h1><p>Paris is the capital of France.</p><p>Rome is the capital of Italy.</p></body></html>`
	d, err := Parse("page.HTML", []byte(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Format != FormatHTML {
		t.Errorf("format = %q, want %q", d.Format, FormatHTML)
	}
	if d.Title != "Capitals" {
		t.Errorf("title = %q, want %q", d.Title, "Capitals")
	}
	if !strings.Contains(d.Text, "Paris is the capital of France.") {
		t.Errorf("text = %q", d.Text)
	}
	if strings.Contains(d.Text, "var x") || strings.Contains(d.Text, "color:red") {
		t.Errorf("text leaked script or style: %q", d.Text)
	}
	if strings.Contains(d.Text, "Capitals") {
		t.Errorf("text should not repeat the title: %q", d.Text)
	}
}

func TestParse_PlainText(t *testing.T) {
	d, err := Parse("notes.txt", []byte("  First line  \r\n\r\n\r\n\r\nSecond   line\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Format != FormatText {
		t.Errorf("format = %q, want %q", d.Format, FormatText)
	}
	if d.Text != "First line\n\nSecond line" {
		t.Errorf("text = %q", d.Text)
	}
	if d.Title != "First line" {
		t.Errorf("title = %q, want %q", d.Title, "First line")
	}
}

func TestSupported(t *testing.T) {
	tests := map[string]bool{
		"a.md":       true,
		"a.MARKDOWN": true,
		"a.txt":      true,
		"a.htm":      true,
		"a.pdf":      false,
		"noext":      false,
	}
	for name, want := range tests {
		if got := Supported(name); got != want {
			t.Errorf("Supported(%q) = %v, want %v", name, got, want)
		}
	}
}
