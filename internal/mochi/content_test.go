package mochi

import (
	"reflect"
	"testing"

	"github.com/starford/ansuz/internal/models"
)

func TestClozeConversion(t *testing.T) {
	in := "{{c1::Paris}} is in {{c2::France}}"
	m := AnkiClozeToMochi(in)
	if m != "{{1::Paris}} is in {{2::France}}" {
		t.Errorf("AnkiClozeToMochi = %q", m)
	}
	if back := MochiClozeToAnki(m); back != in {
		t.Errorf("MochiClozeToAnki = %q, want %q", back, in)
	}
}

func TestNoteContent(t *testing.T) {
	tests := []struct {
		name string
		in   models.CardFields
		want string
	}{
		{"basic", models.CardFields{Type: models.NoteBasic, Front: "Q", Back: "A"}, "Q\n\n---\nA"},
		{"basic extra", models.CardFields{Type: models.NoteBasic, Front: "Q", Back: "A", Extra: "E"}, "Q\n\n---\nA\n\nE"},
		{"cloze", models.CardFields{Type: models.NoteCloze, Cloze: "{{c1::x}} y"}, "{{1::x}} y"},
		{"cloze extra", models.CardFields{Type: models.NoteCloze, Cloze: "{{c1::x}}", Extra: "E"}, "{{1::x}}\n\n---\nE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NoteContent(tt.in); got != tt.want {
				t.Errorf("got = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	notes := []models.CardFields{
		{Type: models.NoteBasic, Front: "Capital of France?", Back: "Paris", Tags: []string{"geo"}},
		{Type: models.NoteCloze, Cloze: "{{c1::1989}} the wall fell", Extra: "Berlin", Tags: []string{"history"}},
	}
	for _, n := range notes {
		card := Card{Content: NoteContent(n), ManualTags: TagList(n.Tags)}
		got := CardFields(card)
		if got.Type != n.Type || got.Front != n.Front || got.Back != n.Back ||
			got.Cloze != n.Cloze || got.Extra != n.Extra || len(got.Tags) != 1 || got.Tags[0] != n.Tags[0] {
			t.Errorf("round trip of %+v = %+v", n, got)
		}
	}
}

func TestCardFieldsPull(t *testing.T) {
	tests := []struct {
		name string
		card Card
		want models.CardFields
	}{
		{
			name: "basic with separator",
			card: Card{Content: "Capital of France?\n\n---\nParis"},
			want: models.CardFields{Type: models.NoteBasic, Front: "Capital of France?", Back: "Paris"},
		},
		{
			name: "cloze only",
			card: Card{Content: "{{1::Go}} is compiled"},
			want: models.CardFields{Type: models.NoteCloze, Cloze: "{{c1::Go}} is compiled"},
		},
		{
			name: "splits on the first separator only",
			card: Card{Name: "Title", Content: "Q\n-----\nA\n---\nB"},
			want: models.CardFields{Type: models.NoteBasic, Front: "Q", Back: "A\n---\nB"},
		},
		{
			name: "multi line without separator",
			card: Card{Content: "line one\n\nline two\nline three"},
			want: models.CardFields{Type: models.NoteBasic, Front: "line one", Back: "line two\nline three"},
		},
		{
			name: "single line with title",
			card: Card{Name: "T", Content: "only"},
			want: models.CardFields{Type: models.NoteBasic, Front: "T", Back: "only"},
		},
		{
			name: "single line without title",
			card: Card{Content: "only"},
			want: models.CardFields{Type: models.NoteBasic, Front: "only"},
		},
		{
			name: "empty",
			card: Card{},
			want: models.CardFields{Type: models.NoteBasic, Front: "Untitled"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CardFields(tt.card)
			got.Tags = nil
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got = %+v, want %+v", got, tt.want)
			}
		})
	}
}
