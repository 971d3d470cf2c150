package models

import (
	"reflect"
	"testing"
)

func TestNormalizeTags(t *testing.T) {
	cases := []struct {
		name string
		in   []string
		want []string
	}{
		{"empty", nil, []string{}},
		{"trim and join", []string{"  world  war  ", "geo"}, []string{"world-war", "geo"}},
		{"first casing wins", []string{"Geo", "geo", "GEO", "europe"}, []string{"Geo", "europe"}},
		{"drop blanks", []string{"", "   ", "x"}, []string{"x"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeTags(tc.in)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("NormalizeTags(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestParseTagList(t *testing.T) {
	got := ParseTagList("geo, europe  Geo\thistory")
	want := []string{"geo", "europe", "history"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseTagList = %q, want %q", got, want)
	}
}

func TestParseNoteType(t *testing.T) {
	if ParseNoteType(" Cloze ") != NoteCloze {
		t.Error("expected cloze")
	}
	if ParseNoteType("whatever") != NoteBasic {
		t.Error("expected basic fallback")
	}
}

func TestClip(t *testing.T) {
	if got := Clip("zażółć", 3); got != "zaż" {
		t.Errorf("Clip = %q, want %q", got, "zaż")
	}
	if got := Clip("abc", 10); got != "abc" {
		t.Errorf("Clip = %q, want %q", got, "abc")
	}
}
