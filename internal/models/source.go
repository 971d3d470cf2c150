package models

import "time"

// SourceStatus is the processing state of a Source.
type SourceStatus string

const (
	SourcePending   SourceStatus = "pending"
	SourceProcessed SourceStatus = "processed"
	SourceIgnored   SourceStatus = "ignored"
)

// Valid reports whether s is one of the known statuses.
func (s SourceStatus) Valid() bool {
	switch s {
	case SourcePending, SourceProcessed, SourceIgnored:
		return true
	}
	return false
}

// Source kinds.
const (
	SourceKindText         = "text"
	SourceKindProposalText = "proposal_text"
	SourceKindURL          = "url"
	SourceKindFile         = "file"
	SourceKindInbox        = "inbox"
	SourceKindMochiPull    = "mochi_pull"
	SourceKindManualBasic  = "manual_basic"
	SourceKindManualCloze  = "manual_cloze"
)

// MaxSourceLabel is the number of characters kept from a source label.
const MaxSourceLabel = 160

// Source is a unit of ingested raw material.
type Source struct {
	ID        int64          `json:"id"`
	UserID    int64          `json:"user_id"`
	Kind      string         `json:"kind"`
	Label     string         `json:"label"`
	Text      string         `json:"text"`
	FilePath  string         `json:"file_path,omitempty"`
	URL       string         `json:"url,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
	Status    SourceStatus   `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
}

// Clip returns at most n runes of s.
func Clip(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
