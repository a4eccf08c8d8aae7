package models

import (
	"testing"
	"time"
)

func TestNewItemNilFields(t *testing.T) {
	item := NewItem(nil)
	item.SetContent("safe")
	if got, ok := item.Content(); !ok || got != "safe" {
		t.Errorf("Content = %q, %v", got, ok)
	}
}

func TestURL(t *testing.T) {
	if got := NewItem(map[string]any{FieldURL: "https://a.test/1"}).URL(); got != "https://a.test/1" {
		t.Errorf("URL = %q", got)
	}
	if got := NewItem(nil).URL(); got != "" {
		t.Errorf("URL of empty item = %q, want empty", got)
	}
	if got := NewItem(map[string]any{FieldURL: 42}).URL(); got != "" {
		t.Errorf("URL of non-string field = %q, want empty", got)
	}
}

func TestCreatedAtLayouts(t *testing.T) {
	tests := []struct {
		value string
		want  time.Time
	}{
		{"2025-03-15T10:30:00Z", time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC)},
		{"2025-03-15T10:30:00", time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC)},
		{"2025-03-15 10:30:00", time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC)},
		{"2025-03-15", time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		item := NewItem(map[string]any{FieldCreatedAt: tt.value})
		got, ok := item.CreatedAt()
		if !ok {
			t.Errorf("CreatedAt(%q) not parsed", tt.value)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("CreatedAt(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestCreatedAtDirectTime(t *testing.T) {
	want := time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC)
	item := NewItem(map[string]any{FieldCreatedAt: want})
	got, ok := item.CreatedAt()
	if !ok || !got.Equal(want) {
		t.Errorf("CreatedAt = %v, %v", got, ok)
	}
}

func TestCreatedAtUnparseable(t *testing.T) {
	for _, v := range []any{nil, "last tuesday", 1742034600} {
		item := NewItem(map[string]any{FieldCreatedAt: v})
		if _, ok := item.CreatedAt(); ok {
			t.Errorf("CreatedAt(%v) parsed unexpectedly", v)
		}
	}
}

func TestContentAbsent(t *testing.T) {
	if _, ok := NewItem(nil).Content(); ok {
		t.Error("Content reported present on empty item")
	}
}
