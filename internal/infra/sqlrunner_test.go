package infra

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestExtractMarker(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantMarker string
		wantQuery  string
		wantErr    bool
	}{
		{
			name:       "valid",
			query:      "--sql 2a8d48af-a86a-47a7-ba33-40e29e80f422\nselect 1;\n",
			wantMarker: "2a8d48af-a86a-47a7-ba33-40e29e80f422",
			wantQuery:  "select 1;",
		},
		{
			name:       "leading whitespace",
			query:      "\n  --sql 2a8d48af-a86a-47a7-ba33-40e29e80f422\nselect 1;",
			wantMarker: "2a8d48af-a86a-47a7-ba33-40e29e80f422",
			wantQuery:  "select 1;",
		},
		{name: "missing marker", query: "select 1;", wantErr: true},
		{name: "bad uuid", query: "--sql not-a-uuid\nselect 1;", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			marker, query, err := extractMarker(tc.query)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if marker != tc.wantMarker || query != tc.wantQuery {
				t.Fatalf("extractMarker = (%q, %q), want (%q, %q)", marker, query, tc.wantMarker, tc.wantQuery)
			}
		})
	}
}

func TestIsNoRows(t *testing.T) {
	if !IsNoRows(fmt.Errorf("scan: %w", pgx.ErrNoRows)) {
		t.Fatalf("wrapped ErrNoRows should match")
	}
	if IsNoRows(errors.New("boom")) {
		t.Fatalf("unrelated error should not match")
	}
}
