package main

import (
	"strings"
	"testing"
)

func TestCheckReportsForbiddenImports(t *testing.T) {
	input := `{"ImportPath":"age-of-war/server/internal/sim","Imports":["age-of-war/server/internal/world","github.com/rs/zerolog"]}
{"ImportPath":"age-of-war/server/internal/world","Imports":["age-of-war/server/internal/net/proto","gorm.io/gorm"]}`

	violations, err := check(strings.NewReader(input))
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(violations) != 2 {
		t.Fatalf("expected 2 violations, got %v", violations)
	}
	if violations[0] != "age-of-war/server/internal/world -> age-of-war/server/internal/net/proto" {
		t.Fatalf("unexpected first violation %q", violations[0])
	}
}

func TestCheckRejectsGarbage(t *testing.T) {
	if _, err := check(strings.NewReader("{")); err == nil {
		t.Fatalf("expected decode error")
	}
}
