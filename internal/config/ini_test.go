package config

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseIniRoundTrip(t *testing.T) {
	text := "[global]\nrepo1-path=/var/lib/pgbackrest\ncompress-type=zst\n\n[demo]\npg1-path=/data/pg\n"

	ini, err := ParseIni(strings.NewReader(text))
	if err != nil {
		t.Fatalf("ParseIni: %v", err)
	}

	var buf bytes.Buffer
	if err := RenderIni(&buf, ini); err != nil {
		t.Fatalf("RenderIni: %v", err)
	}

	reparsed, err := ParseIni(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("ParseIni(round trip): %v", err)
	}

	for _, section := range ini.Sections() {
		for _, key := range ini.SectionKeys(section) {
			want, _ := ini.Get(section, key)
			got, ok := reparsed.Get(section, key)
			if !ok || got != want {
				t.Fatalf("round trip mismatch [%s] %s: got %q, want %q", section, key, got, want)
			}
		}
	}
}

func TestParseIniRepeatedKeyAccumulates(t *testing.T) {
	text := "[global]\ndb-include=one\ndb-include=two\n"
	ini, err := ParseIni(strings.NewReader(text))
	if err != nil {
		t.Fatalf("ParseIni: %v", err)
	}
	vals, ok := ini.GetList("global", "db-include")
	if !ok || len(vals) != 2 || vals[0] != "one" || vals[1] != "two" {
		t.Fatalf("db-include = %v", vals)
	}
}

func TestParseIniKeyOutsideSectionErrors(t *testing.T) {
	text := "foo=bar\n"
	if _, err := ParseIni(strings.NewReader(text)); err == nil {
		t.Fatalf("expected error for key outside any section")
	}
}

func TestParseIniCommentsAndBlankLines(t *testing.T) {
	text := "# a comment\n\n[global]\n# another comment\nstanza=demo\n\n"
	ini, err := ParseIni(strings.NewReader(text))
	if err != nil {
		t.Fatalf("ParseIni: %v", err)
	}
	v, ok := ini.Get("global", "stanza")
	if !ok || v != "demo" {
		t.Fatalf("stanza = %q, %v", v, ok)
	}
}
