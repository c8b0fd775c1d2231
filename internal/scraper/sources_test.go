package scraper

import (
	"testing"

	"pricewatch/pkg/utils"
)

func TestNewSourcesPageWindows(t *testing.T) {
	cfg := utils.DefaultConfig().Scraper
	cfg.Sources = []string{"amazon", "walmart", "glotelho", "mirror"}
	cfg.PagesBySource = map[string]int{"glotelho": 3, "mirror": 1}

	sources, err := NewSources(cfg, testCodec(), quietLogger())
	if err != nil {
		t.Fatalf("NewSources: %v", err)
	}

	want := map[string]int{"amazon": 5, "walmart": 5, "glotelho": 3, "mirror": 1}
	for _, src := range sources {
		var got int
		switch s := src.(type) {
		case *HTMLSource:
			got = s.pager.Pages
		case *Mirror:
			got = s.pager.Pages
		default:
			t.Fatalf("unexpected source type %T", src)
		}
		if got != want[src.Name()] {
			t.Errorf("%s pages = %d; want %d", src.Name(), got, want[src.Name()])
		}
	}
}

func TestNewSourcesUnknownSource(t *testing.T) {
	cfg := utils.DefaultConfig().Scraper
	cfg.Sources = []string{"amazon", "ebay"}
	if _, err := NewSources(cfg, testCodec(), quietLogger()); err == nil {
		t.Error("expected error for unknown source")
	}
}
