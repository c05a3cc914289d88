package catalog

import (
	"errors"
	"testing"

	"app/internal/model"
)

func TestGetKnownPlans(t *testing.T) {
	cases := []struct {
		id       string
		images   int
		maxScale int
		quality  model.Quality
	}{
		{"trial", 3, 4, model.QualityBasic},
		{"basic", 150, 4, model.QualityBasic},
		{"pro", 400, 8, model.QualityPremium},
		{"premium", 1300, 16, model.QualityUltra},
	}
	for _, c := range cases {
		p, err := Get(c.id)
		if err != nil {
			t.Fatalf("Get(%q) returned error: %v", c.id, err)
		}
		if p.ImagesPerMonth != c.images {
			t.Errorf("plan %s: expected %d images/month, got %d", c.id, c.images, p.ImagesPerMonth)
		}
		if p.MaxScale != c.maxScale {
			t.Errorf("plan %s: expected max scale %d, got %d", c.id, c.maxScale, p.MaxScale)
		}
		if p.Quality != c.quality {
			t.Errorf("plan %s: expected quality %s, got %s", c.id, c.quality, p.Quality)
		}
	}
}

func TestGetUnknownPlan(t *testing.T) {
	if _, err := Get("enterprise"); !errors.Is(err, ErrPlanNotFound) {
		t.Fatalf("expected ErrPlanNotFound, got %v", err)
	}
}

func TestIDsCoversCatalog(t *testing.T) {
	ids := IDs()
	if len(ids) != 4 {
		t.Fatalf("expected 4 plan IDs, got %d", len(ids))
	}
	for _, id := range ids {
		if _, err := Get(id); err != nil {
			t.Errorf("IDs() listed %q but Get failed: %v", id, err)
		}
	}
}
