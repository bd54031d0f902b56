package classify

import (
	"testing"

	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/record"
)

func TestClassifyComputerVision(t *testing.T) {
	got := Classify("We train a deep neural network on a large image dataset and evaluate segmentation accuracy.", 0)
	if got.PrimaryCategory != "Computer Science" {
		t.Errorf("expected Computer Science, got %s", got.PrimaryCategory)
	}
	if got.ResearchMethodology != "Empirical" {
		t.Errorf("expected Empirical, got %s", got.ResearchMethodology)
	}
	want := record.Categories{"computer vision", "machine learning"}
	if got.Categories.String() != want.String() {
		t.Errorf("expected categories %q, got %q", want, got.Categories)
	}
}

func TestClassifyPhysicsSimulation(t *testing.T) {
	got := Classify("Monte Carlo simulations of dark matter halos reveal galaxy formation rates.", DefaultThreshold)
	if got.PrimaryCategory != "Physics" {
		t.Errorf("expected Physics, got %s", got.PrimaryCategory)
	}
	if got.ResearchMethodology != "Simulation" {
		t.Errorf("expected Simulation, got %s", got.ResearchMethodology)
	}
	if len(got.Categories) != 1 || got.Categories[0] != "astrophysics" {
		t.Errorf("expected [astrophysics], got %q", got.Categories)
	}
}

func TestClassifyThreshold(t *testing.T) {
	got := Classify("We train a deep neural network on a large image dataset and evaluate segmentation accuracy.", 0.7)
	if len(got.Categories) != 1 || got.Categories[0] != "computer vision" {
		t.Errorf("expected only computer vision above 0.7, got %q", got.Categories)
	}
}

func TestClassifyFallback(t *testing.T) {
	got := Classify("Lorem ipsum dolor sit amet.", DefaultThreshold)
	if got.PrimaryCategory != FallbackDiscipline {
		t.Errorf("expected %s, got %s", FallbackDiscipline, got.PrimaryCategory)
	}
	if got.ResearchMethodology != FallbackMethodology {
		t.Errorf("expected %s, got %s", FallbackMethodology, got.ResearchMethodology)
	}
	if len(got.Categories) != 0 {
		t.Errorf("expected no categories, got %q", got.Categories)
	}
}

func TestConfidenceRange(t *testing.T) {
	got := Classify("Monte Carlo simulations of dark matter halos reveal galaxy formation rates.", DefaultThreshold)
	c := got.Confidence
	if c == nil {
		t.Fatal("expected confidence")
	}
	uniform := 1 / float64(len(Disciplines()))
	if c.PrimaryCategory <= uniform || c.PrimaryCategory > 1 {
		t.Errorf("primary confidence out of range: %f", c.PrimaryCategory)
	}
	if c.ResearchMethodology <= 0 || c.ResearchMethodology > 1 {
		t.Errorf("methodology confidence out of range: %f", c.ResearchMethodology)
	}
	for name, p := range c.Categories {
		if p < DefaultThreshold || p > 1 {
			t.Errorf("category %s confidence out of range: %f", name, p)
		}
	}
}

func TestLabelSetsContainFallbacks(t *testing.T) {
	found := false
	for _, m := range Methodologies() {
		if m == FallbackMethodology {
			found = true
		}
	}
	if !found {
		t.Errorf("fallback methodology %q is not an emitted label", FallbackMethodology)
	}
	if len(Disciplines()) == 0 {
		t.Error("expected disciplines")
	}
}

func TestTokenize(t *testing.T) {
	got := tokenize("Hello, World! (RNA-seq) 42")
	want := []string{"hello", "world", "rna-seq", "42"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}
