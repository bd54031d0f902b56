// Package classify is a keyword classifier for research-paper abstracts. It
// answers the same three questions as the hosted model: one discipline, one
// methodology and any number of topic categories, each with a confidence.
package classify

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/classifier"
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/record"
)

// DefaultThreshold is the minimum confidence for a topic category.
const DefaultThreshold = 0.5

const (
	FallbackDiscipline  = "Interdisciplinary"
	FallbackMethodology = "Theoretical"
)

// label is one output class and the keywords that vote for it.
type label struct {
	name     string
	keywords []string
}

var disciplines = []label{
	{"Computer Science", []string{
		"algorithm", "software", "neural", "network", "learning", "dataset", "compiler",
		"database", "distributed", "computing", "programming", "machine learning", "deep learning",
		"language model", "transformer",
	}},
	{"Physics", []string{
		"quantum", "particle", "cosmolog", "galax", "photon", "relativity", "plasma",
		"dark matter", "condensed matter", "superconduct", "gravitational", "spin",
	}},
	{"Biology", []string{
		"gene", "genom", "protein", "cell", "species", "evolution", "organism",
		"dna", "rna", "enzyme", "ecolog", "microb",
	}},
	{"Medicine", []string{
		"patient", "clinical", "disease", "therapy", "treatment", "cancer", "hospital",
		"diagnos", "randomized controlled", "mortality", "vaccine", "symptom",
	}},
	{"Chemistry", []string{
		"molecul", "reaction", "catalys", "synthesis", "compound", "polymer",
		"spectroscop", "oxidation", "solvent", "crystal",
	}},
	{"Mathematics", []string{
		"theorem", "proof", "lemma", "algebra", "topolog", "manifold", "conjecture",
		"prime", "equation", "graph theory",
	}},
	{"Economics", []string{
		"market", "price", "econom", "monetary", "inflation", "labor", "labour",
		"trade", "firm", "policy", "gdp",
	}},
	{"Psychology", []string{
		"cognitive", "behavio", "participant", "emotion", "memory", "perception",
		"personality", "mental health", "anxiety", "depression",
	}},
	{"Environmental Science", []string{
		"climate", "emission", "carbon", "pollution", "biodiversity", "ocean",
		"land use", "sustainab", "ecosystem", "precipitation",
	}},
	{"Engineering", []string{
		"robot", "control system", "sensor", "circuit", "mechanical", "manufactur",
		"structural", "turbine", "actuator", "signal processing",
	}},
}

var methodologies = []label{
	{"Experimental", []string{
		"experiment", "randomized", "controlled", "laboratory", "trial", "intervention",
		"we measured", "apparatus", "treatment group",
	}},
	{"Empirical", []string{
		"data", "dataset", "observational", "regression", "sample", "evidence",
		"cohort", "panel", "benchmark", "evaluate",
	}},
	{"Simulation", []string{
		"simulat", "monte carlo", "numerical", "agent-based", "finite element",
		"model the", "computational model",
	}},
	{"Theoretical", []string{
		"theorem", "proof", "derive", "analytical", "framework", "formal",
		"we prove", "closed form", "bound",
	}},
	{"Survey", []string{
		"survey", "review", "meta-analysis", "systematic", "overview", "literature",
		"state of the art",
	}},
	{"Qualitative", []string{
		"interview", "ethnograph", "case study", "thematic", "focus group",
		"qualitative", "grounded theory",
	}},
}

var topics = []label{
	{"machine learning", []string{"machine learning", "neural", "deep learning", "training", "classifier"}},
	{"natural language processing", []string{"language model", "nlp", "text", "transformer", "token"}},
	{"computer vision", []string{"image", "vision", "visual", "segmentation", "object detection"}},
	{"robotics", []string{"robot", "manipulat", "locomotion", "autonomous"}},
	{"security", []string{"attack", "security", "privacy", "adversarial", "encryption"}},
	{"quantum", []string{"quantum", "qubit", "entangle"}},
	{"astrophysics", []string{"galax", "stellar", "cosmolog", "dark matter", "telescope"}},
	{"genomics", []string{"genom", "sequencing", "gene expression", "dna", "rna"}},
	{"neuroscience", []string{"neuron", "brain", "cortex", "neural activity", "fmri"}},
	{"epidemiology", []string{"epidemi", "infection", "outbreak", "prevalence", "cohort"}},
	{"climate", []string{"climate", "warming", "emission", "carbon"}},
	{"materials", []string{"material", "alloy", "crystal", "thin film", "polymer"}},
	{"statistics", []string{"bayesian", "regression", "estimator", "inference", "statistical"}},
	{"education", []string{"student", "teaching", "curriculum", "learner", "classroom"}},
	{"finance", []string{"stock", "asset", "portfolio", "financial", "risk premium"}},
}

// Disciplines lists every discipline the classifier can emit.
func Disciplines() []string { return names(disciplines) }

// Methodologies lists every methodology the classifier can emit.
func Methodologies() []string { return names(methodologies) }

func names(ls []label) []string {
	out := make([]string, len(ls))
	for i, l := range ls {
		out[i] = l.name
	}
	return out
}

// Classify labels abstract. threshold bounds which topic categories are
// reported; values outside (0, 1] fall back to DefaultThreshold.
func Classify(abstract string, threshold float64) classifier.Response {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	tokens := tokenize(abstract)
	lower := strings.ToLower(abstract)

	primary, pConf := single(disciplines, tokens, lower, FallbackDiscipline)
	method, mConf := single(methodologies, tokens, lower, FallbackMethodology)

	type scored struct {
		name string
		p    float64
	}
	var picked []scored
	for _, l := range topics {
		p := sigmoid(float64(score(l, tokens, lower)) - 1)
		if p >= threshold {
			picked = append(picked, scored{l.name, p})
		}
	}
	sort.SliceStable(picked, func(i, j int) bool { return picked[i].p > picked[j].p })

	cats := make([]string, 0, len(picked))
	conf := make(map[string]float64, len(picked))
	for _, s := range picked {
		cats = append(cats, s.name)
		conf[s.name] = s.p
	}

	return classifier.Response{
		PrimaryCategory:     primary,
		ResearchMethodology: method,
		Categories:          record.Normalize(cats),
		Confidence: &classifier.Confidence{
			PrimaryCategory:     pConf,
			ResearchMethodology: mConf,
			Categories:          conf,
		},
	}
}

// single picks the highest scoring label and reports its softmax probability.
// Ties go to the label listed first.
func single(ls []label, tokens []string, lower, fallback string) (string, float64) {
	scores := make([]float64, len(ls))
	best, bestScore := -1, 0
	for i, l := range ls {
		s := score(l, tokens, lower)
		scores[i] = float64(s)
		if s > bestScore {
			best, bestScore = i, s
		}
	}
	if best < 0 {
		return fallback, 1 / float64(len(ls))
	}

	var sum float64
	for _, s := range scores {
		sum += math.Exp(s - float64(bestScore))
	}
	return ls[best].name, 1 / sum
}

// score counts keyword hits. Single-word keywords match as token prefixes so
// stems like "genom" catch "genome" and "genomics".
func score(l label, tokens []string, lower string) int {
	n := 0
	for _, kw := range l.keywords {
		if strings.ContainsAny(kw, " -") {
			n += strings.Count(lower, kw)
			continue
		}
		for _, t := range tokens {
			if strings.HasPrefix(t, kw) {
				n++
			}
		}
	}
	return n
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func tokenize(s string) []string {
	var tokens []string
	for _, word := range strings.Fields(strings.ToLower(s)) {
		word = strings.TrimFunc(word, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if word != "" {
			tokens = append(tokens, word)
		}
	}
	return tokens
}
