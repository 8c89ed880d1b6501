// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package parse

import (
	"strings"

	"github.com/pdiddy/corpus-engine/pkg/types"
)

// Keyword tables for section classification. Matching is substring-based
// on lowercased titles, so "Acknowledgements" and "acknowledgment" both
// hit "acknow".
var (
	nullKeys = []string{
		"acknow", "reference", "author", "highlight", "supple", "citing",
		"appendix", "fund", "nomencl", "support", "times cited",
		"publication history", "keywords", "key words", "conflict",
	}
	resultsKeys = []string{"result", "discuss"}
	recipeKeys  = []string{
		"material", "reage", "prep", "treat", "depo", "processing",
		"synth", "fabrica",
	}
	characterizationKeys = []string{
		"charac", "test", "analys", "measurement", "quanti", "identi",
		"scopy", "spectro", "x-ray", "diffrac", "quali", "xr",
	}
	experimentalKeys = []string{"experi", "method"}
)

func containsAny(s string, keys []string) bool {
	for _, k := range keys {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// ClassifySection maps a section title (and the title of its enclosing
// section, when heading nesting is known) to a kind. Null-kind sections
// carry no body content worth storing and are dropped by the assembler.
//
// The recipe / characterization split only fires under an experimental or
// methods parent: "Synthesis" under "Experimental" is a recipe, but a
// top-level "Synthesis of prior work" review section is not.
func ClassifySection(title, parent string) types.SectionKind {
	section := strings.ToLower(title)
	super := strings.ToLower(parent)
	both := section + " " + super

	if containsAny(both, nullKeys) {
		return types.SectionNull
	}

	// Abstract matches on the section's own title only; a parent titled
	// "Abstract" must not relabel its children.
	if strings.Contains(section, "abstract") {
		return types.SectionAbstract
	}

	if strings.Contains(both, "intro") {
		return types.SectionIntro
	}

	if containsAny(both, resultsKeys) {
		return types.SectionResults
	}

	if strings.Contains(both, "conclu") {
		return types.SectionConclusions
	}

	if containsAny(section, recipeKeys) &&
		containsAny(super, experimentalKeys) &&
		!containsAny(both, []string{"charac", "detect", "analys", "measurement", "quanti", "test"}) {
		return types.SectionRecipe
	}

	if containsAny(section, characterizationKeys) &&
		containsAny(super, experimentalKeys) &&
		!containsAny(both, []string{"synth", "prepar"}) {
		return types.SectionMethods
	}

	return types.SectionOther
}
