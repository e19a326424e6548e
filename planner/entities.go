package planner

import (
	"regexp"
	"strings"

	"github.com/vigia/sentinela/core"
)

var (
	yearRe     = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	orgLexicon = []string{
		"ministério da saúde", "ministerio da saude",
		"ministério da educação", "ministerio da educacao",
		"ministério da justiça", "ministerio da justica",
		"ministério da fazenda", "ministerio da fazenda",
		"presidência da república", "presidencia da republica",
	}
	geoLexicon = []string{
		"são paulo", "sao paulo", "rio de janeiro", "minas gerais",
		"rio grande do sul", "bahia", "paraná", "parana",
	}
)

// EntityExtractor maps query text plus its classified intent onto named
// entities grouped by kind. An empty map is a valid result.
type EntityExtractor struct{}

func NewEntityExtractor() *EntityExtractor {
	return &EntityExtractor{}
}

func (e *EntityExtractor) Extract(text string, _ core.IntentType) map[core.EntityKind][]string {
	lower := strings.ToLower(text)
	entities := make(map[core.EntityKind][]string)

	for _, org := range orgLexicon {
		if strings.Contains(lower, org) {
			entities[core.EntityOrganization] = append(entities[core.EntityOrganization], org)
		}
	}
	for _, geo := range geoLexicon {
		if strings.Contains(lower, geo) {
			entities[core.EntityGeographicArea] = append(entities[core.EntityGeographicArea], geo)
		}
	}
	if years := yearRe.FindAllString(text, -1); len(years) > 0 {
		entities[core.EntityDateRange] = years
	}

	return entities
}
