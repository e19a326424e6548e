package sources

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vigia/sentinela/core"
)

// CatalogEntry is the YAML-facing shape of one declared Source, mirroring
// the teacher's workflow-definition-from-YAML pattern.
type CatalogEntry struct {
	ID           string   `yaml:"id"`
	Family       string   `yaml:"family"`
	Capabilities []string `yaml:"capabilities"`
	BaseEndpoint string   `yaml:"base_endpoint"`
	Priority     int      `yaml:"priority"`
}

// Catalog is the top-level YAML document: a flat list of source
// declarations.
type Catalog struct {
	Sources []CatalogEntry `yaml:"sources"`
}

// LoadCatalog parses a YAML source table and declares every entry into
// reg.
func LoadCatalog(path string, reg *Registry) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.NewError("LoadCatalog", core.KindConfiguration, path, "cannot read source catalog", err)
	}

	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return core.NewError("LoadCatalog", core.KindConfiguration, path, "cannot parse source catalog", err)
	}

	for _, e := range cat.Sources {
		caps := make([]core.Capability, 0, len(e.Capabilities))
		for _, c := range e.Capabilities {
			caps = append(caps, core.Capability(c))
		}
		reg.Declare(&core.Source{
			ID:           e.ID,
			Family:       core.SourceFamily(e.Family),
			Capabilities: caps,
			BaseEndpoint: e.BaseEndpoint,
			Priority:     e.Priority,
		})
	}
	return nil
}

// DefaultCatalogYAML is the built-in 15-source table used when no catalog
// file is configured, covering every capability named in the spec across
// the federal/state/portal/tce families.
const DefaultCatalogYAML = `
sources:
  - id: portal-transparencia
    family: federal
    capabilities: [contracts, expenses, biddings]
    base_endpoint: https://api.portaldatransparencia.gov.br
    priority: 1
  - id: compras-gov
    family: federal
    capabilities: [contracts, biddings]
    base_endpoint: https://compras.dados.gov.br
    priority: 2
  - id: siconv
    family: federal
    capabilities: [contracts, expenses]
    base_endpoint: https://api.convenios.gov.br
    priority: 3
  - id: tcu-contas
    family: tce
    capabilities: [contracts, biddings]
    base_endpoint: https://contas.tcu.gov.br
    priority: 4
  - id: tce-sp
    family: tce
    capabilities: [contracts, expenses, biddings]
    base_endpoint: https://www.tce.sp.gov.br
    priority: 5
  - id: tce-mg
    family: tce
    capabilities: [contracts, expenses]
    base_endpoint: https://www.tce.mg.gov.br
    priority: 6
  - id: tce-rs
    family: tce
    capabilities: [contracts, biddings]
    base_endpoint: https://www.tce.rs.gov.br
    priority: 7
  - id: portal-sp
    family: state
    capabilities: [contracts, servants, expenses]
    base_endpoint: https://www.transparencia.sp.gov.br
    priority: 4
  - id: portal-rj
    family: state
    capabilities: [contracts, expenses]
    base_endpoint: https://www.transparencia.rj.gov.br
    priority: 5
  - id: portal-mg
    family: state
    capabilities: [servants, expenses]
    base_endpoint: https://www.transparencia.mg.gov.br
    priority: 6
  - id: ibge-localidades
    family: portal
    capabilities: [geographic]
    base_endpoint: https://servicodados.ibge.gov.br
    priority: 2
  - id: datasus
    family: federal
    capabilities: [health-data]
    base_endpoint: https://datasus.saude.gov.br
    priority: 3
  - id: inep-censo
    family: federal
    capabilities: [education-data]
    base_endpoint: https://www.gov.br/inep
    priority: 3
  - id: servidores-gov
    family: federal
    capabilities: [servants]
    base_endpoint: https://api.portaldatransparencia.gov.br/servidores
    priority: 1
  - id: ckan-dados-abertos
    family: portal
    capabilities: [contracts, expenses, biddings, geographic]
    base_endpoint: https://dados.gov.br
    priority: 8
`

// LoadDefaultCatalog declares the built-in 15-source table into reg,
// used when no CATALOG_PATH override is configured.
func LoadDefaultCatalog(reg *Registry) error {
	var cat Catalog
	if err := yaml.Unmarshal([]byte(DefaultCatalogYAML), &cat); err != nil {
		return fmt.Errorf("parse default catalog: %w", err)
	}
	for _, e := range cat.Sources {
		caps := make([]core.Capability, 0, len(e.Capabilities))
		for _, c := range e.Capabilities {
			caps = append(caps, core.Capability(c))
		}
		reg.Declare(&core.Source{
			ID:           e.ID,
			Family:       core.SourceFamily(e.Family),
			Capabilities: caps,
			BaseEndpoint: e.BaseEndpoint,
			Priority:     e.Priority,
		})
	}
	return nil
}
