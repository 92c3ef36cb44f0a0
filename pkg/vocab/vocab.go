// Package vocab defines the IRIs mxgraph reads and writes.
//
// Terms come from Darwin Core (specimen records), CDAO (comparative data
// matrices), the Hymenoptera Anatomy Ontology, the mx database vocabulary,
// the OBO relations ontology and the Phenoscape vocabulary. The reserved
// RDF, RDFS and OWL IRIs name the edge types of the storage mapping.
package vocab

import "github.com/hymao/mxgraph/pkg/owl"

// Namespaces.
const (
	DWC        = "http://rs.tdwg.org/dwc/terms/"
	CDAO       = "http://www.evolutionaryontology.org/cdao/1.0/cdao.owl#"
	MX         = "http://purl.oclc.org/NET/mx-database/"
	OBO        = "http://purl.obolibrary.org/obo/"
	Phenoscape = "http://vocab.phenoscape.org/"

	RDF  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFS = "http://www.w3.org/2000/01/rdf-schema#"
	OWL  = "http://www.w3.org/2002/07/owl#"
)

// Darwin Core terms.
const (
	// Occurrence is the class of specimen records.
	Occurrence owl.IRI = DWC + "Occurrence"

	// IdentificationID links an Occurrence to its Determination.
	IdentificationID owl.IRI = DWC + "identificationID"

	// TaxonID links a Determination to its Taxon.
	TaxonID owl.IRI = DWC + "taxonID"

	IndividualID  owl.IRI = DWC + "individualID"
	CollectionID  owl.IRI = DWC + "collectionID"
	CatalogNumber owl.IRI = DWC + "catalogNumber"
)

// CDAO terms.
const (
	// CharacterStateDatum is the class of matrix cells.
	CharacterStateDatum owl.IRI = CDAO + "CharacterStateDatum"

	HasState           owl.IRI = CDAO + "has_State"
	BelongsToCharacter owl.IRI = CDAO + "belongs_to_Character"
	BelongsToTU        owl.IRI = CDAO + "belongs_to_TU"

	// HasExternalReference links an OTU to the Taxon it stands for.
	HasExternalReference owl.IRI = CDAO + "has_External_Reference"

	StandardCharacter        owl.IRI = CDAO + "StandardCharacter"
	StandardState            owl.IRI = CDAO + "Standard"
	CharacterStateDataMatrix owl.IRI = CDAO + "CharacterStateDataMatrix"
	StandardStateDatum       owl.IRI = CDAO + "StandardStateDatum"
	TU                       owl.IRI = CDAO + "TU"
	HasTU                    owl.IRI = CDAO + "has_TU"
	HasCharacter             owl.IRI = CDAO + "has_Character"
)

// mx database terms.
const (
	// CanHaveState relates a Character to its possible States.
	CanHaveState owl.IRI = MX + "can_have_state"

	// DenotesPhenotypeOf relates a State to the organisms showing it.
	DenotesPhenotypeOf owl.IRI = MX + "denotes_phenotype_of"

	// DescribesState is the annotation linking a phenotype class to a State.
	DescribesState owl.IRI = MX + "describes_state"

	// HasMxID is the annotation carrying a Character's external identifier.
	HasMxID owl.IRI = MX + "has_mx_id"
)

// Anatomy and relations.
const (
	// FemaleOrganism is HAO "female organism".
	FemaleOrganism owl.IRI = OBO + "HAO_0000028"

	// HasPart is the parthood relation used to build concept queries.
	HasPart owl.IRI = OBO + "OBO_REL_has_part"

	InheresIn       owl.IRI = OBO + "OBO_REL_inheres_in"
	InheresInPartOf owl.IRI = OBO + "OBO_REL_inheres_in_part_of"
	Towards         owl.IRI = OBO + "OBO_REL_towards"
	BearerOf        owl.IRI = OBO + "OBO_REL_bearer_of"
)

// Phenoscape terms.
const (
	// PositedBy is the provenance annotation on propagated assertions.
	PositedBy owl.IRI = Phenoscape + "posited_by"

	Publication     owl.IRI = Phenoscape + "publication"
	Taxon           owl.IRI = Phenoscape + "taxon"
	RepresentsTaxon owl.IRI = Phenoscape + "represents_taxon"
	Specimen        owl.IRI = Phenoscape + "specimen"
)

// Reserved IRIs used as edge types by the storage mapping.
const (
	Type                owl.IRI = RDF + "type"
	SubClassOf          owl.IRI = RDFS + "subClassOf"
	SubPropertyOf       owl.IRI = RDFS + "subPropertyOf"
	EquivalentClass     owl.IRI = OWL + "equivalentClass"
	DisjointWith        owl.IRI = OWL + "disjointWith"
	Imports             owl.IRI = OWL + "imports"
	Thing               owl.IRI = OWL + "Thing"
	Nothing             owl.IRI = OWL + "Nothing"
	NamedIndividualType owl.IRI = OWL + "NamedIndividual"
)

// Anatomy ontologies imported by the character retriever.
const (
	HAOOntology  owl.IRI = "http://purl.org/obo/owl/HAO"
	PATOOntology owl.IRI = "http://purl.org/obo/owl/PATO"
	BSPOOntology owl.IRI = "http://purl.org/obo/owl/BSPO"

	// DefaultConcept is HAO "anatomical structure", queried when no concept
	// is given on the command line.
	DefaultConcept owl.IRI = "http://purl.org/obo/owl/HAO#HAO_0000041"
)

// Reserved reports whether iri is one of the edge types the storage mapping
// gives structural meaning to.
func Reserved(iri owl.IRI) bool {
	switch iri {
	case Type, SubClassOf, SubPropertyOf, EquivalentClass, DisjointWith, Imports:
		return true
	}
	return false
}
