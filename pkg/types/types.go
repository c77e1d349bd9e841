// Package types defines the core data structures for the entity graph:
// documents, spans, mentions, entities, and relationship edges. Everything
// downstream of normalization is expressed in terms of these records.
package types

// Built-in entity type constants. Custom types configured at load time
// extend this set; validation accepts both.
const (
	EntityTypePerson       = "PERSON"
	EntityTypeOrganization = "ORG"
	EntityTypeMoney        = "MONEY"
	EntityTypeDate         = "DATE"
	EntityTypeLocation     = "LOCATION"
	EntityTypePhone        = "PHONE"
	EntityTypeEmail        = "EMAIL"
	EntityTypeDocumentID   = "DOCUMENT_ID"
)

// BuiltinEntityTypes lists the entity types every deployment recognizes,
// before any configured custom types are added.
var BuiltinEntityTypes = []string{
	EntityTypePerson,
	EntityTypeOrganization,
	EntityTypeMoney,
	EntityTypeDate,
	EntityTypeLocation,
	EntityTypePhone,
	EntityTypeEmail,
	EntityTypeDocumentID,
}

// Relation type constants. RelCoOccurs is the weak, undirected signal
// produced by window co-occurrence; the rest are directed relations
// asserted by an extractor.
const (
	RelCoOccurs          = "co_occurs"
	RelWorksFor          = "works_for"
	RelLocatedAt         = "located_at"
	RelCommunicatedWith  = "communicated_with"
	RelSignedBy          = "signed_by"
	RelDated             = "dated"
	RelCost              = "cost"
)

// ValidRelationTypes lists the relation types an extractor may assert.
var ValidRelationTypes = []string{
	RelCoOccurs,
	RelWorksFor,
	RelLocatedAt,
	RelCommunicatedWith,
	RelSignedBy,
	RelDated,
	RelCost,
}

// IsBuiltinEntityType reports whether entityType is one of the built-in types.
func IsBuiltinEntityType(entityType string) bool {
	for _, t := range BuiltinEntityTypes {
		if t == entityType {
			return true
		}
	}
	return false
}

// IsValidRelationType reports whether relType is a known relation type.
func IsValidRelationType(relType string) bool {
	for _, t := range ValidRelationTypes {
		if t == relType {
			return true
		}
	}
	return false
}
