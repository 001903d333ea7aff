package types

// TypeRef identifies an entity type in the type model registry.
type TypeRef struct {
	App  uint8
	Type uint8
}

// ValueKind tags the dynamic shape of an Entity attribute value (spec
// §9 "Dynamic entity shape": entities are unbounded key->value maps at
// design level; we read them through the type model as a tagged tree
// rather than through reflection).
type ValueKind uint8

const (
	ValueString ValueKind = iota
	ValueNumber
	ValueAggregate
	ValueAggregateList
)

// Value is one attribute value on an Entity.
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
	Agg  *Entity   // set when Kind == ValueAggregate
	List []*Entity // set when Kind == ValueAggregateList
}

// Entity is a dynamically-shaped loaded object, read only through its
// TypeModel's Values/Associations maps.
type Entity struct {
	TypeRef TypeRef
	Fields  map[string]Value
}

// ValueModelType enumerates the kinds of fields a TypeModel declares.
type ValueModelType uint8

const (
	ModelString ValueModelType = iota
	ModelAggregation
)

// Cardinality describes how many values an association may hold.
type Cardinality uint8

const (
	CardinalityOne Cardinality = iota
	CardinalityAny
)

// ValueModel describes one scalar field of a TypeModel.
type ValueModel struct {
	ID   int
	Type ValueModelType
}

// AssociationModel describes one aggregation field of a TypeModel,
// including the type it refers to (RefType) for recursive descent.
type AssociationModel struct {
	ID          int
	Type        ValueModelType
	RefType     TypeRef
	Cardinality Cardinality
}

// TypeModel is the shape of one entity type, as resolved by the type
// model registry collaborator.
type TypeModel struct {
	Ref          TypeRef
	Values       map[string]ValueModel
	Associations map[string]AssociationModel
}
