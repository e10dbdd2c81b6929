// Package serialize implements the plan document format: a JSON-shaped
// encoding of a plan.Plan that round-trips structurally, so a chosen
// plan can cross a process boundary to a distributed executor.
//
// encoding/json is used directly rather than a third-party codec: this is
// the one boundary in the module that talks to an external process over
// a wire format rather than to another in-process component, and the
// standard encoder already covers everything a schema this shape needs.
package serialize

// VariableDoc is the `{id, name}` pair used wherever a variable is
// referenced inside a node body.
type VariableDoc struct {
	Id   uint64 `json:"id"`
	Name string `json:"name"`
}

// SortElementDoc is one `{inVariable, ascending}` sort key.
type SortElementDoc struct {
	InVariable VariableDoc `json:"inVariable"`
	Ascending  bool        `json:"ascending"`
}

// ModificationOptionsDoc is the `{waitForSync, ignoreErrors, keepNull,
// mergeObjects}` options object carried by Insert/Remove/Update/Replace.
type ModificationOptionsDoc struct {
	WaitForSync  bool `json:"waitForSync"`
	IgnoreErrors bool `json:"ignoreErrors"`
	KeepNull     bool `json:"keepNull"`
	MergeObjects bool `json:"mergeObjects"`
}

// ExprDoc mirrors ast.Node field-for-field so an expression tree embeds
// directly into a node body without a bespoke text sublanguage.
type ExprDoc struct {
	Kind           string     `json:"kind"`
	Children       []*ExprDoc `json:"children,omitempty"`
	Value          any        `json:"value,omitempty"`
	VariableName   string     `json:"variableName,omitempty"`
	CollectionName string     `json:"collectionName,omitempty"`
	Operator       string     `json:"operator,omitempty"`
	BindParameter  string     `json:"bindParameter,omitempty"`
}

// RangeBoundDoc serializes one half-open range endpoint.
type RangeBoundDoc struct {
	Attribute  string   `json:"attribute"`
	Expression *ExprDoc `json:"expression,omitempty"`
	Inclusive  bool     `json:"inclusive"`
	HasBound   bool     `json:"hasBound"`
}

// RangeInfoDoc groups a lower/upper bound pair for one attribute.
type RangeInfoDoc struct {
	Attribute string        `json:"attribute"`
	Low       RangeBoundDoc `json:"low"`
	High      RangeBoundDoc `json:"high"`
	Equality  bool          `json:"equality"`
}

// IndexDoc is the subset of catalog.Index serialized into an IndexRange
// node body — enough to re-resolve the same index on deserialization.
type IndexDoc struct {
	Id     string   `json:"id"`
	Type   string   `json:"type"`
	Fields []string `json:"fields"`
	Unique bool     `json:"unique"`
	Sparse bool     `json:"sparse"`
}

// NodeDoc is one entry of the `nodes` list: the common fields every
// node carries, plus whichever variant-specific fields this node's Type
// populates. Unused fields are omitted from the JSON output via
// omitempty/omitzero-style zero values rather than a discriminated
// union — a flat "bag of optional fields per kind" shape.
type NodeDoc struct {
	Type             string   `json:"type"`
	Id               uint64   `json:"id"`
	Dependencies     []uint64 `json:"dependencies"`
	EstimatedCost    float64  `json:"estimatedCost"`
	EstimatedNrItems uint64   `json:"estimatedNrItems"`

	Collection *string `json:"collection,omitempty"`
	OutVar     *VariableDoc `json:"outVariable,omitempty"`
	InVar      *VariableDoc `json:"inVariable,omitempty"`
	Random     bool         `json:"random,omitempty"`

	Index  *IndexDoc      `json:"index,omitempty"`
	Ranges [][]RangeInfoDoc `json:"ranges,omitempty"`
	Reverse bool `json:"reverse,omitempty"`

	Expression   *ExprDoc      `json:"expression,omitempty"`
	ConditionVar *VariableDoc  `json:"conditionVariable,omitempty"`

	SubplanRoot *uint64 `json:"subplanRoot,omitempty"`

	Elements []SortElementDoc `json:"elements,omitempty"`
	Stable   bool             `json:"stable,omitempty"`

	GroupPairs    []GroupPairDoc `json:"groupPairs,omitempty"`
	ExpressionVar *VariableDoc   `json:"expressionVariable,omitempty"`
	KeepVars      []VariableDoc  `json:"keepVariables,omitempty"`
	CountOnly     bool           `json:"countOnly,omitempty"`

	Offset    *uint64 `json:"offset,omitempty"`
	Limit     *uint64 `json:"limit,omitempty"`
	FullCount bool    `json:"fullCount,omitempty"`

	Options         *ModificationOptionsDoc `json:"options,omitempty"`
	InDocVar        *VariableDoc            `json:"inDocVariable,omitempty"`
	InKeyVar        *VariableDoc            `json:"inKeyVariable,omitempty"`
	ReturnNewValues bool                    `json:"returnNewValues,omitempty"`

	ShardVar     *VariableDoc     `json:"shardVariable,omitempty"`
	SortElements []SortElementDoc `json:"sortElements,omitempty"`
	ServerId     string           `json:"serverId,omitempty"`
}

// GroupPairDoc is one `out = in` grouping expression of a Collect node.
type GroupPairDoc struct {
	Out VariableDoc `json:"out"`
	In  VariableDoc `json:"in"`
}

// CollectionUseDoc is one entry of the `collections` list: `{name, type}`
// with type ∈ {"read", "write"}.
type CollectionUseDoc struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// PlanDoc is the full serialized plan document.
type PlanDoc struct {
	Nodes            []NodeDoc          `json:"nodes"`
	Rules            []string           `json:"rules"`
	Collections      []CollectionUseDoc `json:"collections"`
	Variables        []VariableDoc      `json:"variables"`
	EstimatedCost    float64            `json:"estimatedCost"`
	EstimatedNrItems uint64             `json:"estimatedNrItems"`
}
