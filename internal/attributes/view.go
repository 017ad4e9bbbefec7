// Package attributes extracts a structured, read-only view of a Trino HTTP
// request's routing-relevant attributes: user, source, client tags, SQL
// text, default catalog/schema, prepared statements, referenced
// catalogs/schemas/tables, and query type.
package attributes

// QueryType is a coarse classification of the leading SQL keyword.
type QueryType string

const (
	QueryTypeSelect   QueryType = "SELECT"
	QueryTypeInsert   QueryType = "INSERT"
	QueryTypeUpdate   QueryType = "UPDATE"
	QueryTypeDelete   QueryType = "DELETE"
	QueryTypeExplain  QueryType = "EXPLAIN"
	QueryTypeDescribe QueryType = "DESCRIBE"
	QueryTypeShow     QueryType = "SHOW"
	QueryTypeCreate   QueryType = "CREATE"
	QueryTypeDrop     QueryType = "DROP"
	QueryTypeAlter    QueryType = "ALTER"
	QueryTypeUse      QueryType = "USE"
	QueryTypeCall     QueryType = "CALL"
	QueryTypeOther    QueryType = "other"
	QueryTypeUnknown  QueryType = "unknown"
)

// ResourceGroupQueryType is a coarser tag derived from QueryType.
type ResourceGroupQueryType string

const (
	ResourceGroupDataDefinition ResourceGroupQueryType = "DATA_DEFINITION"
	ResourceGroupDataManagement ResourceGroupQueryType = "DATA_MANAGEMENT"
	ResourceGroupDescribe       ResourceGroupQueryType = "DESCRIBE"
	ResourceGroupReadOnly       ResourceGroupQueryType = "READ_ONLY"
	ResourceGroupUnknown        ResourceGroupQueryType = "UNKNOWN"
)

// ResourceGroupFor derives the coarse resource-group tag for a query type.
func ResourceGroupFor(qt QueryType) ResourceGroupQueryType {
	switch qt {
	case QueryTypeSelect, QueryTypeExplain, QueryTypeShow:
		return ResourceGroupReadOnly
	case QueryTypeDescribe:
		return ResourceGroupDescribe
	case QueryTypeInsert, QueryTypeUpdate, QueryTypeDelete, QueryTypeCall, QueryTypeUse:
		return ResourceGroupDataManagement
	case QueryTypeCreate, QueryTypeDrop, QueryTypeAlter:
		return ResourceGroupDataDefinition
	default:
		return ResourceGroupUnknown
	}
}

// View is a read-only snapshot of a request's routing-relevant attributes,
// presented to the routing group selector and rules engine.
type View struct {
	User           string
	Source         string
	ClientTags     map[string]struct{}
	ClientInfo     string
	DefaultCatalog *string
	DefaultSchema  *string

	// PreparedStatements maps statement name to SQL text, from
	// X-Trino-Prepared-Statement (URL-encoded, comma-joined name=value pairs).
	PreparedStatements map[string]string

	QueryType              QueryType
	ResourceGroupQueryType ResourceGroupQueryType

	Catalogs       map[string]struct{}
	Schemas        map[string]struct{}
	CatalogSchemas map[string]struct{}
	Tables         map[string]struct{}

	// Unqualified holds identifiers that could not be fully qualified
	// because a required default was absent; they are excluded from Tables.
	Unqualified map[string]struct{}

	// RawSQL is retained for audit only; never exposed to rule predicates.
	RawSQL string
}

// Minimal returns a view populated with only the user attribute, used for
// requests outside /v1/statement.
func Minimal(user string) *View {
	return &View{
		User:                   user,
		ClientTags:             map[string]struct{}{},
		QueryType:              QueryTypeUnknown,
		ResourceGroupQueryType: ResourceGroupUnknown,
		Catalogs:               map[string]struct{}{},
		Schemas:                map[string]struct{}{},
		CatalogSchemas:         map[string]struct{}{},
		Tables:                 map[string]struct{}{},
		Unqualified:            map[string]struct{}{},
		PreparedStatements:     map[string]string{},
	}
}

// HasTable reports whether the fully-qualified table name was referenced.
func (v *View) HasTable(fqName string) bool {
	_, ok := v.Tables[fqName]
	return ok
}

// HasCatalog reports whether the catalog was referenced.
func (v *View) HasCatalog(name string) bool {
	_, ok := v.Catalogs[name]
	return ok
}

// TableList returns the referenced tables as a sorted-free slice (callers
// needing determinism should sort).
func (v *View) TableList() []string {
	out := make([]string, 0, len(v.Tables))
	for t := range v.Tables {
		out = append(out, t)
	}
	return out
}

// DefaultCatalogOrEmpty returns the default catalog, or "" if unset,
// treating an unset default as equivalent to the empty string for equality
// and presence checks in rule predicates.
func (v *View) DefaultCatalogOrEmpty() string {
	if v.DefaultCatalog == nil {
		return ""
	}
	return *v.DefaultCatalog
}

// DefaultSchemaOrEmpty mirrors DefaultCatalogOrEmpty for the schema default.
func (v *View) DefaultSchemaOrEmpty() string {
	if v.DefaultSchema == nil {
		return ""
	}
	return *v.DefaultSchema
}
