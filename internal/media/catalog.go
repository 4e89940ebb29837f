package media

// CatalogKind identifies an availability catalog.
type CatalogKind string

// Catalog kinds.
const (
	CatalogApplications CatalogKind = "applications"
	CatalogChannels     CatalogKind = "channels"
	CatalogInputs       CatalogKind = "inputs"
	CatalogModes        CatalogKind = "modes"
	CatalogToggles      CatalogKind = "toggles"
)

// CatalogLoader supplies the availability maps advertised for a device.
//
// Implementations return (nil, nil) or an error when a catalog is not
// available; the descriptor then advertises an empty mapping.
type CatalogLoader interface {
	LoadCatalog(kind CatalogKind) (map[string]any, error)
}

// EmptyCatalog advertises no applications, channels, inputs, modes or toggles.
type EmptyCatalog struct{}

// LoadCatalog always returns nil.
func (EmptyCatalog) LoadCatalog(CatalogKind) (map[string]any, error) {
	return nil, nil
}

// StaticCatalog serves catalogs held in memory, typically from the
// device's configuration block.
type StaticCatalog map[CatalogKind]map[string]any

// LoadCatalog returns a copy of the catalog for kind, or nil if unset.
func (c StaticCatalog) LoadCatalog(kind CatalogKind) (map[string]any, error) {
	return deepCopyMap(c[kind]), nil
}

// catalogSet holds the catalogs resolved for one build.
type catalogSet map[CatalogKind]map[string]any

// get never returns nil so the attribute is never null or omitted.
func (c catalogSet) get(kind CatalogKind) map[string]any {
	if m := c[kind]; m != nil {
		return deepCopyMap(m)
	}
	return map[string]any{}
}

// loadCatalogs fetches every catalog a trait set needs. Failures are
// reported through onError and degrade to an empty mapping.
func loadCatalogs(loader CatalogLoader, traits []Trait, onError func(CatalogKind, error)) catalogSet {
	set := make(catalogSet)
	if loader == nil {
		return set
	}
	for _, kind := range catalogKindsFor(traits) {
		m, err := loader.LoadCatalog(kind)
		if err != nil {
			if onError != nil {
				onError(kind, err)
			}
			continue
		}
		set[kind] = m
	}
	return set
}
