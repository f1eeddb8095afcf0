package components

// Component is an embeddable interactive unit a lesson binding can refer to
// by name.
type Component interface {
	Name() string
	Title() string
	Render(width int) string
}

// Lookuper resolves component names. The catalog checks every binding
// against one at load time.
type Lookuper interface {
	Lookup(name string) (Component, bool)
}
