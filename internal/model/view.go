package model

// AllView is the view name that matches every document.
const AllView = "All"

// View is a named filter over the document collection.
// An empty Class selects every document.
type View struct {
	Name  string `json:"name"`
	Class string `json:"class,omitempty"`
}

// Matches reports whether doc belongs to the view.
func (v View) Matches(doc Document) bool {
	return v.Class == "" || doc.Class == v.Class
}
