package component

// Name is the stable identifier scenes and session files refer to.
type Name struct {
	Value string
}

var NameComponent = NewComponent[Name]()
