// fastview implements simple server side views: a view renders its initial markup into
// the page template and then publishes element updates, which the page script applies
// to the elements by id.
package fastview

import (
	"html/template"
)

// Reserved op keys. Any other key is an attribute name.
const (
	// TextContent sets ele.textContent.
	TextContent = "textContent"
	// InnerHTML replaces the element's children with the given markup.
	InnerHTML = "innerHTML"
)

// EleUpdate is an element identifier and a set of operations to apply to its attributes/content.
type EleUpdate struct {
	// The id by which to find the element
	EleId string
	// Op keys are attrib keys or one of the reserved keys, values are the strings to which these are set.
	// Example: ('fill','#ff0000') means 'set attribute fill to #ff0000'.
	Ops []Op
}

// Op is a key and value. For example an html attribute and its new value.
type Op struct {
	Key   string
	Value string
}

// ViewComponent implements server side views: Parse to add their initial form to the
// page template and Updates to obtain the chan by which ele-updates are notified.
type ViewComponent interface {
	Updates() <-chan []EleUpdate
	// Parse parses the view-component and adds it to the passed parent template, returning
	// the name of the template it defined.
	Parse(*template.Template) (string, error)
}

// Merge folds next into cur, op by op; later values win for the same key.
func (cur *EleUpdate) Merge(next EleUpdate) {
	for _, op := range next.Ops {
		replaced := false
		for i := range cur.Ops {
			if cur.Ops[i].Key == op.Key {
				cur.Ops[i].Value = op.Value
				replaced = true
				break
			}
		}
		if !replaced {
			cur.Ops = append(cur.Ops, op)
		}
	}
}
