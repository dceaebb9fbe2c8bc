// Package form reads HTML forms into the name/value pairs a browser would
// submit for them.
package form

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	ErrFormNotFound = errors.New("form not found")
	ErrInvalidForm  = errors.New("invalid form")
)

// Target is where a form submits to. Method is always "POST".
type Target struct {
	Action string
	Method string
}

// Extract locates the form with the given id and snapshots its fields.
func Extract(doc *goquery.Document, formID string) (*Snapshot, error) {
	sel := doc.Find("form").FilterFunction(func(_ int, s *goquery.Selection) bool {
		id, ok := s.Attr("id")
		return ok && id == formID
	}).First()
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrFormNotFound, formID)
	}
	return ExtractSelection(sel)
}

// ExtractSelection snapshots an already located form element.
func ExtractSelection(sel *goquery.Selection) (*Snapshot, error) {
	target, err := ExtractTarget(sel)
	if err != nil {
		return nil, err
	}
	snap := newSnapshot(target)

	sel.Find("input, select, textarea").Each(func(_ int, el *goquery.Selection) {
		name, ok := el.Attr("name")
		if !ok || name == "" {
			return
		}
		switch goquery.NodeName(el) {
		case "input":
			typ := strings.ToLower(el.AttrOr("type", ""))
			if typ == "submit" {
				return
			}
			value := el.AttrOr("value", "")
			// hidden inputs with an id carry per-render tokens the caller must
			// supply fresh
			if _, hasID := el.Attr("id"); typ == "hidden" && hasID {
				value = ""
			}
			snap.add(name, value)
		case "select":
			value := ""
			el.Find("option").Each(func(_ int, opt *goquery.Selection) {
				v := opt.AttrOr("value", "")
				if _, selected := opt.Attr("selected"); selected {
					value = v
				}
				snap.Options[name] = append(snap.Options[name], v)
			})
			snap.add(name, value)
		case "textarea":
			snap.add(name, "")
		}
	})
	return snap, nil
}

// ExtractTarget reads the action and method attributes of a form element.
func ExtractTarget(sel *goquery.Selection) (Target, error) {
	action, ok := sel.Attr("action")
	if !ok || strings.TrimSpace(action) == "" {
		return Target{}, fmt.Errorf("%w: missing action", ErrInvalidForm)
	}
	if method, ok := sel.Attr("method"); ok && !strings.EqualFold(method, "post") {
		return Target{}, fmt.Errorf("%w: unsupported method %q", ErrInvalidForm, method)
	}
	return Target{Action: action, Method: "POST"}, nil
}
