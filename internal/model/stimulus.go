// Package model defines the core domain models used throughout the application.
package model

import (
	"fmt"
	"regexp"
)

// Category is the stimulus class shared by the sequence generator and the classifier.
type Category string

// Category constants.
const (
	CategoryProbe      Category = "probe"
	CategoryIrrelevant Category = "irrelevant"
	CategoryTarget     Category = "target"
	CategoryNontarget  Category = "nontarget"
)

// ParseCategory accepts the canonical names plus the "irr" filename prefix.
func ParseCategory(s string) (Category, error) {
	switch s {
	case "probe":
		return CategoryProbe, nil
	case "irrelevant", "irr":
		return CategoryIrrelevant, nil
	case "target":
		return CategoryTarget, nil
	case "nontarget":
		return CategoryNontarget, nil
	default:
		return "", fmt.Errorf("unknown category %q", s)
	}
}

var objectNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// ValidObjectName reports whether name is usable as an object name: letters,
// digits, '_' and '-', starting with a letter or digit. Object names are
// carried in marker fields, which use '|', ',' and '=' as separators.
func ValidObjectName(name string) bool {
	return objectNamePattern.MatchString(name)
}

// IsS1 reports whether the category belongs to the S1 (image) stimulus.
func (c Category) IsS1() bool {
	return c == CategoryProbe || c == CategoryIrrelevant
}

// IsS2 reports whether the category belongs to the S2 (digit string) stimulus.
func (c Category) IsS2() bool {
	return c == CategoryTarget || c == CategoryNontarget
}

// View is one image of a stimulus object.
type View struct {
	// ID is the image identifier, normally the file name.
	ID     string `json:"id"`
	Path   string `json:"path,omitempty"`
	Number int    `json:"number"`
}

// StimulusObject groups the views of one semantic object.
type StimulusObject struct {
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Views    []View   `json:"views"`
}

// ViewIDs returns the ordered view identifiers.
func (o StimulusObject) ViewIDs() []string {
	ids := make([]string, len(o.Views))
	for i, v := range o.Views {
		ids[i] = v.ID
	}
	return ids
}
