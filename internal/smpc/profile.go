// Package smpc holds the ANSM product characteristics profile: boundary
// markers, class vocabulary and metadata extraction from the page.
package smpc

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/medicsearch/rcpgest/internal/builder"
	"github.com/medicsearch/rcpgest/internal/element"
)

// Anchor and class names found on ANSM pages.
const (
	AnchorDenomination    = "RcpDenomination"
	AnchorTitulaire       = "RcpTitulaireAmm"
	AnchorFormePharm      = "RcpFormePharm"
	AnchorInstPrepRadioph = "RcpInstPrepRadioph"
	ClassDateNotif        = "DateNotif"
)

// Profile configures how a source is windowed and classified.
type Profile struct {
	Vocabulary       element.Vocabulary `yaml:"vocabulary"`
	StartAnchors     []string           `yaml:"start_anchors"`
	StartClasses     []string           `yaml:"start_classes"`
	StopAnchors      []string           `yaml:"stop_anchors"`
	Cutoff           string             `yaml:"cutoff"` // e.g. "6.6"; empty disables
	UnsectionedTitle string             `yaml:"unsectioned_title"`
}

// DefaultProfile returns the profile for ANSM pages.
func DefaultProfile() Profile {
	return Profile{
		Vocabulary:       element.DefaultVocabulary(),
		StartAnchors:     []string{AnchorDenomination},
		StartClasses:     []string{ClassDateNotif},
		StopAnchors:      []string{AnchorInstPrepRadioph},
		UnsectionedTitle: builder.DefaultUnsectionedTitle,
	}
}

func (p *Profile) defaults() {
	def := DefaultProfile()
	p.Vocabulary = p.Vocabulary.Merge(def.Vocabulary)
	if len(p.StartAnchors) == 0 && len(p.StartClasses) == 0 {
		p.StartAnchors = def.StartAnchors
		p.StartClasses = def.StartClasses
	}
	if len(p.StopAnchors) == 0 {
		p.StopAnchors = def.StopAnchors
	}
	if p.UnsectionedTitle == "" {
		p.UnsectionedTitle = def.UnsectionedTitle
	}
}

// LoadProfile reads a YAML profile file. Fields left empty take their
// defaults.
func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("parse profile: %w", err)
	}
	p.defaults()
	if p.Cutoff != "" {
		if _, ok := builder.SectionNumber(p.Cutoff); !ok {
			return Profile{}, fmt.Errorf("invalid cutoff %q: want a section number such as 6.6", p.Cutoff)
		}
	}
	return p, nil
}

// Start matches the first element of the product characteristics body:
// the denomination anchor or the notification date paragraph.
func (p Profile) Start() builder.Marker {
	var ms []builder.Marker
	for _, a := range p.StartAnchors {
		ms = append(ms, builder.Anchor(a))
	}
	for _, c := range p.StartClasses {
		ms = append(ms, builder.Class(c))
	}
	if len(ms) == 0 {
		return nil
	}
	return builder.AnyOf(ms...)
}

// Stop matches the end of the product characteristics body, and headings
// past Cutoff when one is set.
func (p Profile) Stop() builder.Marker {
	var ms []builder.Marker
	for _, a := range p.StopAnchors {
		ms = append(ms, builder.Anchor(a))
	}
	if p.Cutoff != "" {
		ms = append(ms, builder.HeadingBeyond(p.Cutoff))
	}
	if len(ms) == 0 {
		return nil
	}
	return builder.AnyOf(ms...)
}

// Classifier returns an element classifier for the profile vocabulary.
func (p Profile) Classifier() element.Classifier {
	return element.NewClassifier(p.Vocabulary)
}
