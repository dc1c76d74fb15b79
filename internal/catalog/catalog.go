// Package catalog groups stimulus image files by semantic object and view.
package catalog

import (
	"fmt"
	"sort"

	"github.com/Veraticus/p300-cit/internal/common"
	"github.com/Veraticus/p300-cit/internal/config"
	"github.com/Veraticus/p300-cit/internal/model"
)

// Catalog is the resolved set of stimulus objects for one session: exactly
// one probe followed by the irrelevant objects in name order.
type Catalog struct {
	reps    map[string]int
	objects []model.StimulusObject
}

// New validates objects and orders them canonically.
func New(objects []model.StimulusObject) (*Catalog, error) {
	if len(objects) == 0 {
		return nil, common.NewConfigurationError("objects", "no stimulus objects")
	}

	seen := make(map[string]bool, len(objects))
	probes := 0
	for _, obj := range objects {
		if obj.Name == "" {
			return nil, common.NewConfigurationError("objects", "object without a name")
		}
		if !model.ValidObjectName(obj.Name) {
			return nil, common.NewConfigurationError("objects", "object name %q may only contain letters, digits, '_' and '-'", obj.Name)
		}
		if seen[obj.Name] {
			return nil, common.NewConfigurationError("objects", "object %q appears under more than one category", obj.Name)
		}
		seen[obj.Name] = true

		if !obj.Category.IsS1() {
			return nil, common.NewConfigurationError("objects", "object %q has invalid category %q", obj.Name, obj.Category)
		}
		if obj.Category == model.CategoryProbe {
			probes++
		}
		if len(obj.Views) == 0 {
			return nil, common.NewConfigurationError("objects", "object %q has no views", obj.Name)
		}
	}
	if probes != 1 {
		return nil, common.NewConfigurationError("objects", "exactly one probe object required, got %d", probes)
	}

	ordered := make([]model.StimulusObject, len(objects))
	copy(ordered, objects)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Category != ordered[j].Category {
			return ordered[i].Category == model.CategoryProbe
		}
		return ordered[i].Name < ordered[j].Name
	})
	for i := range ordered {
		views := make([]model.View, len(ordered[i].Views))
		copy(views, ordered[i].Views)
		sort.SliceStable(views, func(a, b int) bool { return views[a].Number < views[b].Number })
		ordered[i].Views = views
	}

	return &Catalog{objects: ordered}, nil
}

// Objects returns the objects, probe first.
func (c *Catalog) Objects() []model.StimulusObject {
	out := make([]model.StimulusObject, len(c.objects))
	copy(out, c.objects)
	return out
}

// Probe returns the probe object.
func (c *Catalog) Probe() model.StimulusObject {
	return c.objects[0]
}

// Irrelevant returns the irrelevant objects in name order.
func (c *Catalog) Irrelevant() []model.StimulusObject {
	out := make([]model.StimulusObject, len(c.objects)-1)
	copy(out, c.objects[1:])
	return out
}

// Lookup finds an object by name.
func (c *Catalog) Lookup(name string) (model.StimulusObject, bool) {
	for _, obj := range c.objects {
		if obj.Name == name {
			return obj, true
		}
	}
	return model.StimulusObject{}, false
}

// RepetitionCounts returns how many trials each object receives. Declared
// per-object overrides win over the category defaults.
func (c *Catalog) RepetitionCounts(trials config.Trials) map[string]int {
	counts := make(map[string]int, len(c.objects))
	for _, obj := range c.objects {
		counts[obj.Name] = trials.Repetitions(obj.Category, c.reps[obj.Name])
	}
	return counts
}

// TotalTrials is the sum of all repetition counts.
func (c *Catalog) TotalTrials(trials config.Trials) int {
	total := 0
	for _, n := range c.RepetitionCounts(trials) {
		total += n
	}
	return total
}

// Build resolves the protocol's object declarations against the image files
// and checks the expected number of irrelevant objects.
func Build(p config.Protocol, filenames []string) (*Catalog, error) {
	c, err := Resolve(p.Objects, filenames)
	if err != nil {
		return nil, err
	}
	return checkIrrelevant(p, c)
}

// BuildScanned is Build for the contents of a stimulus directory that was
// actually read. Declared objects must all have files, even when the
// directory held no images at all.
func BuildScanned(p config.Protocol, filenames []string) (*Catalog, error) {
	c, err := Match(p.Objects, filenames)
	if err != nil {
		return nil, err
	}
	return checkIrrelevant(p, c)
}

func checkIrrelevant(p config.Protocol, c *Catalog) (*Catalog, error) {
	want := p.Trials.IrrelevantObjects
	if got := len(c.objects) - 1; want > 0 && got != want {
		return nil, common.NewConfigurationError("trials.irrelevant_objects", "expected %d irrelevant objects, found %d", want, got)
	}
	return c, nil
}

// Resolve reconciles declarations with files. Without declarations the files
// define the objects; without files the declarations synthesize view ids.
func Resolve(decls []config.ObjectDecl, filenames []string) (*Catalog, error) {
	switch {
	case len(decls) == 0:
		return FromFilenames(filenames)
	case len(filenames) == 0:
		return FromDeclarations(decls)
	}
	return Match(decls, filenames)
}

// Match reconciles declarations with files and never synthesizes views.
// Without declarations the files define the objects.
func Match(decls []config.ObjectDecl, filenames []string) (*Catalog, error) {
	if len(decls) == 0 {
		return FromFilenames(filenames)
	}

	found, err := group(filenames)
	if err != nil {
		return nil, err
	}

	objects := make([]model.StimulusObject, 0, len(decls))
	reps := make(map[string]int)
	declared := make(map[string]bool, len(decls))
	for _, d := range decls {
		category, err := model.ParseCategory(d.Category)
		if err != nil {
			return nil, common.NewConfigurationError("objects", "object %q: %v", d.Name, err)
		}
		declared[d.Name] = true

		obj, ok := found[d.Name]
		if !ok || len(obj.Views) == 0 {
			return nil, common.NewConfigurationError("objects", "object %q has no matching image files", d.Name)
		}
		if obj.Category != category {
			return nil, common.NewConfigurationError("objects", "object %q declared %s but files are tagged %s", d.Name, category, obj.Category)
		}
		if d.Views > 0 && len(obj.Views) != d.Views {
			return nil, common.NewConfigurationError("objects", "object %q declares %d views, found %d", d.Name, d.Views, len(obj.Views))
		}
		if d.Repetitions > 0 {
			reps[d.Name] = d.Repetitions
		}
		objects = append(objects, *obj)
	}

	for name := range found {
		if !declared[name] {
			return nil, common.NewConfigurationError("objects", "image files found for undeclared object %q", name)
		}
	}

	c, err := New(objects)
	if err != nil {
		return nil, err
	}
	c.reps = reps
	return c, nil
}

// FromFilenames builds a catalog purely from the naming convention.
func FromFilenames(filenames []string) (*Catalog, error) {
	found, err := group(filenames)
	if err != nil {
		return nil, err
	}

	objects := make([]model.StimulusObject, 0, len(found))
	for _, obj := range found {
		objects = append(objects, *obj)
	}
	return New(objects)
}

// FromDeclarations synthesizes view ids following the file naming convention.
func FromDeclarations(decls []config.ObjectDecl) (*Catalog, error) {
	objects := make([]model.StimulusObject, 0, len(decls))
	reps := make(map[string]int)
	for _, d := range decls {
		category, err := model.ParseCategory(d.Category)
		if err != nil {
			return nil, common.NewConfigurationError("objects", "object %q: %v", d.Name, err)
		}

		n := d.Views
		if n == 0 {
			n = 1
		}
		obj := model.StimulusObject{Name: d.Name, Category: category}
		for k := 1; k <= n; k++ {
			obj.Views = append(obj.Views, model.View{
				ID:     fmt.Sprintf("%s_%s_view%d", prefixFor(category), d.Name, k),
				Number: k,
			})
		}
		if d.Repetitions > 0 {
			reps[d.Name] = d.Repetitions
		}
		objects = append(objects, obj)
	}

	c, err := New(objects)
	if err != nil {
		return nil, err
	}
	c.reps = reps
	return c, nil
}

func group(filenames []string) (map[string]*model.StimulusObject, error) {
	found := make(map[string]*model.StimulusObject)
	for _, name := range filenames {
		entry, err := Parse(name)
		if err != nil {
			return nil, err
		}

		obj, ok := found[entry.Object]
		if !ok {
			obj = &model.StimulusObject{Name: entry.Object, Category: entry.Category}
			found[entry.Object] = obj
		}
		if obj.Category != entry.Category {
			return nil, common.NewConfigurationError("objects", "object %q appears under more than one category", entry.Object)
		}
		for _, v := range obj.Views {
			if v.Number == entry.View {
				return nil, common.NewConfigurationError("objects", "object %q has two files for view %d (%s, %s)", entry.Object, entry.View, v.ID, entry.Filename)
			}
		}
		obj.Views = append(obj.Views, model.View{ID: entry.Filename, Path: entry.Path, Number: entry.View})
	}
	return found, nil
}
