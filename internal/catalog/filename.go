package catalog

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Veraticus/p300-cit/internal/common"
	"github.com/Veraticus/p300-cit/internal/model"
)

// normalizedDir is the subdirectory written by the image normalization step.
const normalizedDir = "normalized"

var (
	stemPattern = regexp.MustCompile(`^(probe|irr)_([A-Za-z0-9][A-Za-z0-9_-]*?)(?:_view(\d+))?$`)

	imageExtensions = map[string]bool{
		".jpg":  true,
		".jpeg": true,
		".png":  true,
	}
)

// Entry is one parsed stimulus file name.
type Entry struct {
	Filename string
	Path     string
	Object   string
	Category model.Category
	View     int
}

// Parse splits probe_<name>_view<k> / irr_<name>_view<k> names. A name
// without a view suffix is view 1.
func Parse(path string) (Entry, error) {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	m := stemPattern.FindStringSubmatch(stem)
	if m == nil {
		return Entry{}, common.NewConfigurationError("stimuli", "file %q does not follow probe_<name>_view<k> or irr_<name>_view<k> (names use letters, digits, '_' and '-')", base)
	}

	category := model.CategoryProbe
	if m[1] == "irr" {
		category = model.CategoryIrrelevant
	}

	view := 1
	if m[3] != "" {
		n, err := strconv.Atoi(m[3])
		if err != nil || n < 1 {
			return Entry{}, common.NewConfigurationError("stimuli", "file %q has invalid view number %q", base, m[3])
		}
		view = n
	}

	entry := Entry{
		Filename: base,
		Object:   m[2],
		Category: category,
		View:     view,
	}
	if path != base {
		entry.Path = path
	}
	return entry, nil
}

// IsStimulusFile reports whether a file name looks like a stimulus image.
func IsStimulusFile(name string) bool {
	if !imageExtensions[strings.ToLower(filepath.Ext(name))] {
		return false
	}
	return strings.HasPrefix(name, "probe_") || strings.HasPrefix(name, "irr_")
}

// ListImages returns stimulus image paths in dir, preferring the normalized
// subdirectory when asked to and when it exists.
func ListImages(dir string, preferNormalized bool) ([]string, error) {
	source := dir
	if preferNormalized {
		candidate := filepath.Join(dir, normalizedDir)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			source = candidate
		}
	}

	entries, err := os.ReadDir(source)
	if err != nil {
		return nil, common.NewConfigurationError("stimuli.directory", "cannot read %s: %v", source, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !IsStimulusFile(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(source, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// FromDirectory builds a catalog from the stimulus images in dir.
func FromDirectory(dir string, preferNormalized bool) (*Catalog, error) {
	paths, err := ListImages(dir, preferNormalized)
	if err != nil {
		return nil, err
	}
	return FromFilenames(paths)
}

func prefixFor(category model.Category) string {
	if category == model.CategoryProbe {
		return "probe"
	}
	return "irr"
}
