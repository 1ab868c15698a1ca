package data

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Dataset split names used in annotation files.
const (
	SplitTrain      = "train"
	SplitValidation = "validation"
)

// Annotation is one row of an annotation file.
type Annotation struct {
	Path    string // relative to the data directory
	ClassID int32
	Split   string
}

// ReadAnnotations parses an annotation CSV. The header must name a path
// column ("path", "image_path" or "filename"), a "class_id" column and a
// "split" column; other columns are ignored.
func ReadAnnotations(r io.Reader) ([]Annotation, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, errors.Wrap(err, "reading annotation header")
	}

	pathCol, classCol, splitCol := -1, -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "path", "image_path", "filename":
			pathCol = i
		case "class_id":
			classCol = i
		case "split":
			splitCol = i
		}
	}
	if pathCol < 0 || classCol < 0 || splitCol < 0 {
		return nil, errors.Errorf("annotation header %v must contain path, class_id and split columns", header)
	}

	var out []Annotation
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "annotation line %d", line)
		}
		id, err := strconv.ParseInt(strings.TrimSpace(rec[classCol]), 10, 32)
		if err != nil {
			return nil, errors.Wrapf(err, "annotation line %d: class_id", line)
		}
		if id < 0 {
			return nil, errors.Errorf("annotation line %d: negative class_id %d", line, id)
		}
		out = append(out, Annotation{
			Path:    strings.TrimSpace(rec[pathCol]),
			ClassID: int32(id),
			Split:   strings.ToLower(strings.TrimSpace(rec[splitCol])),
		})
	}
	return out, nil
}

// LoadAnnotations reads an annotation CSV from disk.
func LoadAnnotations(path string) ([]Annotation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening annotations")
	}
	defer f.Close()
	anns, err := ReadAnnotations(f)
	return anns, errors.Wrap(err, path)
}

// FilterSplit returns the annotations belonging to split.
func FilterSplit(anns []Annotation, split string) []Annotation {
	var out []Annotation
	for _, a := range anns {
		if a.Split == split {
			out = append(out, a)
		}
	}
	return out
}

// CountClasses returns the number of distinct class ids across anns.
func CountClasses(anns []Annotation) int {
	seen := make(map[int32]struct{})
	for _, a := range anns {
		seen[a.ClassID] = struct{}{}
	}
	return len(seen)
}
