package compiler

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/qmx/internal/document"
)

// LoadMode controls how errors are handled during document loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadErrorKind classifies directory-level load failures.
type LoadErrorKind int

const (
	LoadNotFound LoadErrorKind = iota
	LoadScanFailed
	LoadNoFiles
	LoadFailed
	LoadBuildFailed
	LoadNoDocuments
)

// LoadError reports a failure that prevents reading the directory at all,
// or the absence of any query document.
type LoadError struct {
	Kind    LoadErrorKind
	Message string
}

func (e *LoadError) Error() string { return e.Message }

// LoadResult contains the documents compiled from a directory.
type LoadResult struct {
	// Documents are sorted by name.
	Documents []*document.Document
	// Value is the built CUE value for additional processing.
	Value cue.Value
	// FileCount is the number of .cue files found.
	FileCount int
}

// Document returns the document with the given name, or nil.
func (r *LoadResult) Document(name string) *document.Document {
	for _, doc := range r.Documents {
		if doc.Name == name {
			return doc
		}
	}
	return nil
}

// LoadDocuments loads every .cue file in dir as one CUE instance and
// compiles each entry under query.<name>.
//
// A nil result means the directory could not be loaded; the single error is
// a *LoadError or a *CompileError. Otherwise errors hold per-document
// *CompileError values: only the first with LoadModeFailFast, all of them
// with LoadModeCollectAll.
func LoadDocuments(dir string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Kind: LoadNotFound, Message: fmt.Sprintf("documents directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Kind: LoadNotFound, Message: fmt.Sprintf("error accessing documents directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Kind: LoadNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Kind: LoadScanFailed, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(files) == 0 {
		return nil, []error{&LoadError{Kind: LoadNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Kind: LoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Kind: LoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		if ce := formatCUEError(err); ce != err {
			return nil, []error{ce}
		}
		return nil, []error{&LoadError{Kind: LoadBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{Value: value, FileCount: len(files)}

	queries := value.LookupPath(cue.ParsePath("query"))
	if !queries.Exists() {
		return result, []error{&LoadError{Kind: LoadNoDocuments, Message: "no query documents found"}}
	}
	iter, err := queries.Fields()
	if err != nil {
		return result, []error{&CompileError{Field: "query", Message: err.Error(), Pos: queries.Pos()}}
	}

	var errs []error
	for iter.Next() {
		doc, err := CompileDocument(iter.Value())
		if err != nil {
			errs = append(errs, err)
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		result.Documents = append(result.Documents, doc)
	}

	sort.Slice(result.Documents, func(i, j int) bool {
		return result.Documents[i].Name < result.Documents[j].Name
	})
	if len(result.Documents) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Kind: LoadNoDocuments, Message: "no query documents found"})
	}
	return result, errs
}

// FindCUEFiles returns the .cue files directly in dir, sorted.
func FindCUEFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.Type()&fs.ModeType == 0 && filepath.Ext(e.Name()) == ".cue" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}
