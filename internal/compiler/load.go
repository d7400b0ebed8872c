package compiler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/specflow/internal/ir"
)

// ProgramPath is the CUE path holding the program description.
const ProgramPath = "program"

// CompileError is a load or compile error with the description field it
// concerns and, for CUE sources, the source position.
type CompileError struct {
	Code    string
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: [%s] %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Load error codes.
const (
	ErrCodeNotFound    = "E001" // path not found
	ErrCodeNoFiles     = "E002" // no description files
	ErrCodeLoadFailed  = "E003" // CUE load failed
	ErrCodeBuildFailed = "E004" // CUE build or decode failed
	ErrCodeYAML        = "E005" // YAML decode failed
	ErrCodeNoProgram   = "E006" // no program value
)

// Source is a decoded program description and where it came from.
type Source struct {
	Name    string
	Program ProgramDesc
}

// Hash is the content hash of the program description. Descriptions that
// decode to the same program hash equally regardless of source format.
func (s *Source) Hash() (string, error) {
	data, err := json.Marshal(s.Program)
	if err != nil {
		return "", fmt.Errorf("hash program: %w", err)
	}
	return ir.ProgramHash(map[string]any{"program": string(data)})
}

// LoadPath loads a description from a directory of CUE files, a single
// .cue file, or a .yaml/.yml file.
func LoadPath(path string) (*Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &CompileError{Code: ErrCodeNotFound, Field: "path", Message: err.Error()}
	}
	if info.IsDir() {
		return LoadDir(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &CompileError{Code: ErrCodeNotFound, Field: "path", Message: err.Error()}
	}
	switch filepath.Ext(path) {
	case ".cue":
		return LoadCUE(data, path)
	case ".yaml", ".yml":
		return LoadYAML(data, path)
	}
	return nil, &CompileError{Code: ErrCodeNoFiles, Field: "path",
		Message: fmt.Sprintf("unsupported description file %s", path)}
}

// LoadDir loads the CUE package in dir.
func LoadDir(dir string) (*Source, error) {
	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, &CompileError{Code: ErrCodeNotFound, Field: "path", Message: err.Error()}
	}
	if len(files) == 0 {
		return nil, &CompileError{Code: ErrCodeNoFiles, Field: "path",
			Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &CompileError{Code: ErrCodeLoadFailed, Field: "cue", Message: "no CUE instances loaded"}
	}
	if err := instances[0].Err; err != nil {
		return nil, formatCUEError(ErrCodeLoadFailed, err)
	}
	value := cuecontext.New().BuildInstance(instances[0])
	return decodeCUE(value, dir)
}

// LoadCUE compiles a single CUE source.
func LoadCUE(src []byte, filename string) (*Source, error) {
	value := cuecontext.New().CompileBytes(src, cue.Filename(filename))
	return decodeCUE(value, filename)
}

func decodeCUE(value cue.Value, name string) (*Source, error) {
	if err := value.Err(); err != nil {
		return nil, formatCUEError(ErrCodeBuildFailed, err)
	}
	prog := value.LookupPath(cue.ParsePath(ProgramPath))
	if !prog.Exists() {
		return nil, &CompileError{Code: ErrCodeNoProgram, Field: ProgramPath,
			Message: "no program value", Pos: value.Pos()}
	}
	if err := prog.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(ErrCodeBuildFailed, err)
	}
	src := &Source{Name: name}
	if err := prog.Decode(&src.Program); err != nil {
		return nil, formatCUEError(ErrCodeBuildFailed, err)
	}
	return src, nil
}

// LoadYAML decodes a YAML description. The document is either the program
// itself or a mapping with a program key.
func LoadYAML(data []byte, filename string) (*Source, error) {
	var doc struct {
		Program *ProgramDesc `yaml:"program"`
		Modules []ModuleDesc `yaml:"modules"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &CompileError{Code: ErrCodeYAML, Field: filename, Message: err.Error()}
	}
	src := &Source{Name: filename}
	switch {
	case doc.Program != nil:
		src.Program = *doc.Program
	case doc.Modules != nil:
		src.Program.Modules = doc.Modules
	default:
		return nil, &CompileError{Code: ErrCodeNoProgram, Field: filename, Message: "no program value"}
	}
	return src, nil
}

// FindCUEFiles walks dir and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// formatCUEError keeps the position of the first CUE error.
func formatCUEError(code string, err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &CompileError{Code: code, Field: "cue", Message: err.Error()}
	}
	first := errs[0]
	ce := &CompileError{Code: code, Field: "cue", Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		ce.Pos = positions[0]
	}
	return ce
}
