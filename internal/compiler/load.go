package compiler

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/manp/internal/ir"
)

// BuildDir loads the CUE files of dir as one instance and builds its value.
// Files in the same directory unify, so functions may be spread over several
// files.
func BuildDir(dir string) (cue.Value, error) {
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return cue.Value{}, fmt.Errorf("no CUE instances in %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, formatCUEError(inst.Err)
	}

	v := cuecontext.New().BuildInstance(inst)
	if err := v.Err(); err != nil {
		return cue.Value{}, formatCUEError(err)
	}
	return v, nil
}

// LoadDir compiles every function of the CUE files in dir.
func LoadDir(dir string) (*ir.Module, error) {
	v, err := BuildDir(dir)
	if err != nil {
		return nil, err
	}
	return CompileModule(v)
}

// LoadSource compiles a single CUE program held in memory. filename is only
// used for source locations.
func LoadSource(filename string, src []byte) (*ir.Module, error) {
	v := cuecontext.New().CompileBytes(src, cue.Filename(filename))
	return CompileModule(v)
}

// LoadFile compiles a single CUE file.
func LoadFile(path string) (*ir.Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read program: %w", err)
	}
	return LoadSource(path, data)
}
