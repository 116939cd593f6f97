// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/lmm-git/docker-postgres-multi/pkg/pgspec"
)

// FileSuffix is appended to a variable name to request file indirection:
// when <VAR>_FILE is set, the variable's value is read from the named file.
// This is how Docker and Kubernetes secrets are usually surfaced.
const FileSuffix = "_FILE"

type (
	// LookupFunc is the environment access used by a Source. It matches
	// os.LookupEnv so tests can substitute a map.
	LookupFunc func(name string) (string, bool)

	// EnvConflictError reports a variable set both directly and through its
	// <VAR>_FILE companion. Refusing the ambiguity beats guessing which of
	// the two the operator meant.
	EnvConflictError struct {
		Var string
	}

	// EnvFileError reports a <VAR>_FILE companion pointing at an unreadable
	// file.
	EnvFileError struct {
		Var  string
		Path string
		Err  error
	}

	// Source resolves configuration variables with file indirection, value
	// trimming and per-variable caching, so every consumer sees the same
	// value no matter how often a variable is read.
	Source struct {
		lookup LookupFunc
		cache  map[string]resolved
	}

	resolved struct {
		value string
		ok    bool
	}
)

func (e *EnvConflictError) Error() string {
	return fmt.Sprintf("%s and %s%s are both set, only one allowed", e.Var, e.Var, FileSuffix)
}

func (e *EnvConflictError) Unwrap() error { return pgspec.ErrConfigParse }

func (e *EnvFileError) Error() string {
	return fmt.Sprintf("%s%s: cannot read %s: %v", e.Var, FileSuffix, e.Path, e.Err)
}

func (e *EnvFileError) Unwrap() []error { return []error{pgspec.ErrConfigParse, e.Err} }

// NewSource returns a Source backed by the process environment.
func NewSource() *Source {
	return NewSourceFrom(os.LookupEnv)
}

// NewSourceFrom returns a Source backed by the given lookup, usually a map
// in tests.
func NewSourceFrom(lookup LookupFunc) *Source {
	return &Source{
		lookup: lookup,
		cache:  make(map[string]resolved),
	}
}

// Lookup resolves one variable. The boolean reports whether the variable was
// set at all, directly or through its file companion. Values are trimmed of
// surrounding whitespace, which also strips the trailing newline most
// secret files carry.
func (s *Source) Lookup(name string) (string, bool, error) {
	if cached, ok := s.cache[name]; ok {
		return cached.value, cached.ok, nil
	}

	value, ok, err := s.resolve(name)
	if err != nil {
		return "", false, err
	}
	s.cache[name] = resolved{value: value, ok: ok}
	return value, ok, nil
}

func (s *Source) resolve(name string) (string, bool, error) {
	direct, directSet := s.lookup(name)
	filePath, fileSet := s.lookup(name + FileSuffix)

	switch {
	case directSet && fileSet:
		return "", false, &EnvConflictError{Var: name}
	case directSet:
		return strings.TrimSpace(direct), true, nil
	case fileSet:
		data, err := os.ReadFile(filePath)
		if err != nil {
			return "", false, &EnvFileError{Var: name, Path: filePath, Err: err}
		}
		return strings.TrimSpace(string(data)), true, nil
	default:
		return "", false, nil
	}
}
