package errors

import (
	"fmt"
	"strings"
)

// ParseError represents a YAML parsing failure with optional line metadata.
type ParseError struct {
	Path    string
	Line    int
	Message string
	Err     error
}

// NewParseError constructs a ParseError.
func NewParseError(path string, line int, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ParseError{Path: path, Line: line, Message: message, Err: err}
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}

	if e.Line > 0 {
		return fmt.Sprintf("parse error: %s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error: %s: %s", e.Path, e.Message)
}

// Unwrap exposes the underlying error.
func (e *ParseError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// StructureError reports an invalid on-disk layout for a project, pipeline or
// deployment directory. It is fatal at construction time and never recovered
// internally.
type StructureError struct {
	Entity string
	Path   string
	Reason string
}

// NewStructureError constructs a StructureError.
func NewStructureError(entity, path, reason string) error {
	return &StructureError{Entity: entity, Path: path, Reason: reason}
}

func (e *StructureError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("invalid %s structure: %q %s", e.Entity, e.Path, e.Reason)
}

// NoDescriptorError is returned when a pipeline repository contains no
// pipeline descriptor file.
type NoDescriptorError struct {
	RepoDir string
}

func (e *NoDescriptorError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("no pipeline descriptor found in %q", e.RepoDir)
}

// MultipleDescriptorsError is returned when a pipeline repository contains
// more than one pipeline descriptor file. Kept distinct from
// NoDescriptorError because the remediation differs: remove the duplicate
// rather than write a descriptor.
type MultipleDescriptorsError struct {
	RepoDir string
	Paths   []string
}

func (e *MultipleDescriptorsError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("multiple pipeline descriptors found in %q: %s", e.RepoDir, strings.Join(e.Paths, ", "))
}

// LoadError reports a failure to resolve or instantiate a pipeline
// implementation from its descriptor.
type LoadError struct {
	Pipeline string
	Message  string
	Err      error
}

// NewLoadError constructs a LoadError.
func NewLoadError(pipeline, message string, err error) error {
	return &LoadError{Pipeline: pipeline, Message: message, Err: err}
}

func (e *LoadError) Error() string {
	if e == nil {
		return ""
	}
	if e.Pipeline != "" {
		return fmt.Sprintf("load error [%s]: %s", e.Pipeline, e.Message)
	}
	return fmt.Sprintf("load error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *LoadError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// AlreadyExistsError is returned when creating a project, pipeline,
// deployment or package whose target path already exists. Nothing is ever
// overwritten without an explicit flag at the calling layer.
type AlreadyExistsError struct {
	Entity string
	Name   string
}

// NewAlreadyExistsError constructs an AlreadyExistsError.
func NewAlreadyExistsError(entity, name string) error {
	return &AlreadyExistsError{Entity: entity, Name: name}
}

func (e *AlreadyExistsError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s %q already exists", e.Entity, e.Name)
}

// NotFoundError is returned when a requested pipeline, deployment or package
// does not exist in the project registry.
type NotFoundError struct {
	Entity string
	Name   string
}

// NewNotFoundError constructs a NotFoundError.
func NewNotFoundError(entity, name string) error {
	return &NotFoundError{Entity: entity, Name: name}
}

func (e *NotFoundError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s %q does not exist in the project", e.Entity, e.Name)
}

// CommandError reports a command that cannot be dispatched: an unknown
// operation name, an invalid target, or a failure preparing the fan-out.
type CommandError struct {
	Command string
	Message string
	Err     error
}

// NewCommandError constructs a CommandError.
func NewCommandError(command, message string, err error) error {
	return &CommandError{Command: command, Message: message, Err: err}
}

func (e *CommandError) Error() string {
	if e == nil {
		return ""
	}
	if e.Command != "" {
		return fmt.Sprintf("command error [%s]: %s", e.Command, e.Message)
	}
	return fmt.Sprintf("command error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *CommandError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// TransportError reports a git clone or pull failure, with the underlying
// cause attached.
type TransportError struct {
	Operation string
	Pipeline  string
	Err       error
}

// NewTransportError constructs a TransportError.
func NewTransportError(operation, pipeline string, err error) error {
	return &TransportError{Operation: operation, Pipeline: pipeline, Err: err}
}

func (e *TransportError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s failed for pipeline %q: %v", e.Operation, e.Pipeline, e.Err)
}

// Unwrap exposes the underlying error.
func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// InstallError reports a pipeline dependency installation failure. A missing
// dependency manifest is itself an InstallError, not a skip.
type InstallError struct {
	Pipeline string
	Message  string
	Err      error
}

// NewInstallError constructs an InstallError.
func NewInstallError(pipeline, message string, err error) error {
	return &InstallError{Pipeline: pipeline, Message: message, Err: err}
}

func (e *InstallError) Error() string {
	if e == nil {
		return ""
	}
	if e.Pipeline != "" {
		return fmt.Sprintf("install error [%s]: %s", e.Pipeline, e.Message)
	}
	return fmt.Sprintf("install error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *InstallError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// MappingError reports an invalid compose file mapping: a missing source
// file or a destination that escapes the package layout.
type MappingError struct {
	Source  string
	Dest    string
	Message string
}

// NewMappingError constructs a MappingError.
func NewMappingError(source, dest, message string) error {
	return &MappingError{Source: source, Dest: dest, Message: message}
}

func (e *MappingError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("invalid file mapping %q -> %q: %s", e.Source, e.Dest, e.Message)
}

// DistributionError reports a failure delivering a package to a distribution
// target.
type DistributionError struct {
	Package string
	Target  string
	Message string
	Err     error
}

// NewDistributionError constructs a DistributionError.
func NewDistributionError(pkg, target, message string, err error) error {
	return &DistributionError{Package: pkg, Target: target, Message: message, Err: err}
}

func (e *DistributionError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("failed to distribute package %q to %q: %s", e.Package, e.Target, e.Message)
}

// Unwrap exposes the underlying error.
func (e *DistributionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ManifestError reports that the on-disk contents of a package no longer
// match its recorded manifest.
type ManifestError struct {
	Package string
	Message string
}

// NewManifestError constructs a ManifestError.
func NewManifestError(pkg, message string) error {
	return &ManifestError{Package: pkg, Message: message}
}

func (e *ManifestError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("manifest error [%s]: %s", e.Package, e.Message)
}
