package project

import "errors"

// Common errors for project and module operations.
var (
	// ErrProjectDisposed indicates an operation on a disposed project.
	ErrProjectDisposed = errors.New("project is disposed")

	// ErrProjectOpen indicates an open was attempted on an already open project.
	ErrProjectOpen = errors.New("project is already open")

	// ErrProjectNotOpen indicates an operation that requires an open project.
	ErrProjectNotOpen = errors.New("project is not open")

	// ErrModuleDisposed indicates an operation on a disposed module.
	ErrModuleDisposed = errors.New("module is disposed")

	// ErrModuleExists indicates a module name collision within a project.
	ErrModuleExists = errors.New("module already exists in project")

	// ErrPathNotFound indicates a load from a path with no project content.
	ErrPathNotFound = errors.New("project path does not exist")
)
