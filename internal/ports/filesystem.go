package ports

// FileSystemPort is the filesystem collaborator consumed by every
// registry backend and by the version/baseline loaders. ReadFile must
// map a missing file to an error satisfying IsNotFound so that callers
// can distinguish "absent" from "unreadable".
type FileSystemPort interface {
	ReadFile(path string) (string, error)
	Exists(path string) bool
	IsDirectory(path string) bool
	CreateDirectories(path string) error
	WriteFile(path string, contents string) error
	Rename(from string, to string) error
	// ReadDir lists immediate entry names of a directory. The order is
	// up to the implementation (OSFileSystemAdapter sorts by name);
	// callers that need a stable order sort explicitly.
	ReadDir(path string) ([]string, error)
	// IsNotFound reports whether err was returned by ReadFile (or
	// ReadDir) because the path did not exist.
	IsNotFound(err error) bool
}
