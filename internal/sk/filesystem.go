package sk

// FilesystemManager provides the file operations the orchestrator needs.
// It abstracts file access so failures can be injected in tests.
type FilesystemManager interface {
	// Exists reports whether path names an existing regular file.
	Exists(path string) bool

	// CopyFile copies src over dst, replacing dst if present.
	CopyFile(src, dst string) error

	// Remove deletes a single file. Missing files are not an error.
	Remove(path string) error

	// RemoveAll deletes a directory tree. Missing paths are not an error.
	RemoveAll(path string) error
}

// StagingArea hands out isolated working directories and scratch file
// paths under the cache location.
type StagingArea interface {
	// Fresh returns an empty directory called name, removing any previous
	// contents first.
	Fresh(name string) (string, error)

	// Path returns the path of a scratch file called name.
	Path(name string) string
}

// Archiver packs and unpacks the archive container.
type Archiver interface {
	// Pack writes one entry per existing file, named by base name.
	Pack(files []string, dest string) error

	// Unpack extracts archive into destDir. Fails with ErrSecurityViolation
	// for entries that would land outside destDir.
	Unpack(archive, destDir string) error
}
