package metadata

import "github.com/google/uuid"

// ReadDirPage is one page of a directory listing.
//
// Entries are ordered by name. The cookie passed to the next ReadDirectory
// call is NextCookie; an empty cookie starts from the beginning.
type ReadDirPage struct {
	// Entries in this page, sorted by name.
	Entries []DirEntry

	// NextCookie resumes the listing after the last entry of this page.
	NextCookie string

	// HasMore reports whether entries remain after this page.
	HasMore bool
}

// DirEntry is one child of a directory.
type DirEntry struct {
	// Name is the entry name inside the directory.
	Name string

	// ID of the child object.
	ID uuid.UUID

	// Attr holds the child attributes.
	Attr *FileAttr
}
