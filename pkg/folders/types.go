package folders

import (
	"errors"
	"time"
)

var (
	// ErrFolderNotFound is returned when the folder does not exist or belongs to another user
	ErrFolderNotFound = errors.New("folder not found")
	// ErrWorkfileNotFound is returned when the workfile is not in the folder
	ErrWorkfileNotFound = errors.New("workfile not found")
	// ErrInvalidPatentNumber is returned for input that cannot be a patent number
	ErrInvalidPatentNumber = errors.New("invalid patent number")
	// ErrUnsupportedFormat is returned for import files that are not txt, csv, xlsx or docx
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrInvalidMerge is returned when a merge names fewer than two workfiles or ones outside the folder
	ErrInvalidMerge = errors.New("merge requires at least two workfiles from the folder")
	// ErrInvalidFolder is returned for invalid folder or workfile names and sources
	ErrInvalidFolder = errors.New("invalid folder request")
	// ErrNoPatents is returned when no valid patent number was supplied or found
	ErrNoPatents = errors.New("no valid patent numbers")
)

// Source records how a folder was created
type Source string

const (
	SourceCustomSearch Source = "customSearch"
	SourceFolderName   Source = "folderName"
	SourceImportedList Source = "importedList"
)

func (s Source) valid() bool {
	switch s {
	case SourceCustomSearch, SourceFolderName, SourceImportedList:
		return true
	}
	return false
}

// Folder is a named collection of workfiles. PatentIDs is the legacy flat list.
type Folder struct {
	ID             string      `json:"id"`
	UserID         string      `json:"userId"`
	Name           string      `json:"name"`
	ParentFolderID *string     `json:"parentFolderId,omitempty"`
	PatentIDs      []string    `json:"patentIds"`
	Source         Source      `json:"source"`
	Workfiles      []*Workfile `json:"workfiles"`
	Subfolders     []*Folder   `json:"subfolders"`
	CreatedAt      time.Time   `json:"createdAt"`
}

// Workfile is an ordered set of normalized patent numbers
type Workfile struct {
	ID        string    `json:"id"`
	FolderID  string    `json:"folderId"`
	Name      string    `json:"name"`
	PatentIDs []string  `json:"patentIds"`
	CreatedAt time.Time `json:"createdAt"`
}

// SavedPatent is a single bookmarked patent
type SavedPatent struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	PatentID  string    `json:"patentId"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

// ImportedFile records an uploaded list and where the original is stored
type ImportedFile struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	FolderID    string    `json:"folderId"`
	ObjectKey   string    `json:"objectKey"`
	FileName    string    `json:"fileName"`
	Format      Format    `json:"format"`
	PatentCount int       `json:"patentCount"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CreateFolderRequest describes a new folder. When WorkfileName is set the patents go into a
// first workfile, otherwise into the folder's own list.
type CreateFolderRequest struct {
	Name           string   `json:"name"`
	ParentFolderID *string  `json:"parentFolderId,omitempty"`
	WorkfileName   string   `json:"workfileName,omitempty"`
	PatentIDs      []string `json:"patentIds"`
	Source         Source   `json:"source,omitempty"`
}

// ListUpdate reports the state of a patent list after an addition
type ListUpdate struct {
	FolderID   string   `json:"folderId"`
	WorkfileID string   `json:"workfileId,omitempty"`
	PatentIDs  []string `json:"patentIds"`
	Added      int      `json:"added"`
	Invalid    []string `json:"invalid,omitempty"`
}

// Upload is one file of an import request
type Upload struct {
	FileName string
	Data     []byte
}

// ImportResult reports an import request
type ImportResult struct {
	Files   []*ImportedFile `json:"files"`
	Updates []*ListUpdate   `json:"updates"`
}
