package store

import "time"

// DateLayout is the wire format of folder dates.
const DateLayout = "2006-01-02"

type Area struct {
	ID   string
	Slug string
	Code string
	Name string
}

type Folder struct {
	ID          string
	Name        string
	Color       string
	Category    string
	Description *string
	Date        *time.Time
	AreaID      string
	ModuleType  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FolderPatch carries the optional fields of a folder update; nil leaves the
// stored value untouched. ClearDate sets the date to NULL and wins over Date.
type FolderPatch struct {
	Name        string
	Color       string
	Category    *string
	Description *string
	Date        *time.Time
	ClearDate   bool
}

type Document struct {
	ID          string
	Name        string
	Description *string
	FileURL     string
	FilePath    string
	FileType    string
	FileSize    int64
	FolderID    string
	AreaID      string
	ModuleType  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type DocumentFilter struct {
	AreaID     string
	ModuleType string
	FolderID   string
}

type Registro struct {
	ID            string
	Title         string
	Description   *string
	FilePath      string
	ThumbnailPath *string
	FileType      string
	FileSize      int64
	AreaID        string
	CreatedAt     time.Time
}

type Informe struct {
	ID          string
	Title       string
	Description *string
	Period      *string
	FilePath    string
	FileType    string
	FileSize    int64
	AreaID      string
	CreatedAt   time.Time
}

type ChecklistCategory struct {
	ID        int64
	Name      string
	SortOrder int
}

type ChecklistStage struct {
	ID        int64
	Name      string
	SortOrder int
}

type ChecklistItem struct {
	ID          int64
	CategoryID  int64
	StageID     int64
	StageName   string
	Description string
	SortOrder   int
}

type ChecklistAnswer struct {
	ID           string
	ContractID   string
	ItemID       int64
	Answer       string
	Observations string
	UpdatedAt    time.Time
}
