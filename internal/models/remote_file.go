package models

import (
	"fmt"
	"regexp"
	"strings"
)

// Category classifies a remote file and decides the folder it lives in.
type Category string

const (
	CategoryMultichunk  Category = "multichunk"
	CategoryDatabase    Category = "database"
	CategoryAction      Category = "action"
	CategoryTransaction Category = "transaction"
	CategoryTemp        Category = "temp"
	CategoryGeneric     Category = "generic"
)

// Categories lists every known category.
var Categories = []Category{
	CategoryMultichunk,
	CategoryDatabase,
	CategoryAction,
	CategoryTransaction,
	CategoryTemp,
	CategoryGeneric,
}

// RepoFileName is the repository identity file stored at the root.
const RepoFileName = "syncany"

// FolderFor maps a category to its folder below the repository root.
// Unknown categories live at the root.
func FolderFor(c Category) string {
	switch c {
	case CategoryMultichunk:
		return "multichunks"
	case CategoryDatabase:
		return "databases"
	case CategoryAction:
		return "actions"
	case CategoryTransaction:
		return "transactions"
	case CategoryTemp:
		return "temporary"
	default:
		return ""
	}
}

// LayoutFolders returns the category folders created by repository init.
func LayoutFolders() []string {
	return []string{
		FolderFor(CategoryMultichunk),
		FolderFor(CategoryDatabase),
		FolderFor(CategoryAction),
		FolderFor(CategoryTransaction),
		FolderFor(CategoryTemp),
	}
}

// ParseCategory accepts a category name, case-insensitively.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: unknown category %q", ErrInvalidPath, s)
}

var namePatterns = map[Category]*regexp.Regexp{
	CategoryMultichunk:  regexp.MustCompile(`^multichunk-[0-9a-f]+$`),
	CategoryDatabase:    regexp.MustCompile(`^database-[^-]+-[0-9]+$`),
	CategoryAction:      regexp.MustCompile(`^action-[a-z]+-[^-]+-[0-9]+$`),
	CategoryTransaction: regexp.MustCompile(`^transaction-.+$`),
	CategoryTemp:        regexp.MustCompile(`^temp-.+$`),
}

// RemoteFile identifies one object in the remote namespace.
type RemoteFile struct {
	name     string
	category Category
}

// NewRemoteFile validates name against the rules of the category.
func NewRemoteFile(c Category, name string) (RemoteFile, error) {
	if err := checkName(name); err != nil {
		return RemoteFile{}, err
	}
	if re, ok := namePatterns[c]; ok && !re.MatchString(name) {
		return RemoteFile{}, fmt.Errorf("%w: %q does not match %s pattern", ErrInvalidPath, name, c)
	}
	return RemoteFile{name: name, category: c}, nil
}

// UncheckedRemoteFile builds a RemoteFile without validating the name.
// Path safety is still enforced when the file is resolved to an address.
func UncheckedRemoteFile(c Category, name string) RemoteFile {
	return RemoteFile{name: name, category: c}
}

// RepoFile returns the repository identity file.
func RepoFile() RemoteFile {
	return RemoteFile{name: RepoFileName, category: CategoryGeneric}
}

// NewMultichunkFile names a multichunk by its hex id.
func NewMultichunkFile(id string) (RemoteFile, error) {
	return NewRemoteFile(CategoryMultichunk, "multichunk-"+strings.ToLower(id))
}

// NewDatabaseFile names a database version written by client.
func NewDatabaseFile(client string, version int64) (RemoteFile, error) {
	return NewRemoteFile(CategoryDatabase, fmt.Sprintf("database-%s-%010d", client, version))
}

// NewActionFile names an action marker.
func NewActionFile(kind, client string, timestamp int64) (RemoteFile, error) {
	return NewRemoteFile(CategoryAction, fmt.Sprintf("action-%s-%s-%d", kind, client, timestamp))
}

// NewTransactionFile names a transaction record.
func NewTransactionFile(id string) (RemoteFile, error) {
	return NewRemoteFile(CategoryTransaction, "transaction-"+id)
}

// NewTempFile names a temporary file.
func NewTempFile(id string) (RemoteFile, error) {
	return NewRemoteFile(CategoryTemp, "temp-"+id)
}

// Name returns the bare file name.
func (f RemoteFile) Name() string { return f.name }

// Category returns the file's category.
func (f RemoteFile) Category() Category { return f.category }

// Folder returns the folder the file resolves to.
func (f RemoteFile) Folder() string { return FolderFor(f.category) }

func (f RemoteFile) String() string {
	if folder := f.Folder(); folder != "" {
		return folder + "/" + f.name
	}
	return f.name
}

func checkName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty file name", ErrInvalidPath)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q is not a file name", ErrInvalidPath, name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidPath, name)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: file name contains null bytes", ErrInvalidPath)
	}
	return nil
}
