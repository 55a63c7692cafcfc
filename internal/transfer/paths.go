package transfer

import (
	"fmt"
	"path"
	"strings"

	"github.com/TheMichaelB/sharegate/internal/models"
)

// folderPath returns the share path of a category folder. Unknown
// categories map to the root.
func (m *Manager) folderPath(c models.Category) string {
	if p, ok := m.folders[c]; ok {
		return p
	}
	return m.rootPath
}

// resolve maps rf to its share path. The cleaned result must be a direct
// child of the category folder and keep the name unchanged; anything else
// is rejected before the backend sees it.
func (m *Manager) resolve(op string, rf models.RemoteFile) (string, error) {
	folder := m.folderPath(rf.Category())
	name := rf.Name()

	if strings.ContainsAny(name, "\\\x00") {
		return "", models.NewStorageError(models.ErrInvalidPath, op, m.address(folder)+"/"+name,
			fmt.Errorf("name contains a reserved character"))
	}

	p := path.Clean(folder + "/" + name)
	if p == folder || path.Dir(p) != folder || path.Base(p) != name {
		return "", models.NewStorageError(models.ErrInvalidPath, op, m.address(folder)+"/"+name,
			fmt.Errorf("name %q escapes folder %s", name, folder))
	}

	return p, nil
}

// address renders a share path as a URL for logs and errors.
func (m *Manager) address(p string) string {
	return m.baseAddress + p
}

// tempUploadFile names the remote object an upload is staged in. It lives
// at the repository root, so uploads of the same name to different
// categories share it.
func tempUploadFile(rf models.RemoteFile) models.RemoteFile {
	return models.UncheckedRemoteFile(models.CategoryGeneric, "temp-"+rf.Name())
}
