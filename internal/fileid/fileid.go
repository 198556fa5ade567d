// Package fileid derives stable entity GUIDs so re-importing a file updates the same entities.
package fileid

import (
	"path/filepath"

	"github.com/google/uuid"
)

// namespace scopes the name-based UUIDs generated here.
var namespace = uuid.MustParse("6f1c8a52-3d2e-4b7a-9c41-0e5d7f2b8a13")

// EntityGUID returns a stable GUID for the entity of typeName identified by qualifiedName.
// Same pair always yields the same GUID.
func EntityGUID(typeName, qualifiedName string) string {
	return uuid.NewSHA1(namespace, []byte(typeName+"\x00"+qualifiedName)).String()
}

// SourceGUID returns a stable GUID for the entity at position key within the file at path,
// for records that carry neither a GUID nor a qualifiedName.
func SourceGUID(path, key string) string {
	normalized := filepath.Clean(path)
	return uuid.NewSHA1(namespace, []byte(normalized+"#"+key)).String()
}
