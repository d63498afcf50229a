// Package pathstore maps a tree of groups and notebooks onto flat
// key-value storage.
//
// A group path always starts and ends with Sep; the root is RootPath. The
// names of a group's subgroups are stored as a JSON list under the group
// path itself, and the names of its notebooks under the group path plus
// NotebookSuffix. Notebooks are leaves: their path addresses artifact
// fields and is never listed.
package pathstore

import "strings"

const (
	RootPath       = "/root/"
	Sep            = "/"
	NotebookSuffix = "_notebooks"

	notebookMarker = Sep + NotebookSuffix + Sep
)

// GroupsKey is the storage key of the subgroup-name list of path.
func GroupsKey(path string) string { return path }

// NotebooksKey is the storage key of the notebook-name list of path.
func NotebooksKey(path string) string { return path + NotebookSuffix }

// GroupPath returns the navigable path of group name under parent.
// The name is not validated.
func GroupPath(parent, name string) string {
	return GroupsKey(parent) + name + Sep
}

// NotebookPath returns the artifact address of notebook name under parent.
func NotebookPath(parent, name string) string {
	return NotebooksKey(parent) + Sep + name
}

// ArtifactKey returns the storage key of field under a notebook path.
func ArtifactKey(notebookPath, field string) string {
	return notebookPath + Sep + field
}

// ParentPath drops the last segment of path. Going up from the root stays
// at the root.
func ParentPath(path string) string {
	var segs []string
	for _, s := range strings.Split(path, Sep) {
		if s != "" {
			segs = append(segs, s)
		}
	}
	if len(segs) > 0 {
		segs = segs[:len(segs)-1]
	}
	if len(segs) == 0 {
		return RootPath
	}
	return Sep + strings.Join(segs, Sep) + Sep
}

// IsGroupPath reports whether path has the shape of a group path. Paths
// through a notebook are not groups: notebooks are leaves.
func IsGroupPath(path string) bool {
	return strings.HasPrefix(path, RootPath) &&
		strings.HasSuffix(path, Sep) &&
		!strings.Contains(path, notebookMarker)
}

// lastSegment returns the final name of a group path, or "" for the root.
func lastSegment(path string) string {
	trimmed := strings.TrimSuffix(path, Sep)
	if len(trimmed) < len(RootPath) {
		return ""
	}
	return trimmed[strings.LastIndex(trimmed, Sep)+1:]
}

// IsNotebookPath reports whether path has the shape of a notebook path.
func IsNotebookPath(path string) bool {
	if !strings.HasPrefix(path, RootPath) {
		return false
	}
	at := strings.LastIndex(path, notebookMarker)
	if at < len(RootPath)-1 {
		return false
	}
	name := path[at+len(notebookMarker):]
	return name != "" && !strings.Contains(name, Sep)
}

// SplitArtifactKey splits a storage key into notebook path and field. ok is
// false for keys that do not address a notebook artifact, including the
// notebook list of a group whose name merely ends in NotebookSuffix.
func SplitArtifactKey(key string) (notebookPath, field string, ok bool) {
	if !strings.HasPrefix(key, RootPath) {
		return "", "", false
	}
	at := strings.LastIndex(key, notebookMarker)
	if at < len(RootPath)-1 {
		return "", "", false
	}
	name, field, found := strings.Cut(key[at+len(notebookMarker):], Sep)
	if !found || name == "" || field == "" || strings.Contains(field, Sep) {
		return "", "", false
	}
	return key[:len(key)-len(field)-1], field, true
}
