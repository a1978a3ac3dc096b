package docpath

import "github.com/maruel/jsondb/internal/value"

// Resolve returns the value at p.
//
// Every segment but the last must name an object member of the current node;
// the last must be present. Otherwise it returns false.
func Resolve(root value.Value, p Path) (value.Value, bool) {
	node := root
	for _, seg := range p.segments {
		child, ok := node.Lookup(seg)
		if !ok {
			return value.Value{}, false
		}
		node = child
	}
	return node, len(p.segments) > 0
}

// Upsert returns a new root where p is bound to v.
//
// Intermediate members that are absent or are not objects are replaced by
// fresh empty objects; whatever they held is discarded. The final member is
// created or overwritten. A root that is not an object is replaced too. A
// zero Path leaves root unchanged.
func Upsert(root value.Value, p Path, v value.Value) value.Value {
	if len(p.segments) == 0 {
		return root
	}
	if !root.IsObject() {
		root = value.EmptyObject()
	}
	return upsert(root, p.segments, v)
}

func upsert(node value.Value, segments []string, v value.Value) value.Value {
	seg := segments[0]
	if len(segments) == 1 {
		return node.With(seg, v)
	}
	child, ok := node.Lookup(seg)
	if !ok || !child.IsObject() {
		child = value.EmptyObject()
	}
	return node.With(seg, upsert(child, segments[1:], v))
}

// Remove returns a new root without the member at p, and whether it existed.
//
// Traversal follows Resolve. When nothing is removed root is returned as is.
func Remove(root value.Value, p Path) (value.Value, bool) {
	if len(p.segments) == 0 || !root.IsObject() {
		return root, false
	}
	return remove(root, p.segments)
}

func remove(node value.Value, segments []string) (value.Value, bool) {
	seg := segments[0]
	if len(segments) == 1 {
		return node.Without(seg)
	}
	child, ok := node.Lookup(seg)
	if !ok || !child.IsObject() {
		return node, false
	}
	newChild, removed := remove(child, segments[1:])
	if !removed {
		return node, false
	}
	return node.With(seg, newChild), true
}
