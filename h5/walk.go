package h5

import "errors"

// WalkFunc is called for each node during traversal.
// obj is a *Group or a *Dataset, or nil when the node failed to open, in
// which case err is set. obj is closed after WalkFunc returns.
// Returning SkipGroup from a group skips its children; any other non-nil
// error stops the walk and is returned by Walk.
type WalkFunc func(path string, obj any, err error) error

// SkipGroup is returned by a WalkFunc to skip the children of a group.
var SkipGroup = errors.New("skip this group")

// Walk traverses g and every node below it, depth first and in name
// order within each group. g itself is visited first and is not closed.
//
// Example:
//
//	h5.Walk(f.Root(), func(path string, obj any, err error) error {
//	    if err != nil {
//	        return err
//	    }
//	    switch o := obj.(type) {
//	    case *h5.Group:
//	        fmt.Println("group:", path)
//	    case *h5.Dataset:
//	        fmt.Println("dataset:", path, o.Dims())
//	    }
//	    return nil
//	})
func Walk(g *Group, fn WalkFunc) error {
	err := fn(g.Path(), g, nil)
	if errors.Is(err, SkipGroup) {
		return nil
	}
	if err != nil {
		return err
	}
	return walkChildren(g, fn)
}

func walkChildren(g *Group, fn WalkFunc) error {
	children, err := g.children()
	if err != nil {
		return fn(g.Path(), nil, err)
	}
	for _, c := range children {
		p := JoinPath(g.Path(), c.name)
		if c.kind == kindOf[*Group]() {
			sub, err := OpenGroup(g, c.name)
			if err != nil {
				if err := fn(p, nil, err); err != nil {
					return err
				}
				continue
			}
			err = Walk(sub, fn)
			sub.Close()
			if err != nil {
				return err
			}
			continue
		}
		ds, err := OpenDataset(g, c.name)
		if err != nil {
			if err := fn(p, nil, err); err != nil {
				return err
			}
			continue
		}
		err = fn(p, ds, nil)
		ds.Close()
		if err != nil && !errors.Is(err, SkipGroup) {
			return err
		}
	}
	return nil
}
