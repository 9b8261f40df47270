package ecs

import "reflect"

// systemParam is implemented by every injectable parameter type (Query,
// Res, ResMut, EventReader, EventWriter, Local). The scheduler discovers
// exported parameter fields on a system struct by reflection, initializes
// them, and collects their declared access.
type systemParam interface {
	initParam(w *World)
	access() []accessDecl
}

type accessClass uint8

const (
	accessComponent accessClass = iota
	accessResource
	accessEvent
)

func (c accessClass) String() string {
	switch c {
	case accessComponent:
		return "component"
	case accessResource:
		return "resource"
	case accessEvent:
		return "event"
	default:
		return "unknown"
	}
}

// accessDecl is one entry in a system's declared access set.
type accessDecl struct {
	class  accessClass
	target reflect.Type
	write  bool
}

type accessSet []accessDecl

// conflictsWith returns a resource declaration that both sets write, if
// any. Exclusive-exclusive overlap on a resource singleton is a schedule
// construction error. Component columns and event streams tolerate
// multiple same-stage writers because tag-specialized systems routinely
// write the same component type behind disjoint filters; those writers
// are serialized by overlapsWith instead.
func (s accessSet) conflictsWith(o accessSet) (accessDecl, bool) {
	for _, d := range s {
		if !d.write || d.class != accessResource {
			continue
		}
		for _, e := range o {
			if e.write && d.class == e.class && d.target == e.target {
				return d, true
			}
		}
	}
	return accessDecl{}, false
}

// overlapsWith reports whether the two sets cannot run concurrently:
// they touch the same target and at least one side writes it.
func (s accessSet) overlapsWith(o accessSet) bool {
	for _, d := range s {
		for _, e := range o {
			if d.class == e.class && d.target == e.target && (d.write || e.write) {
				return true
			}
		}
	}
	return false
}
