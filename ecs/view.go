package ecs

import (
	"iter"
	"reflect"
	"strings"
	"unsafe"
)

// With filters a view to entities carrying component type T without
// borrowing it. Declare it as a zero-size field on the view struct.
// Membership is all that is tested; the payload is never touched, so
// zero-size marker components cost nothing to filter on.
type With[T any] struct{}

func (With[T]) filterTerm() (reflect.Type, bool) {
	return reflect.TypeFor[T](), false
}

// Without filters a view to entities not carrying component type T.
type Without[T any] struct{}

func (Without[T]) filterTerm() (reflect.Type, bool) {
	return reflect.TypeFor[T](), true
}

type markerFilter interface {
	filterTerm() (excluded reflect.Type, exclude bool)
}

var entityType = reflect.TypeFor[Entity]()

// viewTerm is one borrowed component in a view struct.
type viewTerm struct {
	typ      reflect.Type
	offset   uintptr
	optional bool
	readonly bool
}

// View matches entities against a component signature described by a
// struct type and fills that struct with pointers into live storage.
//
// Fields of the view struct declare the signature:
//   - a pointer field requires the component and borrows it mutably;
//     tag it `ecs:"readonly"` for a shared borrow or `ecs:"optional"`
//     to match entities without it (the field is nil then)
//   - a With[T] or Without[T] field filters on membership only
//   - an Entity field receives the matched entity's identity
//
// Iteration is ascending by entity index and restartable.
type View[T any] struct {
	world        *World
	terms        []viewTerm
	withTypes    []reflect.Type
	withoutTypes []reflect.Type

	entityOffset  uintptr
	captureEntity bool
}

// NewView parses the view struct type T and binds the view to a world.
// Panics if T is not a struct or declares an unusable field.
func NewView[T any](world *World) *View[T] {
	structType := reflect.TypeFor[T]()
	if structType.Kind() != reflect.Struct {
		panic("view type parameter must be a struct")
	}

	v := &View[T]{world: world}

	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		fieldType := field.Type

		if fieldType == entityType {
			v.entityOffset = field.Offset
			v.captureEntity = true
			continue
		}

		if marker, ok := reflect.Zero(fieldType).Interface().(markerFilter); ok {
			typ, exclude := marker.filterTerm()
			if exclude {
				v.withoutTypes = append(v.withoutTypes, typ)
			} else {
				v.withTypes = append(v.withTypes, typ)
			}
			continue
		}

		if fieldType.Kind() != reflect.Ptr {
			panic("view struct fields must be component pointers, With/Without markers, or Entity")
		}

		term := viewTerm{
			typ:    fieldType.Elem(),
			offset: field.Offset,
		}

		// Embedded component fields are required and mutable; use a
		// named field to tag one readonly or optional.
		if !field.Anonymous {
			if tag := field.Tag.Get("ecs"); tag != "" {
				for _, opt := range strings.Split(tag, ",") {
					switch opt {
					case "optional":
						term.optional = true
					case "readonly":
						term.readonly = true
					default:
						panic("invalid ecs tag value: \"" + opt + "\" (supported: \"optional\", \"readonly\")")
					}
				}
			}
		}

		v.terms = append(v.terms, term)
	}

	if len(v.requiredTypes()) == 0 && len(v.withTypes) == 0 {
		panic("view must declare at least one required component or With marker")
	}

	return v
}

func (v *View[T]) requiredTypes() []reflect.Type {
	required := make([]reflect.Type, 0, len(v.terms))
	for _, term := range v.terms {
		if !term.optional {
			required = append(required, term.typ)
		}
	}
	return required
}

// accessDecls reports the component access this view declares: one entry
// per borrowed term, mutable unless tagged readonly. Markers test
// membership only and declare nothing.
func (v *View[T]) accessDecls() []accessDecl {
	decls := make([]accessDecl, 0, len(v.terms))
	for _, term := range v.terms {
		decls = append(decls, accessDecl{
			class:  accessComponent,
			target: term.typ,
			write:  !term.readonly,
		})
	}
	return decls
}

// viewPlan resolves the view's types against the world's live columns for
// one iteration pass. Columns appear lazily on first insert, so the plan
// is rebuilt per pass rather than cached.
type viewPlan struct {
	driver   iColumn
	termCols []iColumn // aligned with terms; nil for an absent optional column
	include  []iColumn
	exclude  []iColumn
}

// plan returns ok=false when some required type has no column yet: the
// query result is simply empty, which is not an error.
func (v *View[T]) plan() (viewPlan, bool) {
	p := viewPlan{termCols: make([]iColumn, len(v.terms))}

	for i, term := range v.terms {
		col := v.world.columns[term.typ]
		if col == nil && !term.optional {
			return p, false
		}
		p.termCols[i] = col
		if col != nil && !term.optional {
			if p.driver == nil || col.len() < p.driver.len() {
				p.driver = col
			}
		}
	}

	for _, typ := range v.withTypes {
		col := v.world.columns[typ]
		if col == nil {
			return p, false
		}
		p.include = append(p.include, col)
		if p.driver == nil || col.len() < p.driver.len() {
			p.driver = col
		}
	}

	for _, typ := range v.withoutTypes {
		if col := v.world.columns[typ]; col != nil {
			p.exclude = append(p.exclude, col)
		}
	}

	return p, p.driver != nil
}

// fill populates the result struct for the entity at index. Returns false
// if the entity does not match the signature.
func (v *View[T]) fill(resultPtr unsafe.Pointer, index uint32, p *viewPlan) bool {
	for _, col := range p.exclude {
		if col.has(index) {
			return false
		}
	}
	for _, col := range p.include {
		if !col.has(index) {
			return false
		}
	}

	for i := range v.terms {
		term := &v.terms[i]
		fieldPtr := unsafe.Pointer(uintptr(resultPtr) + term.offset)

		var component any
		if col := p.termCols[i]; col != nil {
			component = col.get(index)
		}

		if component == nil {
			if !term.optional {
				return false
			}
			*(*unsafe.Pointer)(fieldPtr) = nil
			continue
		}

		// Extract the data pointer from the interface to avoid a
		// reflective field set in the hot path.
		*(*unsafe.Pointer)(fieldPtr) = (*iface)(unsafe.Pointer(&component)).data
	}

	return true
}

// Iter yields (Entity, view struct) for every matching entity, ascending
// by entity index.
func (v *View[T]) Iter() iter.Seq2[Entity, T] {
	return func(yield func(Entity, T) bool) {
		p, ok := v.plan()
		if !ok {
			return
		}

		var result T
		resultPtr := unsafe.Pointer(&result)

		for index := range p.driver.iter() {
			if !v.fill(resultPtr, index, &p) {
				continue
			}

			e := v.world.entities.entityAt(index)
			if v.captureEntity {
				*(*Entity)(unsafe.Pointer(uintptr(resultPtr) + v.entityOffset)) = e
			}
			if !yield(e, result) {
				return
			}
		}
	}
}

// Values yields just the view structs, for callers that do not need the
// entity identity.
func (v *View[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, value := range v.Iter() {
			if !yield(value) {
				return
			}
		}
	}
}

// Get returns a populated view struct for the given entity, or nil if the
// entity is dead or does not match the signature.
func (v *View[T]) Get(e Entity) *T {
	if !v.world.entities.isAlive(e) {
		return nil
	}
	p, ok := v.plan()
	if !ok {
		return nil
	}

	var result T
	if !v.fill(unsafe.Pointer(&result), e.index, &p) {
		return nil
	}
	if v.captureEntity {
		*(*Entity)(unsafe.Pointer(uintptr(unsafe.Pointer(&result)) + v.entityOffset)) = e
	}
	return &result
}
