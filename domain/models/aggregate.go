package models

import (
	"fmt"
	"reflect"
	"sort"
)

// Aggregate is the type-keyed, id-keyed store holding one poll cycle's
// data. Identified objects live in per-type collections, singletons in
// one slot per type.
//
// An Aggregate built with NewView is bound to a single discriminator and
// behaves as that sub-collection only. An Aggregate is not safe for
// concurrent mutation; a published snapshot must only be read.
type Aggregate struct {
	bound       ObjectType
	collections map[ObjectType]map[string]IdentifiedObject
	singletons  map[ObjectType]Object
}

// NewAggregate returns an empty, unbound aggregate.
func NewAggregate() *Aggregate {
	return &Aggregate{
		collections: make(map[ObjectType]map[string]IdentifiedObject),
		singletons:  make(map[ObjectType]Object),
	}
}

// NewView returns an empty aggregate bound to t.
func NewView(t ObjectType) *Aggregate {
	a := NewAggregate()
	a.bound = t
	return a
}

// Bound returns the discriminator of a filtered view, TypeNone otherwise.
func (a *Aggregate) Bound() ObjectType {
	return a.bound
}

// Insert stores obj under its own discriminator.
func (a *Aggregate) Insert(obj Object) error {
	if isNil(obj) {
		return ErrNilObject
	}
	return a.InsertAt(obj.ObjectType(), obj)
}

// InsertAt stores obj in the given slot. Identified objects overwrite an
// existing entry with the same identifier.
func (a *Aggregate) InsertAt(slot ObjectType, obj Object) error {
	if isNil(obj) {
		return ErrNilObject
	}

	t := obj.ObjectType()
	if t == TypeNone {
		return fmt.Errorf("insert %T: %w", obj, ErrMissingType)
	}
	if !t.Valid() {
		return fmt.Errorf("insert %q: %w", string(t), ErrUnknownType)
	}
	if slot != t {
		return fmt.Errorf("insert %s into %s: %w", t, slot, ErrTypeMismatch)
	}
	if a.bound != TypeNone && a.bound != t {
		return fmt.Errorf("insert %s into %s view: %w", t, a.bound, ErrTypeMismatch)
	}

	if identified, ok := obj.(IdentifiedObject); ok {
		id := identified.ObjectID()
		if id == "" {
			return fmt.Errorf("insert %s: %w", t, ErrEmptyID)
		}
		coll, ok := a.collections[t]
		if !ok {
			coll = make(map[string]IdentifiedObject)
			a.collections[t] = coll
		}
		coll[id] = identified
		return nil
	}

	a.singletons[t] = obj
	return nil
}

// Merge folds sources into a. A source may be an Object, an *Aggregate
// (all of its collections and singletons are copied, preserving their
// discriminators) or a slice of either, merged element-wise. Nil, Empty
// and empty slices are no-ops.
func (a *Aggregate) Merge(sources ...any) error {
	for _, src := range sources {
		if err := a.merge(src); err != nil {
			return err
		}
	}
	return nil
}

func (a *Aggregate) merge(src any) error {
	switch v := src.(type) {
	case nil, Empty, *Empty:
		return nil
	case *Aggregate:
		return a.mergeAggregate(v)
	case Object:
		if isNil(v) {
			return nil
		}
		return a.Insert(v)
	case []any:
		return a.Merge(v...)
	}

	rv := reflect.ValueOf(src)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		for i := 0; i < rv.Len(); i++ {
			if err := a.merge(rv.Index(i).Interface()); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("merge %T: %w", src, ErrUnsupportedMerge)
}

func (a *Aggregate) mergeAggregate(other *Aggregate) error {
	if other == nil || other == a {
		return nil
	}
	for _, t := range sortedTypes(other.singletons) {
		if err := a.InsertAt(t, other.singletons[t]); err != nil {
			return err
		}
	}
	for _, t := range sortedTypes(other.collections) {
		coll := other.collections[t]
		for _, id := range sortedIDs(coll) {
			if err := a.InsertAt(t, coll[id]); err != nil {
				return err
			}
		}
	}
	return nil
}

// Len counts the entries of a view, or every stored object otherwise.
func (a *Aggregate) Len() int {
	if a.bound != TypeNone {
		if _, ok := a.singletons[a.bound]; ok {
			return 1
		}
		return len(a.collections[a.bound])
	}
	n := len(a.singletons)
	for _, coll := range a.collections {
		n += len(coll)
	}
	return n
}

// IsEmpty reports whether a holds nothing.
func (a *Aggregate) IsEmpty() bool {
	return a == nil || a.Len() == 0
}

// Has reports whether a slot for t is populated.
func (a *Aggregate) Has(t ObjectType) bool {
	if _, ok := a.singletons[t]; ok {
		return true
	}
	return len(a.collections[t]) > 0
}

// Types lists the populated discriminators in sorted order.
func (a *Aggregate) Types() []ObjectType {
	seen := make(map[ObjectType]struct{})
	for t := range a.singletons {
		seen[t] = struct{}{}
	}
	for t, coll := range a.collections {
		if len(coll) > 0 {
			seen[t] = struct{}{}
		}
	}
	return sortedTypes(seen)
}

// Counts returns the number of objects per populated discriminator.
func (a *Aggregate) Counts() map[ObjectType]int {
	counts := make(map[ObjectType]int)
	for t := range a.singletons {
		counts[t] = 1
	}
	for t, coll := range a.collections {
		if len(coll) > 0 {
			counts[t] = len(coll)
		}
	}
	return counts
}

// Get looks up id inside the bound collection of a view. On an unbound
// aggregate it always misses; use Lookup there.
func (a *Aggregate) Get(id string) (IdentifiedObject, bool) {
	if a.bound == TypeNone {
		return nil, false
	}
	return a.Lookup(a.bound, id)
}

// Lookup returns the object stored under (t, id).
func (a *Aggregate) Lookup(t ObjectType, id string) (IdentifiedObject, bool) {
	obj, ok := a.collections[t][id]
	return obj, ok
}

// View returns a filtered view over t. The result is never nil; an
// absent slot yields an empty view.
func (a *Aggregate) View(t ObjectType) *Aggregate {
	view := NewView(t)
	if s, ok := a.singletons[t]; ok {
		view.singletons[t] = s
	}
	if coll, ok := a.collections[t]; ok {
		view.collections[t] = copyCollection(coll)
	}
	return view
}

// Collection returns a copy of the collection stored under t, empty when
// absent.
func (a *Aggregate) Collection(t ObjectType) map[string]IdentifiedObject {
	return copyCollection(a.collections[t])
}

// Singleton returns the singleton stored under t, or Empty.
func (a *Aggregate) Singleton(t ObjectType) Object {
	if s, ok := a.singletons[t]; ok {
		return s
	}
	return Empty{}
}

// Objects returns the identified objects of a view sorted by id, or of
// every collection sorted by type and id.
func (a *Aggregate) Objects() []IdentifiedObject {
	var types []ObjectType
	if a.bound != TypeNone {
		types = []ObjectType{a.bound}
	} else {
		types = sortedTypes(a.collections)
	}

	var out []IdentifiedObject
	for _, t := range types {
		coll := a.collections[t]
		for _, id := range sortedIDs(coll) {
			out = append(out, coll[id])
		}
	}
	return out
}

// IDs returns the sorted identifiers stored under t.
func (a *Aggregate) IDs(t ObjectType) []string {
	return sortedIDs(a.collections[t])
}

// Clone returns a shallow copy; stored objects are shared.
func (a *Aggregate) Clone() *Aggregate {
	c := NewAggregate()
	c.bound = a.bound
	for t, s := range a.singletons {
		c.singletons[t] = s
	}
	for t, coll := range a.collections {
		c.collections[t] = copyCollection(coll)
	}
	return c
}

// CollectionOf returns the collection under t narrowed to T. Entries of
// another concrete type are left out.
func CollectionOf[T IdentifiedObject](a *Aggregate, t ObjectType) map[string]T {
	out := make(map[string]T, len(a.collections[t]))
	for id, obj := range a.collections[t] {
		if typed, ok := obj.(T); ok {
			out[id] = typed
		}
	}
	return out
}

func (a *Aggregate) Accounts() map[string]*Account {
	return CollectionOf[*Account](a, TypeAccounts)
}

func (a *Aggregate) Categories() map[string]*Category {
	return CollectionOf[*Category](a, TypeCategories)
}

func (a *Aggregate) Bills() map[string]*Bill {
	return CollectionOf[*Bill](a, TypeBills)
}

func (a *Aggregate) Budgets() map[string]*Budget {
	return CollectionOf[*Budget](a, TypeBudgets)
}

func (a *Aggregate) Transactions() map[string]*Transaction {
	return CollectionOf[*Transaction](a, TypeTransactions)
}

func (a *Aggregate) PiggyBanks() map[string]*PiggyBank {
	return CollectionOf[*PiggyBank](a, TypePiggyBanks)
}

func (a *Aggregate) Currencies() map[string]Currency {
	return CollectionOf[Currency](a, TypeCurrencies)
}

// About returns the server description, a zero About when absent.
func (a *Aggregate) About() *About {
	if about, ok := a.singletons[TypeAbout].(*About); ok {
		return about
	}
	return &About{}
}

// Preferences returns the server preferences, zero-valued when absent.
func (a *Aggregate) Preferences() *Preferences {
	if prefs, ok := a.singletons[TypePreferences].(*Preferences); ok {
		return prefs
	}
	return &Preferences{DefaultCurrency: EmptyCurrency()}
}

func copyCollection(coll map[string]IdentifiedObject) map[string]IdentifiedObject {
	out := make(map[string]IdentifiedObject, len(coll))
	for id, obj := range coll {
		out[id] = obj
	}
	return out
}

func sortedTypes[V any](m map[ObjectType]V) []ObjectType {
	out := make([]ObjectType, 0, len(m))
	for t := range m {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedIDs(coll map[string]IdentifiedObject) []string {
	out := make([]string, 0, len(coll))
	for id := range coll {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func isNil(obj any) bool {
	if obj == nil {
		return true
	}
	rv := reflect.ValueOf(obj)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
