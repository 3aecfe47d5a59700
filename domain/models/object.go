package models

import (
	"strings"
)

// ObjectType is the discriminator identifying which collection of a
// snapshot an object belongs to.
type ObjectType string

const (
	TypeNone         ObjectType = ""
	TypeAbout        ObjectType = "about"
	TypeAccounts     ObjectType = "accounts"
	TypeCategories   ObjectType = "categories"
	TypeBills        ObjectType = "bills"
	TypeBudgets      ObjectType = "budgets"
	TypeTransactions ObjectType = "transactions"
	TypePiggyBanks   ObjectType = "piggy_banks"
	TypeServer       ObjectType = "server"
	TypePreferences  ObjectType = "preferences"
	TypeCurrencies   ObjectType = "currencies"
)

// ObjectTypes lists every recognized, non-empty discriminator.
var ObjectTypes = []ObjectType{
	TypeAbout,
	TypeAccounts,
	TypeCategories,
	TypeBills,
	TypeBudgets,
	TypeTransactions,
	TypePiggyBanks,
	TypeServer,
	TypePreferences,
	TypeCurrencies,
}

// Valid reports whether t is a recognized, non-empty discriminator.
func (t ObjectType) Valid() bool {
	for _, known := range ObjectTypes {
		if t == known {
			return true
		}
	}
	return false
}

func (t ObjectType) String() string {
	if t == TypeNone {
		return "none"
	}
	return string(t)
}

// ParseObjectType resolves a discriminator from either its value
// ("piggy_banks") or its constant-style name ("PIGGY_BANKS").
func ParseObjectType(s string) (ObjectType, bool) {
	t := ObjectType(strings.ToLower(strings.TrimSpace(s)))
	if t.Valid() {
		return t, true
	}
	return TypeNone, false
}

// Object is implemented by every domain record stored in an Aggregate.
// The discriminator is fixed per Go type.
type Object interface {
	ObjectType() ObjectType
}

// IdentifiedObject is an Object addressable by a string identifier
// within its collection.
type IdentifiedObject interface {
	Object
	ObjectID() string
}

// Empty is the sentinel returned for a valid discriminator whose slot is
// absent from a snapshot.
type Empty struct{}

func (Empty) ObjectType() ObjectType { return TypeNone }

// UniqueID derives the stable per-entity identifier consumed by the
// entity layer: {entry}_{type}_{id}.
func UniqueID(entryID string, t ObjectType, id string) string {
	return entryID + "_" + string(t) + "_" + id
}
