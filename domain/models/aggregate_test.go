package models

import (
	"context"
	"errors"
	"testing"
)

type bogusObject struct{ id string }

func (b bogusObject) ObjectType() ObjectType { return ObjectType("wallets") }
func (b bogusObject) ObjectID() string       { return b.id }

type untypedObject struct{}

func (untypedObject) ObjectType() ObjectType { return TypeNone }

func TestAggregate_InsertAndLookup(t *testing.T) {
	objects := []IdentifiedObject{
		&Account{ID: "1", Name: "Checking"},
		&Category{ID: "2", Name: "Groceries"},
		&Bill{ID: "3", Name: "Rent"},
		&Budget{ID: "4", Name: "Food"},
		&Transaction{ID: "5", Description: "Coffee"},
		&PiggyBank{ID: "6", Name: "Holiday"},
		Currency{ID: "7", Code: "EUR"},
	}

	agg := NewAggregate()
	for _, obj := range objects {
		if err := agg.Insert(obj); err != nil {
			t.Fatalf("Insert(%T) returned error: %v", obj, err)
		}
	}

	for _, want := range objects {
		got, ok := agg.Lookup(want.ObjectType(), want.ObjectID())
		if !ok {
			t.Errorf("Lookup(%s, %s) missed", want.ObjectType(), want.ObjectID())
			continue
		}
		if got != want {
			t.Errorf("Lookup(%s, %s) = %v, want %v", want.ObjectType(), want.ObjectID(), got, want)
		}
	}
	if agg.Len() != len(objects) {
		t.Errorf("Len() = %d, want %d", agg.Len(), len(objects))
	}
}

func TestAggregate_InsertOverwrites(t *testing.T) {
	agg := NewAggregate()
	first := &Account{ID: "1", Name: "Old"}
	second := &Account{ID: "1", Name: "New"}

	if err := agg.Insert(first); err != nil {
		t.Fatal(err)
	}
	if err := agg.Insert(second); err != nil {
		t.Fatal(err)
	}

	accounts := agg.Accounts()
	if len(accounts) != 1 {
		t.Fatalf("expected 1 account, got %d", len(accounts))
	}
	if accounts["1"].Name != "New" {
		t.Errorf("expected last write to win, got %q", accounts["1"].Name)
	}
}

func TestAggregate_InsertErrors(t *testing.T) {
	var nilAccount *Account

	tests := []struct {
		name    string
		slot    ObjectType
		obj     Object
		wantErr error
	}{
		{name: "nil object", slot: TypeAccounts, obj: nil, wantErr: ErrNilObject},
		{name: "typed nil", slot: TypeAccounts, obj: nilAccount, wantErr: ErrNilObject},
		{name: "missing type", slot: TypeAccounts, obj: untypedObject{}, wantErr: ErrMissingType},
		{name: "unknown type", slot: ObjectType("wallets"), obj: bogusObject{id: "1"}, wantErr: ErrUnknownType},
		{name: "mismatched slot", slot: TypeBills, obj: &Account{ID: "1"}, wantErr: ErrTypeMismatch},
		{name: "empty id", slot: TypeAccounts, obj: &Account{}, wantErr: ErrEmptyID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewAggregate().InsertAt(tt.slot, tt.obj)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("InsertAt() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAggregate_Singletons(t *testing.T) {
	agg := NewAggregate()

	if _, ok := agg.Singleton(TypeAbout).(Empty); !ok {
		t.Errorf("expected Empty sentinel for absent about")
	}
	if agg.About().Connected() {
		t.Errorf("expected zero About to be disconnected")
	}
	if got := agg.Preferences().DefaultCurrency.ID; got != "0" {
		t.Errorf("expected empty default currency id 0, got %q", got)
	}

	if err := agg.Insert(&About{Version: "6.1.0", OS: "Linux"}); err != nil {
		t.Fatal(err)
	}
	if err := agg.Insert(&About{Version: "6.2.0", OS: "Linux"}); err != nil {
		t.Fatal(err)
	}

	if agg.About().Version != "6.2.0" {
		t.Errorf("expected a single about slot holding the last write, got %q", agg.About().Version)
	}
	if agg.Len() != 1 {
		t.Errorf("Len() = %d, want 1", agg.Len())
	}
}

func TestAggregate_View(t *testing.T) {
	view := NewView(TypeAccounts)

	if err := view.Insert(&Account{ID: "1", Name: "Checking"}); err != nil {
		t.Fatal(err)
	}
	if err := view.Insert(&Category{ID: "1"}); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("expected mismatch inserting a category into an accounts view, got %v", err)
	}

	obj, ok := view.Get("1")
	if !ok || obj.(*Account).Name != "Checking" {
		t.Errorf("Get(1) = %v, %v", obj, ok)
	}
	if _, ok := view.Get("2"); ok {
		t.Errorf("Get(2) should miss")
	}
	if view.Len() != 1 {
		t.Errorf("Len() = %d, want 1", view.Len())
	}

	whole := NewAggregate()
	if _, ok := whole.Get("1"); ok {
		t.Errorf("Get on an unbound aggregate should miss")
	}

	empty := whole.View(TypeBills)
	if empty == nil || !empty.IsEmpty() || empty.Bound() != TypeBills {
		t.Errorf("expected empty bills view, got %+v", empty)
	}
}

func TestAggregate_Merge(t *testing.T) {
	accounts := NewView(TypeAccounts)
	_ = accounts.Insert(&Account{ID: "1"})
	_ = accounts.Insert(&Account{ID: "2"})

	categories := NewView(TypeCategories)
	_ = categories.Insert(&Category{ID: "1"})

	agg := NewAggregate()
	err := agg.Merge(
		nil,
		Empty{},
		[]*Aggregate{accounts, nil},
		[]any{categories, &About{Version: "6.1.0"}},
		[]*Bill{{ID: "9"}},
	)
	if err != nil {
		t.Fatalf("Merge returned error: %v", err)
	}

	counts := agg.Counts()
	want := map[ObjectType]int{TypeAccounts: 2, TypeCategories: 1, TypeAbout: 1, TypeBills: 1}
	for typ, n := range want {
		if counts[typ] != n {
			t.Errorf("count[%s] = %d, want %d", typ, counts[typ], n)
		}
	}

	if err := agg.Merge(42); !errors.Is(err, ErrUnsupportedMerge) {
		t.Errorf("expected ErrUnsupportedMerge, got %v", err)
	}
}

func TestAggregate_MergeIdempotent(t *testing.T) {
	src := NewAggregate()
	_ = src.Insert(&Account{ID: "1"})
	_ = src.Insert(&Category{ID: "c"})
	_ = src.Insert(&Preferences{FiscalYearStart: "2024-01-01"})

	once := NewAggregate()
	if err := once.Merge(src); err != nil {
		t.Fatal(err)
	}
	twice := NewAggregate()
	if err := twice.Merge(src, src); err != nil {
		t.Fatal(err)
	}

	if once.Len() != twice.Len() {
		t.Fatalf("merging twice changed size: %d vs %d", once.Len(), twice.Len())
	}
	for _, typ := range once.Types() {
		a, b := once.IDs(typ), twice.IDs(typ)
		if len(a) != len(b) {
			t.Errorf("ids for %s differ: %v vs %v", typ, a, b)
		}
	}
}

func TestAggregate_MergeIntoViewRejectsOtherTypes(t *testing.T) {
	view := NewView(TypeBills)
	src := NewView(TypeAccounts)
	_ = src.Insert(&Account{ID: "1"})

	if err := view.Merge(src); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch, got %v", err)
	}
}

func TestAggregate_ObjectsSorted(t *testing.T) {
	agg := NewAggregate()
	_ = agg.Insert(&Category{ID: "b"})
	_ = agg.Insert(&Account{ID: "2"})
	_ = agg.Insert(&Account{ID: "1"})

	var got []string
	for _, obj := range agg.Objects() {
		got = append(got, string(obj.ObjectType())+"/"+obj.ObjectID())
	}
	want := []string{"accounts/1", "accounts/2", "categories/b"}
	if len(got) != len(want) {
		t.Fatalf("Objects() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Objects()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestBatch_ResolveMergesInOrder(t *testing.T) {
	var batch Batch
	batch.Add("first", func(ctx context.Context) (*Aggregate, error) {
		v := NewView(TypeAccounts)
		_ = v.Insert(&Account{ID: "1", Name: "first"})
		return v, nil
	})
	batch.Add("second", func(ctx context.Context) (*Aggregate, error) {
		v := NewView(TypeAccounts)
		_ = v.Insert(&Account{ID: "1", Name: "second"})
		return v, nil
	})
	batch.Add("empty", func(ctx context.Context) (*Aggregate, error) {
		return nil, nil
	})

	agg := NewAggregate()
	if err := batch.Resolve(context.Background(), agg); err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got := agg.Accounts()["1"].Name; got != "second" {
		t.Errorf("expected registration order to decide the winner, got %q", got)
	}
	if batch.Len() != 0 {
		t.Errorf("expected batch to be drained, got %d", batch.Len())
	}
}

func TestBatch_ResolveError(t *testing.T) {
	boom := errors.New("boom")

	var batch Batch
	batch.Add("ok", func(ctx context.Context) (*Aggregate, error) {
		v := NewView(TypeAccounts)
		_ = v.Insert(&Account{ID: "1"})
		return v, nil
	})
	batch.Add("broken", func(ctx context.Context) (*Aggregate, error) {
		return nil, boom
	})

	agg := NewAggregate()
	err := batch.Resolve(context.Background(), agg)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if !agg.IsEmpty() {
		t.Errorf("expected nothing merged on failure")
	}
}

func TestParseObjectType(t *testing.T) {
	tests := map[string]ObjectType{
		"accounts":    TypeAccounts,
		"PIGGY_BANKS": TypePiggyBanks,
		" Bills ":     TypeBills,
	}
	for in, want := range tests {
		got, ok := ParseObjectType(in)
		if !ok || got != want {
			t.Errorf("ParseObjectType(%q) = %v, %v; want %v", in, got, ok, want)
		}
	}
	for _, in := range []string{"", "none", "wallets"} {
		if _, ok := ParseObjectType(in); ok {
			t.Errorf("ParseObjectType(%q) should fail", in)
		}
	}
}

func TestUniqueID(t *testing.T) {
	if got := UniqueID("entry", TypeAccounts, "42"); got != "entry_accounts_42" {
		t.Errorf("UniqueID() = %q", got)
	}
}
