package mystore

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"
)

// inmemTxKey marks a context that carries a transaction spanning every in-memory store
// touched within it, like the single datastore transaction shared by the gcloud stores.
type inmemTxKey struct{}

type undoKey struct {
	store any
	uid   string
}

type inmemTx struct {
	joined    map[any]bool
	undone    map[undoKey]bool
	rollbacks []func()
	unlocks   []func()
}

type InMemoryStore[T any] struct {
	sync.Mutex
	Items map[string]T
}

func NewInMemoryStore[T any](c context.Context) (*InMemoryStore[T], func(), error) {
	return &InMemoryStore[T]{
		Items: make(map[string]T),
	}, func() {}, nil
}

func (s *InMemoryStore[T]) RunInTransaction(c context.Context, f func(c context.Context) error) error {
	if tx := txFrom(c); tx != nil {
		// already inside a transaction: this store joins it
		s.join(tx)
		return f(c)
	}

	// Start transaction
	tx := &inmemTx{
		joined: map[any]bool{},
		undone: map[undoKey]bool{},
	}
	defer tx.release()

	s.join(tx)
	ctx := context.WithValue(c, inmemTxKey{}, tx)

	// Within this block everything is transactional
	err := f(ctx)
	if err != nil {
		tx.rollback()
		return err
	}

	// Commit
	return nil
}

func txFrom(c context.Context) *inmemTx {
	tx, ok := c.Value(inmemTxKey{}).(*inmemTx)
	if !ok {
		return nil
	}
	return tx
}

// join locks the store until the transaction ends. Stores are locked in the order they
// are first touched.
func (s *InMemoryStore[T]) join(tx *inmemTx) {
	if tx.joined[s] {
		return
	}
	s.Lock()
	tx.joined[s] = true
	tx.unlocks = append(tx.unlocks, s.Unlock)
}

// begin makes the store part of the transaction in c or locks it for a single operation.
func (s *InMemoryStore[T]) begin(c context.Context) (*inmemTx, func()) {
	tx := txFrom(c)
	if tx == nil {
		s.Lock()
		return nil, s.Unlock
	}
	s.join(tx)
	return tx, func() {}
}

func (s *InMemoryStore[T]) remember(tx *inmemTx, uid string) {
	if tx == nil {
		return
	}
	key := undoKey{store: s, uid: uid}
	if tx.undone[key] {
		return
	}
	tx.undone[key] = true

	value, exists := s.Items[uid]
	tx.rollbacks = append(tx.rollbacks, func() {
		if exists {
			s.Items[uid] = value
		} else {
			delete(s.Items, uid)
		}
	})
}

func (tx *inmemTx) rollback() {
	for i := len(tx.rollbacks) - 1; i >= 0; i-- {
		tx.rollbacks[i]()
	}
}

func (tx *inmemTx) release() {
	for i := len(tx.unlocks) - 1; i >= 0; i-- {
		tx.unlocks[i]()
	}
}

func (s *InMemoryStore[T]) Put(c context.Context, uid string, value T) error {
	tx, unlock := s.begin(c)
	defer unlock()

	s.remember(tx, uid)
	s.Items[uid] = value

	return nil
}

func (s *InMemoryStore[T]) Get(c context.Context, uid string) (T, bool, error) {
	_, unlock := s.begin(c)
	defer unlock()

	result, exists := s.Items[uid]

	return result, exists, nil
}

func (s *InMemoryStore[T]) Delete(c context.Context, uid string) error {
	tx, unlock := s.begin(c)
	defer unlock()

	s.remember(tx, uid)
	delete(s.Items, uid)

	return nil
}

func (s *InMemoryStore[T]) List(c context.Context) ([]T, error) {
	_, unlock := s.begin(c)
	defer unlock()

	result := make([]T, 0, len(s.Items))
	for _, v := range s.Items {
		result = append(result, v)
	}

	return result, nil
}

func (s *InMemoryStore[T]) Query(c context.Context, filters []Filter, orderByField string) ([]T, error) {
	all, err := s.List(c)
	if err != nil {
		return nil, err
	}

	result := []T{}
	for _, item := range all {
		matches, err := matchesAll(item, filters)
		if err != nil {
			return nil, err
		}
		if matches {
			result = append(result, item)
		}
	}

	if orderByField != "" {
		var sortErr error
		sort.SliceStable(result, func(i, j int) bool {
			cmp, err := compareFields(fieldValue(result[i], orderByField), fieldValue(result[j], orderByField))
			if err != nil {
				sortErr = err
				return false
			}
			return cmp < 0
		})
		if sortErr != nil {
			return nil, sortErr
		}
	}

	return result, nil
}

func matchesAll[T any](item T, filters []Filter) (bool, error) {
	for _, f := range filters {
		field := fieldValue(item, f.Field)
		if !field.IsValid() {
			return false, fmt.Errorf("unknown field %s", f.Field)
		}
		cmp, err := compareFields(field, reflect.ValueOf(f.Value))
		if err != nil {
			return false, fmt.Errorf("error comparing field %s: %s", f.Field, err)
		}
		ok := false
		switch f.Compare {
		case "=":
			ok = cmp == 0
		case "<":
			ok = cmp < 0
		case "<=":
			ok = cmp <= 0
		case ">":
			ok = cmp > 0
		case ">=":
			ok = cmp >= 0
		default:
			return false, fmt.Errorf("unsupported comparison %s", f.Compare)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func fieldValue(item any, name string) reflect.Value {
	v := reflect.ValueOf(item)
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}
	}
	return v.FieldByName(name)
}

func compareFields(a, b reflect.Value) (int, error) {
	if !a.IsValid() || !b.IsValid() {
		return 0, fmt.Errorf("invalid value")
	}
	if ta, ok := a.Interface().(time.Time); ok {
		tb, ok := b.Interface().(time.Time)
		if !ok {
			return 0, fmt.Errorf("cannot compare time with %s", b.Type())
		}
		return ta.Compare(tb), nil
	}
	switch a.Kind() {
	case reflect.String:
		if b.Kind() != reflect.String {
			return 0, fmt.Errorf("cannot compare string with %s", b.Type())
		}
		return compareOrdered(a.String(), b.String()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if !b.CanInt() {
			return 0, fmt.Errorf("cannot compare int with %s", b.Type())
		}
		return compareOrdered(a.Int(), b.Int()), nil
	case reflect.Bool:
		if b.Kind() != reflect.Bool {
			return 0, fmt.Errorf("cannot compare bool with %s", b.Type())
		}
		if a.Bool() == b.Bool() {
			return 0, nil
		}
		if !a.Bool() {
			return -1, nil
		}
		return 1, nil
	default:
		return 0, fmt.Errorf("unsupported kind %s", a.Kind())
	}
}

func compareOrdered[V int64 | string](a, b V) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
