package orderedmap

import (
	list "github.com/bahlo/generic-list-go"
)

type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

// OrderedMap remembers the order keys were inserted in.
type OrderedMap[K comparable, V any] struct {
	kv map[K]*list.Element[Entry[K, V]]
	ll *list.List[Entry[K, V]]
}

func New[K comparable, V any]() *OrderedMap[K, V] {
	return &OrderedMap[K, V]{
		kv: make(map[K]*list.Element[Entry[K, V]]),
		ll: list.New[Entry[K, V]](),
	}
}

func (om *OrderedMap[K, V]) Len() int                          { return len(om.kv) }
func (om *OrderedMap[K, V]) Front() *list.Element[Entry[K, V]] { return om.ll.Front() }

func (om *OrderedMap[K, V]) Get(key K) (val V, ok bool) {
	e, ok := om.kv[key]
	if ok {
		val = e.Value.Value
	}
	return
}

// Set stores value under key and reports whether the key was present.
// Existing keys keep their place; new ones go to the back.
func (om *OrderedMap[K, V]) Set(key K, value V) bool {
	if e, ok := om.kv[key]; ok {
		e.Value.Value = value
		return true
	}
	om.kv[key] = om.ll.PushBack(Entry[K, V]{Key: key, Value: value})
	return false
}

func (om *OrderedMap[K, V]) Remove(key K) bool {
	e, ok := om.kv[key]
	if ok {
		om.ll.Remove(e)
		delete(om.kv, key)
	}
	return ok
}

func (om *OrderedMap[K, V]) Keys() []K {
	ret := make([]K, 0, om.Len())
	for e := om.Front(); e != nil; e = e.Next() {
		ret = append(ret, e.Value.Key)
	}
	return ret
}

func (om *OrderedMap[K, V]) Values() []V {
	ret := make([]V, 0, om.Len())
	for e := om.Front(); e != nil; e = e.Next() {
		ret = append(ret, e.Value.Value)
	}
	return ret
}
