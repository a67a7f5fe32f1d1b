package util

// OrderedMap implements a simple map data structure that maintains its insertion order.
type OrderedMap[K comparable, V any] struct {
	data map[K]V
	keys []K
}

func NewOrderedMap[K comparable, V any]() *OrderedMap[K, V] {
	return &OrderedMap[K, V]{
		data: make(map[K]V),
	}
}

func (self *OrderedMap[K, V]) Len() int {
	return len(self.keys)
}

// Set inserts or replaces a value. Replacing keeps the original position.
func (self *OrderedMap[K, V]) Set(key K, val V) {
	if _, ok := self.data[key]; !ok {
		self.keys = append(self.keys, key)
	}
	self.data[key] = val
}

func (self *OrderedMap[K, V]) Get(key K) V {
	return self.data[key]
}

func (self *OrderedMap[K, V]) Has(key K) bool {
	_, ok := self.data[key]
	return ok
}

func (self *OrderedMap[K, V]) GetOrInit(key K, init func() V) V {
	if v, ok := self.data[key]; ok {
		return v
	}
	v := init()
	self.Set(key, v)
	return v
}

func (self *OrderedMap[K, V]) Delete(key K) V {
	v, ok := self.data[key]
	if !ok {
		return v
	}
	delete(self.data, key)
	self.keys = Remove(self.keys, key)
	return v
}

func (self *OrderedMap[K, V]) ForEach(f func(i int, key K, val V)) {
	for i, key := range self.keys {
		f(i, key, self.data[key])
	}
}

func (self *OrderedMap[K, V]) Keys() []K {
	out := make([]K, len(self.keys))
	copy(out, self.keys)
	return out
}

func (self *OrderedMap[K, V]) Values() []V {
	out := make([]V, self.Len())
	self.ForEach(func(i int, key K, val V) {
		out[i] = val
	})
	return out
}

type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

func (self *OrderedMap[K, V]) Entries() []Entry[K, V] {
	out := make([]Entry[K, V], self.Len())
	self.ForEach(func(i int, key K, val V) {
		out[i] = Entry[K, V]{Key: key, Value: val}
	})
	return out
}
