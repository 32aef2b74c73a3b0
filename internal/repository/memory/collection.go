// Package memory — хранилища в памяти процесса. Используются в режиме storage=memory
// (локальный запуск, демо) и в тестах сервисов. Семантика совпадает с postgres:
// копии на входе и выходе, compare-and-set по версии, ErrNotFound для отсутствующих записей.
package memory

import (
	"sort"
	"sync"
)

// Collection — потокобезопасная коллекция сущностей по ключу.
// clone вызывается при каждом чтении и записи, поэтому вызывающий код
// никогда не держит ссылку на сохраненный экземпляр.
type Collection[T any] struct {
	mu    sync.RWMutex
	items map[string]T
	clone func(T) T
}

func NewCollection[T any](clone func(T) T) *Collection[T] {
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return &Collection[T]{items: make(map[string]T), clone: clone}
}

func (c *Collection[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[key]
	if !ok {
		var zero T
		return zero, false
	}
	return c.clone(v), true
}

// Insert добавляет запись, если ключ свободен.
func (c *Collection[T]) Insert(key string, v T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.items[key]; exists {
		return false
	}
	c.items[key] = c.clone(v)
	return true
}

func (c *Collection[T]) Put(key string, v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = c.clone(v)
}

// Swap атомарно заменяет запись результатом fn. Если ключа нет, fn получает found=false.
// Ошибка fn отменяет запись.
func (c *Collection[T]) Swap(key string, fn func(cur T, found bool) (T, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur, found := c.items[key]
	next, err := fn(cur, found)
	if err != nil {
		return err
	}
	c.items[key] = c.clone(next)
	return nil
}

// Find возвращает первую запись, удовлетворяющую условию.
func (c *Collection[T]) Find(match func(T) bool) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, v := range c.items {
		if match(v) {
			return c.clone(v), true
		}
	}
	var zero T
	return zero, false
}

// Select возвращает копии записей, прошедших фильтр, упорядоченные less.
func (c *Collection[T]) Select(match func(T) bool, less func(a, b T) bool) []T {
	c.mu.RLock()
	out := make([]T, 0, len(c.items))
	for _, v := range c.items {
		if match == nil || match(v) {
			out = append(out, c.clone(v))
		}
	}
	c.mu.RUnlock()

	if less != nil {
		sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	}
	return out
}

func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
