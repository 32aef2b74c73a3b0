package workflow

import (
	"hash/fnv"
	"sync"
)

// defaultLockShards — число шардов мьютексов. Заявки с разными ID почти никогда
// не делят шард, поэтому операции над разными заявками не блокируют друг друга.
const defaultLockShards = 128

// Locker сериализует запись в пределах одной заявки (один писатель на агрегат).
// Между процессами корректность держит compare-and-set по version в хранилище.
type Locker struct {
	shards []sync.Mutex
}

func NewLocker(shards int) *Locker {
	if shards <= 0 {
		shards = defaultLockShards
	}
	return &Locker{shards: make([]sync.Mutex, shards)}
}

// LockDefinition сериализует создание заявок по процедуре и правку ее записи в каталоге.
func (l *Locker) LockDefinition(definitionID string) (unlock func()) {
	return l.Lock("definition:" + definitionID)
}

// Lock захватывает шард заявки и возвращает функцию освобождения.
func (l *Locker) Lock(instanceID string) (unlock func()) {
	m := &l.shards[l.shard(instanceID)]
	m.Lock()
	return m.Unlock
}

func (l *Locker) shard(id string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return int(h.Sum32() % uint32(len(l.shards)))
}
