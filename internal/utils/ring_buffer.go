package utils

import "sync"

// RingBuffer реализует потокобезопасный кольцевой буфер фиксированной ёмкости.
// Когда буфер заполнен, Push вытесняет самый старый элемент.
// Элементы читаются в порядке добавления: от старых к новым.
//
//	rb := NewRingBuffer[int](2)
//	rb.Push(1)
//	rb.Push(2)
//	rb.Push(3)               // 1 вытеснен
//	fmt.Println(rb.ToSlice()) // [2 3]
type RingBuffer[T any] struct {
	data  []T
	count int // число занятых ячеек
	head  int // индекс самого старого элемента
	mu    sync.RWMutex
}

// NewRingBuffer создаёт буфер ёмкостью size. При size <= 0 паникует.
func NewRingBuffer[T any](size int) *RingBuffer[T] {
	if size <= 0 {
		panic("ring buffer size must be positive")
	}
	return &RingBuffer[T]{data: make([]T, size)}
}

// Push добавляет элемент, при необходимости вытесняя самый старый.
func (rb *RingBuffer[T]) Push(item T) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.data[(rb.head+rb.count)%len(rb.data)] = item
	if rb.count < len(rb.data) {
		rb.count++
		return
	}
	rb.head = (rb.head + 1) % len(rb.data)
}

// Len возвращает число элементов в буфере, от 0 до Cap().
func (rb *RingBuffer[T]) Len() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.count
}

// Cap возвращает ёмкость буфера.
func (rb *RingBuffer[T]) Cap() int {
	return len(rb.data)
}

// At возвращает i-й элемент; 0 соответствует самому старому, Len()-1 самому новому.
// Паникует, если i вне [0, Len()).
func (rb *RingBuffer[T]) At(i int) T {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	if i < 0 || i >= rb.count {
		panic("index out of range")
	}
	return rb.at(i)
}

// Last возвращает самый новый элемент; false, если буфер пуст.
func (rb *RingBuffer[T]) Last() (T, bool) {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	if rb.count == 0 {
		var zero T
		return zero, false
	}
	return rb.at(rb.count - 1), true
}

// ToSlice возвращает копию содержимого от старых элементов к новым.
// Для пустого буфера возвращается пустой (не nil) слайс.
func (rb *RingBuffer[T]) ToSlice() []T {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	result := make([]T, rb.count)
	for i := range result {
		result[i] = rb.at(i)
	}
	return result
}

// at читает элемент без блокировки; вызывающий держит mu.
func (rb *RingBuffer[T]) at(i int) T {
	return rb.data[(rb.head+i)%len(rb.data)]
}
