package core

import (
	"unsafe"

	"github.com/pbnjay/memory"
)

const defaultArenaPageBytes = 64 << 10

// Arena is a single-owner bump allocator over a list of pages.
//
// Objects are never freed individually; every page is dropped at once by
// Release. Pointers returned by Alloc stay valid until then because pages
// are never moved or resized.
type Arena[T any] struct {
	pageLen int
	pages   [][]T
	cur     []T
	next    int
	objects int
}

// NewArena creates an arena whose pages hold pageBytes worth of T values
// (at least one value per page).
func NewArena[T any](pageBytes int) *Arena[T] {
	if pageBytes <= 0 {
		pageBytes = defaultArenaPageBytes
	}
	size := int(unsafe.Sizeof(*new(T)))
	pageLen := 1
	if size > 0 && pageBytes/size > 1 {
		pageLen = pageBytes / size
	} else if size == 0 {
		pageLen = pageBytes
	}
	return &Arena[T]{pageLen: pageLen}
}

// Alloc returns a pointer to a zeroed T.
func (a *Arena[T]) Alloc() *T {
	if a.next >= len(a.cur) {
		a.grow(1)
	}
	p := &a.cur[a.next]
	a.next++
	a.objects++
	return p
}

// AllocArray returns n contiguous zeroed values. A request larger than the
// page length gets a dedicated page.
func (a *Arena[T]) AllocArray(n int) []T {
	if n <= 0 {
		fatalf("arena: invalid array length %d", n)
	}
	if len(a.cur)-a.next < n {
		a.grow(n)
	}
	s := a.cur[a.next : a.next+n : a.next+n]
	a.next += n
	a.objects += n
	return s
}

func (a *Arena[T]) grow(n int) {
	size := uint64(unsafe.Sizeof(*new(T)))
	if total := memory.TotalMemory(); total > 0 && size*uint64(n) > total {
		fatalf("arena: request of %d objects (%d bytes each) exceeds physical memory", n, size)
	}
	length := a.pageLen
	if n > length {
		length = n
	}
	page := make([]T, length)
	a.pages = append(a.pages, page)
	a.cur = page
	a.next = 0
}

// Pages returns the number of pages the arena holds.
func (a *Arena[T]) Pages() int { return len(a.pages) }

// Len returns the number of objects handed out since the last Release.
func (a *Arena[T]) Len() int { return a.objects }

// Release drops every page. Pointers obtained earlier must not be used
// afterwards.
func (a *Arena[T]) Release() {
	a.pages = nil
	a.cur = nil
	a.next = 0
	a.objects = 0
}
