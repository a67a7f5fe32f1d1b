package inventory

// IDAllocator hands out the ids used for dependency bookkeeping and
// archive entries. One allocator is shared by everything minting ids
// during a single run.
type IDAllocator struct {
	next int
}

// NewIDAllocator starts counting at seed, which should be one past the
// highest id already present in the archive being extended
func NewIDAllocator(seed int) *IDAllocator {
	if seed < 1 {
		seed = 1
	}
	return &IDAllocator{next: seed}
}

func (self *IDAllocator) Next() int {
	id := self.next
	self.next++
	return id
}

// Peek returns the id the next call to Next will return
func (self *IDAllocator) Peek() int {
	return self.next
}
