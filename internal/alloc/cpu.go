package alloc

import (
	"fmt"
	"unsafe"
)

// CPU is the default allocator. It forwards to the Go runtime allocator and
// over-allocates by Align-1 bytes so the returned block can start on the
// requested boundary.
//
// CPU is a zero-size value; every copy is the same allocator.
type CPU struct{}

// Alloc implements Allocator.
func (CPU) Alloc(layout Layout) (block Block, err error) {
	if err := layout.Validate(); err != nil {
		return nil, &AllocationError{Op: "alloc", Layout: layout, Err: err}
	}

	// makeslice panics when the runtime refuses the length; report it as an error.
	defer func() {
		if r := recover(); r != nil {
			block = nil
			err = &AllocationError{
				Op:     "alloc",
				Layout: layout,
				Err:    fmt.Errorf("%w: runtime refused allocation: %v", ErrInvalidBlock, r),
			}
		}
	}()

	block = alignedBytes(layout.Size, layout.Align)
	if len(block) != layout.Size {
		return nil, &AllocationError{Op: "alloc", Layout: layout, Err: ErrInvalidBlock}
	}
	return block, nil
}

// Dealloc implements Allocator.
// The block is dropped and reclaimed by the garbage collector.
func (CPU) Dealloc(Block, Layout) {}

// alignedBytes allocates size bytes whose first byte is aligned to align.
// The capacity is clipped so appends can never write past the block.
func alignedBytes(size, align int) Block {
	if align <= 1 {
		buf := make([]byte, size)
		return Block(buf[:size:size])
	}

	buf := make([]byte, size+align-1)
	//nolint:gosec // G103: address arithmetic only, the pointer is not dereferenced
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	offset := int(alignUp(addr, uintptr(align)) - addr)
	return Block(buf[offset : offset+size : offset+size])
}
