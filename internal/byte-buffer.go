package internal

import "sync"

var bufPool = sync.Pool{New: func() interface{} {
	return []byte(nil)
}}

// ReserveByteBuffer returns a pooled byte slice of length 0. Its
// capacity carries over from previous users, so line formatting in the
// output writers rarely reallocates.
func ReserveByteBuffer() []byte {
	return bufPool.Get().([]byte)[:0]
}

// ReleaseByteBuffer hands the slice back to the pool. Release the
// final slice after appending, since append may have moved it.
func ReleaseByteBuffer(buf []byte) {
	bufPool.Put(buf)
}
