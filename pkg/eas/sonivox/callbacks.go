//go:build sonivox && !hostwrapper

package sonivox

/*
#include <stdint.h>
#include <eas.h>

EAS_FILE_LOCATOR sonivox_new_locator(uintptr_t handle);
void sonivox_free_locator(EAS_FILE_LOCATOR loc);
*/
import "C"

import (
	"errors"
	"runtime/cgo"
	"unsafe"

	"github.com/james-see/sonivoxrender/pkg/eas"
)

// locator is a C allocated EAS_FILE whose callbacks read through a Go file
// adapter.
type locator struct {
	c C.EAS_FILE_LOCATOR
	h cgo.Handle
}

func newLocator(f *eas.File) (*locator, error) {
	if _, err := f.Size(); err != nil {
		return nil, err
	}
	h := cgo.NewHandle(f)
	c := C.sonivox_new_locator(C.uintptr_t(h))
	if c == nil {
		h.Delete()
		return nil, errors.New("sonivox: out of memory")
	}
	return &locator{c: c, h: h}, nil
}

func (l *locator) release() {
	if l == nil || l.c == nil {
		return
	}
	C.sonivox_free_locator(l.c)
	l.c = nil
	l.h.Delete()
}

//export sonivoxReadAt
func sonivoxReadAt(handle C.uintptr_t, buf unsafe.Pointer, offset, size C.int) C.int {
	if size <= 0 || offset < 0 {
		return 0
	}
	f := cgo.Handle(handle).Value().(*eas.File)
	p := unsafe.Slice((*byte)(buf), int(size))
	n, _ := f.ReadAt(p, int64(offset))
	return C.int(n)
}

//export sonivoxSize
func sonivoxSize(handle C.uintptr_t) C.int {
	f := cgo.Handle(handle).Value().(*eas.File)
	size, err := f.Size()
	if err != nil {
		return -1
	}
	return C.int(size)
}
