//go:build sonivox && hostwrapper

package sonivox

/*
#include <stdio.h>
#include <stdlib.h>
#include <unistd.h>
#include <eas.h>

static EAS_FILE_LOCATOR sonivox_open_locator(int fd) {
	int dup_fd = dup(fd);
	if (dup_fd < 0) return NULL;
	FILE *fp = fdopen(dup_fd, "rb");
	if (fp == NULL) {
		close(dup_fd);
		return NULL;
	}
	EAS_FILE_LOCATOR loc = calloc(1, sizeof(EAS_FILE));
	if (loc == NULL) {
		fclose(fp);
		return NULL;
	}
	loc->handle = fp;
	return loc;
}

static void sonivox_close_locator(EAS_FILE_LOCATOR loc) {
	if (loc->handle != NULL) fclose((FILE *)loc->handle);
	free(loc);
}
*/
import "C"

import (
	"errors"
	"io"

	"github.com/james-see/sonivoxrender/pkg/eas"
)

// locator hands the engine its own stdio stream on a duplicate of the
// file's descriptor.
type locator struct {
	c C.EAS_FILE_LOCATOR
}

type fder interface {
	Fd() uintptr
}

func newLocator(f *eas.File) (*locator, error) {
	if f == nil || f.Handle == nil {
		return nil, errors.New("sonivox: nil file")
	}
	osf, ok := f.Handle.(fder)
	if !ok {
		return nil, errors.New("sonivox: host file access needs an OS file")
	}
	if _, err := f.Handle.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	loc := C.sonivox_open_locator(C.int(osf.Fd()))
	if loc == nil {
		return nil, errors.New("sonivox: failed to open file stream")
	}
	return &locator{c: loc}, nil
}

func (l *locator) release() {
	if l == nil || l.c == nil {
		return
	}
	C.sonivox_close_locator(l.c)
	l.c = nil
}
