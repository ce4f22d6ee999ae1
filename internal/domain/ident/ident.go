package ident

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EnsureID assigns a fresh v4 UUID when id is still the zero value.
func EnsureID(id *uuid.UUID) {
	if id != nil && *id == uuid.Nil {
		*id = uuid.New()
	}
}

var (
	sortMu   sync.Mutex
	lastSort int64
)

// NextSortKey returns a strictly increasing key derived from the wall clock. It fixes the
// position of an indexed entity at insert time; ties across processes are broken by id.
func NextSortKey() int64 {
	sortMu.Lock()
	defer sortMu.Unlock()
	k := time.Now().UnixNano()
	if k <= lastSort {
		k = lastSort + 1
	}
	lastSort = k
	return k
}
