// Package keyhash provides hash functions that distribute cache keys across storage buckets.
package keyhash

import (
	"encoding/binary"
	"fmt"
	"hash"
	"hash/fnv"
	"math"
	"sync"

	"github.com/goccy/go-reflect"
)

const (
	// intSize is the size of an int in bits.
	intSize = 32 << (^uint(0) >> 63)
)

var (
	defaultKeyHashMapMutex = sync.RWMutex{}

	// defaultKeyHashMap caches the hash functions by type name.
	defaultKeyHashMap = map[string]func(any) int{}
)

// GetOrCreateKeyHash returns a hash function for the given key type.
// Named types are hashed by their underlying kind, so `type UserID int64` hashes like int64.
// It panics for key kinds that have no stable hash (pointers, channels, structs, ...).
func GetOrCreateKeyHash[K comparable]() func(any) int {
	var zero K
	return getOrCreateKeyHashAny(zero)
}

func getOrCreateKeyHashAny(t any) func(any) int {
	name := reflect.TypeOf(t).String()

	defaultKeyHashMapMutex.RLock()
	if f, ok := defaultKeyHashMap[name]; ok {
		defaultKeyHashMapMutex.RUnlock()
		return f
	}

	defaultKeyHashMapMutex.RUnlock()
	defaultKeyHashMapMutex.Lock()
	defer defaultKeyHashMapMutex.Unlock()
	if f, ok := defaultKeyHashMap[name]; ok {
		return f
	}

	f := createKeyHashAny(t)
	defaultKeyHashMap[name] = f
	return f
}

// createKeyHashAny creates a FNV-1a based hash function for the kind of the given value.
// The integer is encoded in big endian with the width of its kind before hashing.
func createKeyHashAny(t any) func(any) int {
	hash := hash64
	if intSize == 32 {
		hash = hash32
	}

	typ := reflect.TypeOf(t)
	switch typ.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		width := kindWidth(typ.Kind())
		if typ.Kind() == reflect.Int {
			hash = pickHash(width)
		}
		return func(v any) int {
			return hash(encodeUint(uint64(reflect.ValueOf(v).Int()), width))
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		width := kindWidth(typ.Kind())
		if typ.Kind() == reflect.Uint {
			hash = pickHash(width)
		}
		return func(v any) int {
			return hash(encodeUint(reflect.ValueOf(v).Uint(), width))
		}
	case reflect.Float32:
		return func(v any) int {
			return hash(encodeUint(uint64(math.Float32bits(float32(reflect.ValueOf(v).Float()))), 4))
		}
	case reflect.Float64:
		return func(v any) int {
			return hash(encodeUint(math.Float64bits(reflect.ValueOf(v).Float()), 8))
		}
	case reflect.Bool:
		return func(v any) int {
			if reflect.ValueOf(v).Bool() {
				return hash([]byte{1})
			}
			return hash([]byte{0})
		}
	case reflect.String:
		return func(v any) int {
			return hash([]byte(reflect.ValueOf(v).String()))
		}
	case reflect.Uintptr:
		panic("uintptr cannot be hash key")
	default:
		panic(fmt.Sprintf("unknown type: %T", t))
	}
}

// kindWidth returns the width in bytes of the integer kind.
func kindWidth(kind reflect.Kind) int {
	switch kind {
	case reflect.Int8, reflect.Uint8:
		return 1
	case reflect.Int16, reflect.Uint16:
		return 2
	case reflect.Int32, reflect.Uint32:
		return 4
	case reflect.Int64, reflect.Uint64:
		return 8
	default:
		return intSize / 8
	}
}

// pickHash returns the hash function that matches the platform int width.
func pickHash(width int) func([]byte) int {
	if width == 4 {
		return hash32
	}
	return hash64
}

func encodeUint(u uint64, width int) []byte {
	var b [8]byte
	switch width {
	case 1:
		b[0] = uint8(u)
	case 2:
		binary.BigEndian.PutUint16(b[:], uint16(u))
	case 4:
		binary.BigEndian.PutUint32(b[:], uint32(u))
	default:
		binary.BigEndian.PutUint64(b[:], u)
	}
	return b[:width]
}

var hash32Pool = &resettablePool[hash.Hash32]{
	pool: sync.Pool{
		New: func() any {
			return fnv.New32a()
		},
	},
}

var hash64Pool = &resettablePool[hash.Hash64]{
	pool: sync.Pool{
		New: func() any {
			return fnv.New64a()
		},
	},
}

// resettablePool is a generic pool for hash objects that are reset before being reused.
type resettablePool[H interface{ Reset() }] struct {
	pool sync.Pool
}

func (p *resettablePool[H]) Put(h H) {
	h.Reset()
	p.pool.Put(h)
}

func (p *resettablePool[H]) Get() H {
	return p.pool.Get().(H)
}

func hash32(b []byte) int {
	h := hash32Pool.Get()
	defer hash32Pool.Put(h)
	_, _ = h.Write(b)
	return int(h.Sum32())
}

func hash64(b []byte) int {
	h := hash64Pool.Get()
	defer hash64Pool.Put(h)
	_, _ = h.Write(b)
	return int(h.Sum64())
}
