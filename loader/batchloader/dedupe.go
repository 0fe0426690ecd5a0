package batchloader

// dedupe returns the keys with the first occurrence of every identity, in enqueue order,
// and the slot in the unique keys for every input key.
func dedupe[K any, I comparable](keys []K, identify func(K) I) (unique []K, slots []int) {
	index := make(map[I]int, len(keys))
	unique = make([]K, 0, len(keys))
	slots = make([]int, len(keys))
	for i, key := range keys {
		id := identify(key)
		slot, ok := index[id]
		if !ok {
			slot = len(unique)
			index[id] = slot
			unique = append(unique, key)
		}
		slots[i] = slot
	}
	return unique, slots
}

// chunk splits the keys into consecutive chunks of at most size keys.
// A non-positive size means unbounded.
func chunk[K any](keys []K, size int) [][]K {
	if size <= 0 || len(keys) <= size {
		return [][]K{keys}
	}

	chunks := make([][]K, 0, (len(keys)+size-1)/size)
	for i := 0; i < len(keys); i += size {
		end := min(i+size, len(keys))
		chunks = append(chunks, keys[i:end:end])
	}
	return chunks
}
