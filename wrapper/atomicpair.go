package wrapper

// atomicPairs is the closed table of (acquire, release) / (allocate, free)
// API pairs for which two calls on one path are legitimate (spec §4.3
// step 6, GLOSSARY "Atomic pair"). Kept flat per spec.md §9's open
// question: the Python original keys this under an empty "family" string
// that is never populated with a second family, so this is modeled as a
// flat set rather than inventing a family discriminator.
var atomicPairs = []([2]string){
	{"open", "close"},
	{"fopen", "fclose"},
	{"socket", "close"},
	{"malloc", "free"},
	{"calloc", "free"},
}

// unorderedAtomicPairs holds pairs whose two names are interchangeable
// (either call may appear first), mirroring the Python original's
// frozenset entries.
var unorderedAtomicPairs = []([2]string){
	{"pthread_mutex_lock", "pthread_mutex_unlock"},
	{"pthread_rwlock_rdlock", "pthread_rwlock_unlock"},
}

// IsAtomicPair reports whether apis (expected length 2) matches a
// recognized atomic pair, ordered or unordered.
func IsAtomicPair(apis []string) bool {
	if len(apis) != 2 {
		return false
	}
	a, b := apis[0], apis[1]
	for _, p := range atomicPairs {
		if (a == p[0] && b == p[1]) || (a == p[1] && b == p[0]) {
			return true
		}
	}
	for _, p := range unorderedAtomicPairs {
		if (a == p[0] && b == p[1]) || (a == p[1] && b == p[0]) {
			return true
		}
	}
	return false
}
