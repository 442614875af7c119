package ast

import "strconv"

// ----------------------------------------------------------------------------
// Marked and Versioned Names
// ----------------------------------------------------------------------------

// Marker is the reserved suffix that marks a variable as sequential.
const Marker = "@"

// IsMarked reports whether name carries the sequential marker, e.g. "Req@".
// Explicitly versioned names ("Req@3") are not marked names.
func IsMarked(name string) bool {
	return len(name) > 1 && name[len(name)-1] == '@'
}

// BaseName strips the sequential marker from a marked name.
func BaseName(marked string) string {
	return marked[:len(marked)-1]
}

// VersionedName forms the concrete name for a base name and counter,
// e.g. ("Req", 2) -> "Req@2".
func VersionedName(base string, counter int) string {
	return base + Marker + strconv.Itoa(counter)
}

// SplitVersioned decomposes an explicitly versioned name ("Req@3") into its
// base name and counter. ok is false for any other name shape, including
// plain marked names and ordinary variables.
func SplitVersioned(name string) (base string, counter int, ok bool) {
	for i := len(name) - 1; i > 0; i-- {
		if name[i] != '@' {
			continue
		}
		if i == len(name)-1 {
			return "", 0, false // marked, not versioned
		}
		n, err := strconv.Atoi(name[i+1:])
		if err != nil || n < 0 {
			return "", 0, false
		}
		return name[:i], n, true
	}
	return "", 0, false
}
