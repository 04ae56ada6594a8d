package data

import "strings"

// OpenOptions represents the capabilities requested when opening a file.
// These can be combined using bitwise OR. A backend may reject combinations
// it cannot satisfy.
type OpenOptions uint16

const (
	OpenRead      OpenOptions = 1 << iota // open for reading
	OpenWrite                             // open for writing
	OpenAppend                            // every write goes to the end, implies OpenWrite
	OpenTruncate                          // truncate on open, implies OpenWrite
	OpenCreate                            // create if missing, implies OpenWrite
	OpenCreateNew                         // create, failing if it exists, implies OpenTruncate and OpenWrite
)

// Normalize returns o with every implied flag set.
func (o OpenOptions) Normalize() OpenOptions {
	if o&OpenCreateNew != 0 {
		o |= OpenTruncate
	}
	if o&(OpenAppend|OpenTruncate|OpenCreate|OpenCreateNew) != 0 {
		o |= OpenWrite
	}
	return o
}

// Validate normalizes o and rejects empty or contradicting sets.
func (o OpenOptions) Validate() (OpenOptions, error) {
	o = o.Normalize()
	if o&(OpenRead|OpenWrite) == 0 {
		return o, ErrInvalidOptions
	}
	if o.HasAppend() && o.HasTruncate() {
		return o, ErrInvalidOptions
	}
	return o, nil
}

func (o OpenOptions) CanRead() bool {
	return o&OpenRead != 0
}

func (o OpenOptions) CanWrite() bool {
	return o.Normalize()&OpenWrite != 0
}

func (o OpenOptions) HasAppend() bool {
	return o&OpenAppend != 0
}

func (o OpenOptions) HasTruncate() bool {
	return o.Normalize()&OpenTruncate != 0
}

func (o OpenOptions) HasCreate() bool {
	return o&(OpenCreate|OpenCreateNew) != 0
}

func (o OpenOptions) HasCreateNew() bool {
	return o&OpenCreateNew != 0
}

func (o OpenOptions) String() string {
	names := []struct {
		flag OpenOptions
		name string
	}{
		{OpenRead, "read"},
		{OpenWrite, "write"},
		{OpenAppend, "append"},
		{OpenTruncate, "truncate"},
		{OpenCreate, "create"},
		{OpenCreateNew, "create_new"},
	}

	parts := make([]string, 0, len(names))
	for _, n := range names {
		if o&n.flag != 0 {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}
