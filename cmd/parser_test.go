package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFlagSet() *CommandFlagSet {
	return NewFlagSet(
		&CommandFlag{Name: "long", Short: "l", Type: "bool"},
		&CommandFlag{Name: "recursive", Short: "r", Type: "bool"},
		&CommandFlag{Name: "count", Short: "n", Type: "int", Default: int64(10)},
		&CommandFlag{Name: "name", Type: "string"},
	)
}

func TestParser_Parse(t *testing.T) {
	tests := map[string]struct {
		raw       []string
		wantArgs  []string
		wantFlags map[string]any
	}{
		"positional only": {
			raw:       []string{"a", "b"},
			wantArgs:  []string{"a", "b"},
			wantFlags: map[string]any{"count": int64(10)},
		},
		"combined short bools": {
			raw:       []string{"-lr", "dir"},
			wantArgs:  []string{"dir"},
			wantFlags: map[string]any{"long": true, "recursive": true, "count": int64(10)},
		},
		"short value attached": {
			raw:       []string{"-n5"},
			wantFlags: map[string]any{"count": int64(5)},
		},
		"short value separate": {
			raw:       []string{"-n", "7", "x"},
			wantArgs:  []string{"x"},
			wantFlags: map[string]any{"count": int64(7)},
		},
		"long with equals": {
			raw:       []string{"--name=foo", "--count=3"},
			wantFlags: map[string]any{"name": "foo", "count": int64(3)},
		},
		"long with separate value": {
			raw:       []string{"--name", "bar"},
			wantFlags: map[string]any{"name": "bar", "count": int64(10)},
		},
		"double dash ends flags": {
			raw:       []string{"-l", "--", "-r", "--name"},
			wantArgs:  []string{"-r", "--name"},
			wantFlags: map[string]any{"long": true, "count": int64(10)},
		},
		"single dash is positional": {
			raw:       []string{"-"},
			wantArgs:  []string{"-"},
			wantFlags: map[string]any{"count": int64(10)},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			args, err := NewParser(testFlagSet()).Parse(tt.raw)
			require.NoError(t, err)

			assert.Equal(t, tt.wantArgs, args.Args)
			assert.Equal(t, tt.wantFlags, args.Flags)
			assert.Equal(t, tt.raw, args.Raw)
		})
	}
}

func TestParser_Errors(t *testing.T) {
	tests := map[string][]string{
		"unknown short":     {"-z"},
		"unknown long":      {"--zzz"},
		"missing value":     {"--name"},
		"missing short val": {"-n"},
		"invalid integer":   {"--count=ten"},
	}

	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewParser(testFlagSet()).Parse(raw)
			assert.Error(t, err)
		})
	}
}

func TestParser_Required(t *testing.T) {
	set := NewFlagSet(&CommandFlag{Name: "target", Short: "t", Type: "string", Required: true})

	_, err := NewParser(set).Parse(nil)
	assert.ErrorContains(t, err, "required flag: -t / --target")

	args, err := NewParser(set).Parse([]string{"-t", "x"})
	require.NoError(t, err)
	assert.Equal(t, "x", args.String("target"))
}

func TestParser_NilFlagSet(t *testing.T) {
	args, err := NewParser(nil).Parse([]string{"a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, args.Args)
	assert.False(t, args.Bool("anything"))
	assert.Equal(t, "def", args.Arg(1, "def"))
}
