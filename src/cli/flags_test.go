package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestByteSize(t *testing.T) {
	opts := struct {
		Size ByteSize `short:"b"`
	}{}
	_, extraArgs, err := ParseFlags("test", &opts, []string{"test", "-b=15M"})
	assert.NoError(t, err)
	assert.Equal(t, 0, len(extraArgs))
	assert.EqualValues(t, 15000000, opts.Size)
}

func TestByteSizeDefault(t *testing.T) {
	opts := struct {
		Size ByteSize `short:"b" default:"384K"`
	}{}
	_, extraArgs, err := ParseFlags("test", &opts, []string{"test"})
	assert.NoError(t, err)
	assert.Equal(t, 0, len(extraArgs))
	assert.EqualValues(t, 384000, opts.Size)
}

func TestVersion(t *testing.T) {
	opts := struct {
		V Version `short:"v"`
	}{}
	_, extraArgs, err := ParseFlags("test", &opts, []string{"test", "-v=1.2.3"})
	assert.NoError(t, err)
	assert.Equal(t, 0, len(extraArgs))
	assert.False(t, opts.V.IsGTE)
	assert.Equal(t, "1.2.3", opts.V.VersionString())
}

func TestVersionGTEPrefix(t *testing.T) {
	opts := struct {
		V Version `short:"v"`
	}{}
	_, extraArgs, err := ParseFlags("test", &opts, []string{"test", "-v=>=1.2.3"})
	assert.NoError(t, err)
	assert.Equal(t, 0, len(extraArgs))
	assert.True(t, opts.V.IsGTE)
	assert.Equal(t, ">=1.2.3", opts.V.String())
}

func TestVersionDefault(t *testing.T) {
	opts := struct {
		V Version `short:"v" default:"1.0.0"`
	}{}
	_, extraArgs, err := ParseFlags("test", &opts, []string{"test"})
	assert.NoError(t, err)
	assert.Equal(t, 0, len(extraArgs))
	assert.Equal(t, "1.0.0", opts.V.VersionString())
}
