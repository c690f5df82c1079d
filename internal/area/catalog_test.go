package area

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogResolvesKnownSlugs(t *testing.T) {
	c := Default()

	a, ok := c.Resolve("calidad-educativa")
	require.True(t, ok)
	assert.Equal(t, "CE", a.Code)
	assert.NotEmpty(t, a.ID)
}

func TestResolveIsStable(t *testing.T) {
	c := Default()
	for _, a := range c.All() {
		first, ok := c.Resolve(a.Slug)
		require.True(t, ok, a.Slug)
		for i := 0; i < 3; i++ {
			again, ok := c.Resolve(a.Slug)
			require.True(t, ok)
			assert.Equal(t, first.ID, again.ID)
		}
	}
}

func TestResolveNormalizesCaseAndSpace(t *testing.T) {
	c := Default()
	a, ok := c.Resolve("  Talento-Humano ")
	require.True(t, ok)
	assert.Equal(t, "talento-humano", a.Slug)
}

func TestResolveUnknownSlug(t *testing.T) {
	_, ok := Default().Resolve("unknown-slug")
	assert.False(t, ok)
}

func TestLookupAcceptsID(t *testing.T) {
	c := Default()
	a, _ := c.Resolve("planeacion")

	byID, ok := c.Lookup(a.ID)
	require.True(t, ok)
	assert.Equal(t, "planeacion", byID.Slug)

	bySlug, ok := c.Lookup("planeacion")
	require.True(t, ok)
	assert.Equal(t, a.ID, bySlug.ID)
}

func TestParseRejectsDuplicates(t *testing.T) {
	_, err := Parse([]byte(`
areas:
  - {id: a1, slug: uno, code: U, name: Uno}
  - {id: a2, slug: uno, code: D, name: Dos}
`))
	assert.Error(t, err)

	_, err = Parse([]byte(`
areas:
  - {id: a1, slug: uno, code: U, name: Uno}
  - {id: a1, slug: dos, code: D, name: Dos}
`))
	assert.Error(t, err)
}

func TestParseRequiresSlugAndID(t *testing.T) {
	_, err := Parse([]byte(`
areas:
  - {id: "", slug: uno, code: U, name: Uno}
`))
	assert.Error(t, err)
}

func TestAllReturnsCopy(t *testing.T) {
	c := Default()
	all := c.All()
	require.NotEmpty(t, all)
	all[0].Slug = "mutated"
	_, ok := c.Resolve("mutated")
	assert.False(t, ok)
}
