package promo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTextCollapsesWhitespace(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Hasta 40% dcto en libros", NormalizeText("  Hasta   40% dcto \n en\tlibros  "))
}

func TestNormalizeTextRepairsEncoding(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Â¡EnvÃ­o gratis!":        "¡Envío gratis!",
		"PromociÃ³n de la maÃ±ana": "Promoción de la mañana",
		"&iexcl;Solo hoy!":        "¡Solo hoy!",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeText(in), "input %q", in)
	}
}

func TestNormalizeTextStripsBoilerplate(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Hasta 70% dcto Ver Ofertas":   "Hasta 70% dcto",
		"Hasta 70% dcto ver ofertas":   "Hasta 70% dcto",
		"Big sale this week See More":  "Big sale this week",
		"Winter deals View Offers now": "Winter deals now",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeText(in), "input %q", in)
	}
}

func TestNormalizeTextEmptyInput(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", NormalizeText(""))
	assert.Equal(t, "", NormalizeText("   \n\t "))
}

func TestNormalizeURLStripsQueryAndFragment(t *testing.T) {
	t.Parallel()

	got := NormalizeURL("https://cdn.example.com/banners/promo.jpg?v=123&cb=456#top", "")
	assert.Equal(t, "https://cdn.example.com/banners/promo.jpg", got)
}

func TestNormalizeURLIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"https://cdn.example.com/banners/promo.jpg?v=123",
		"https://www.buscalibre.cl/libros/oferta?utm_source=home",
		"/libros/oferta?x=1",
		"https://cdn.example.com/plain.png",
	}
	for _, in := range inputs {
		once := NormalizeURL(in, "")
		assert.Equal(t, once, NormalizeURL(once, ""), "input %q", in)
	}
}

func TestNormalizeURLFallbacks(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://www.buscalibre.cl", NormalizeURL("", "https://www.buscalibre.cl"))
	assert.Equal(t, "", NormalizeURL("   ", ""))
}

func TestNormalizeURLUnparseableInput(t *testing.T) {
	t.Parallel()

	// Control characters make url.Parse fail; the prefix before '?' wins.
	got := NormalizeURL("https://bad\x7f.example.com/p?q=1", "root")
	assert.Equal(t, "https://bad\x7f.example.com/p", got)
}

func TestNormalizeBuildsPromotion(t *testing.T) {
	t.Parallel()

	obs := RawObservation{
		Text:     "  Â¡Hasta  50%! ",
		ImageURL: "https://cdn.example.com/b.jpg?cb=9",
		LinkURL:  "",
	}
	p := Normalize(obs, "https://www.buscalibre.cl")
	assert.Equal(t, "¡Hasta 50%!", p.Text)
	assert.Equal(t, "https://cdn.example.com/b.jpg", p.ImageKey)
	assert.Equal(t, "https://www.buscalibre.cl", p.LinkKey)
}
