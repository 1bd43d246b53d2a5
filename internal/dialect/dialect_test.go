package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuoteIdentifier(t *testing.T) {
	testCases := []struct {
		name    string
		config  Config
		in      string
		want    string
	}{
		{name: "sqlite plain", config: SQLite(), in: "items", want: `"items"`},
		{name: "sqlite preserves case", config: SQLite(), in: "Items", want: `"Items"`},
		{name: "postgres folds lower", config: Postgres(), in: "Items", want: `"items"`},
		{name: "mysql backticks", config: MySQL(), in: "items", want: "`items`"},
		{name: "embedded quote doubled", config: SQLite(), in: `we"ird`, want: `"we""ird"`},
		{name: "embedded backtick doubled", config: MySQL(), in: "we`ird", want: "`we``ird`"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.config.QuoteIdentifier(tc.in))
		})
	}
}

func TestQuoteIdentifier_NFCNormalization(t *testing.T) {
	cfg := SQLite()
	// "é" as a precomposed rune vs "e" + combining acute accent.
	precomposed := "café"
	decomposed := "café"
	assert.Equal(t, cfg.QuoteIdentifier(precomposed), cfg.QuoteIdentifier(decomposed))
}

func TestPresets(t *testing.T) {
	pg := Postgres()
	assert.True(t, pg.LikeMatchesCase)
	assert.True(t, pg.SupportsILike)
	assert.Equal(t, "~", pg.RegexpOp)
	assert.Equal(t, "~*", pg.RegexpIOp)

	lite := SQLite()
	assert.False(t, lite.LikeMatchesCase) // SQLite LIKE is case-insensitive for ASCII
	assert.False(t, lite.SupportsILike)
	assert.Equal(t, "REGEXP", lite.RegexpOp)
	assert.Empty(t, lite.RegexpIOp)

	my := MySQL()
	assert.Equal(t, "`", my.QuoteOpen)
	assert.Equal(t, FoldNone, my.Fold)
}

func TestFoldingString(t *testing.T) {
	assert.Equal(t, "none", FoldNone.String())
	assert.Equal(t, "lower", FoldLower.String())
	assert.Equal(t, "upper", FoldUpper.String())
}
