// Package dialect describes target-database SQL syntax variants.
//
// A Config is pure read-only data: quoting characters, identifier case
// folding, LIKE case sensitivity, and regex-match operators. It is set once
// when the executor is configured and shared freely across goroutines.
package dialect

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Folding is the identifier case-folding policy applied before quoting.
type Folding int

const (
	// FoldNone leaves identifiers as written.
	FoldNone Folding = iota
	// FoldLower lowercases identifiers (PostgreSQL convention).
	FoldLower
	// FoldUpper uppercases identifiers (SQL standard / Oracle convention).
	FoldUpper
)

// String returns the string representation of a Folding policy.
func (f Folding) String() string {
	switch f {
	case FoldNone:
		return "none"
	case FoldLower:
		return "lower"
	case FoldUpper:
		return "upper"
	default:
		return "unknown"
	}
}

// Config holds the static description of a SQL dialect.
type Config struct {
	// Name identifies the dialect ("sqlite", "postgres", "mysql").
	Name string

	// QuoteOpen and QuoteClose delimit quoted identifiers.
	QuoteOpen  string
	QuoteClose string

	// Fold is the case-folding policy applied to identifiers.
	Fold Folding

	// LikeMatchesCase is true when plain LIKE is case-sensitive by default.
	LikeMatchesCase bool

	// SupportsILike is true when the dialect has a native ILIKE operator.
	// Without it the compiler emulates ILIKE by lowering both sides.
	SupportsILike bool

	// RegexpOp is the case-sensitive regex-match operator, empty when the
	// dialect has none.
	RegexpOp string

	// RegexpIOp is the case-insensitive regex-match operator. When empty
	// the compiler falls back to RegexpOp with an inline (?i) flag
	// prepended to the bound pattern.
	RegexpIOp string
}

// SQLite returns the dialect descriptor for SQLite.
// Note SQLite's LIKE is case-insensitive for ASCII by default.
func SQLite() Config {
	return Config{
		Name:       "sqlite",
		QuoteOpen:  `"`,
		QuoteClose: `"`,
		Fold:       FoldNone,
		RegexpOp:   "REGEXP",
	}
}

// Postgres returns the dialect descriptor for PostgreSQL.
func Postgres() Config {
	return Config{
		Name:            "postgres",
		QuoteOpen:       `"`,
		QuoteClose:      `"`,
		Fold:            FoldLower,
		LikeMatchesCase: true,
		SupportsILike:   true,
		RegexpOp:        "~",
		RegexpIOp:       "~*",
	}
}

// MySQL returns the dialect descriptor for MySQL.
func MySQL() Config {
	return Config{
		Name:       "mysql",
		QuoteOpen:  "`",
		QuoteClose: "`",
		Fold:       FoldNone,
		RegexpOp:   "REGEXP",
	}
}

// QuoteIdentifier renders an identifier per the dialect's rules: NFC
// normalization, case folding, doubling of embedded closing quotes, then
// wrapping in the quote characters.
//
// NFC normalization keeps byte-identical output for identifiers that only
// differ in Unicode composition form.
func (c Config) QuoteIdentifier(name string) string {
	name = norm.NFC.String(name)
	switch c.Fold {
	case FoldLower:
		name = strings.ToLower(name)
	case FoldUpper:
		name = strings.ToUpper(name)
	}
	name = strings.ReplaceAll(name, c.QuoteClose, c.QuoteClose+c.QuoteClose)
	return c.QuoteOpen + name + c.QuoteClose
}
