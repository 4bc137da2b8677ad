package compose

import (
	"regexp"

	"gnodesk/internal/identity"
	"gnodesk/internal/model"
)

const maxIdentLen = 256

var (
	pathPattern    = regexp.MustCompile(`^[A-Za-z0-9._/-]+$`)
	denomPattern   = regexp.MustCompile(`^[a-z0-9/]+$`)
	idPattern      = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
	poolKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._/:-]+$`)
)

// checker accumulates the first validation failure for one operation.
type checker struct {
	op     Operation
	native string
	err    error
}

func (c *checker) fail(field, value, reason string) {
	if c.err == nil {
		c.err = reject(c.op, field, value, reason)
	}
}

func (c *checker) match(field, value string, re *regexp.Regexp) {
	switch {
	case value == "":
		c.fail(field, "", "required")
	case len(value) > maxIdentLen:
		c.fail(field, value[:32]+"...", "too long")
	case !re.MatchString(value):
		c.fail(field, value, "contains characters outside the allowed set")
	}
}

func (c *checker) path(field, value string)    { c.match(field, value, pathPattern) }
func (c *checker) denom(field, value string)   { c.match(field, value, denomPattern) }
func (c *checker) id(field, value string)      { c.match(field, value, idPattern) }
func (c *checker) poolKey(field, value string) { c.match(field, value, poolKeyPattern) }

func (c *checker) positive(field string, value uint64) {
	if value == 0 {
		c.fail(field, "", "must be greater than zero")
	}
}

func (c *checker) caller(addr string) {
	if err := identity.ValidateAddress(addr); err != nil {
		c.fail("caller", "", err.Error())
	}
}

// asset validates an asset reference. needTokenID requires an nft to name
// one token.
func (c *checker) asset(field string, a model.AssetRef, needTokenID bool) {
	if err := a.Validate(); err != nil {
		c.fail(field, "", err.Error())
		return
	}
	switch a.Kind {
	case model.AssetCoin:
		c.denom(field+".denom", a.Denom)
		if a.Denom != c.native {
			c.fail(field+".denom", a.Denom, "only the native coin "+c.native+" can be attached")
		}
	case model.AssetToken:
		c.path(field+".path", a.Path)
	case model.AssetNFT:
		c.path(field+".path", a.Path)
		if a.TokenID != "" || needTokenID {
			c.id(field+".token_id", a.TokenID)
		}
	}
}

func (c *checker) kind(field string, a model.AssetRef, allowed ...model.AssetKind) {
	for _, k := range allowed {
		if a.Kind == k {
			return
		}
	}
	c.fail(field, string(a.Kind), "asset type not allowed for this operation")
}
