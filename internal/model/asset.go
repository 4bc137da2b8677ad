package model

import (
	"fmt"
	"strings"
)

// AssetKind tags the variant held by an AssetRef.
type AssetKind string

const (
	AssetCoin  AssetKind = "coin"
	AssetToken AssetKind = "token"
	AssetNFT   AssetKind = "nft"
)

// ParseAssetKind accepts only the known tags.
func ParseAssetKind(raw string) (AssetKind, error) {
	switch kind := AssetKind(strings.TrimSpace(raw)); kind {
	case AssetCoin, AssetToken, AssetNFT:
		return kind, nil
	default:
		return "", fmt.Errorf("unknown asset type %q", raw)
	}
}

// AssetRef identifies a native coin, a fungible token or a single NFT.
type AssetRef struct {
	Kind    AssetKind `json:"kind"`
	Denom   string    `json:"denom,omitempty"`
	Path    string    `json:"path,omitempty"`
	TokenID string    `json:"token_id,omitempty"`
}

func Coin(denom string) AssetRef {
	return AssetRef{Kind: AssetCoin, Denom: denom}
}

func Token(path string) AssetRef {
	return AssetRef{Kind: AssetToken, Path: path}
}

func NFT(path, tokenID string) AssetRef {
	return AssetRef{Kind: AssetNFT, Path: path, TokenID: tokenID}
}

// IsNative reports whether the asset is paid by attaching funds.
func (a AssetRef) IsNative() bool {
	return a.Kind == AssetCoin
}

// Validate checks that exactly the fields of the tagged variant are set.
func (a AssetRef) Validate() error {
	switch a.Kind {
	case AssetCoin:
		if a.Denom == "" {
			return fmt.Errorf("coin asset without denom")
		}
		if a.Path != "" || a.TokenID != "" {
			return fmt.Errorf("coin asset %s carries a path", a.Denom)
		}
	case AssetToken:
		if a.Path == "" {
			return fmt.Errorf("token asset without path")
		}
		if a.Denom != "" || a.TokenID != "" {
			return fmt.Errorf("token asset %s carries coin or nft fields", a.Path)
		}
	case AssetNFT:
		if a.Path == "" {
			return fmt.Errorf("nft asset without path")
		}
		if a.Denom != "" {
			return fmt.Errorf("nft asset %s carries a denom", a.Path)
		}
	default:
		return fmt.Errorf("unknown asset type %q", a.Kind)
	}
	return nil
}

// ID is the identifier passed to the exchange realm for this asset: the
// denom for coins, the path for tokens and path:tokenID for NFTs.
func (a AssetRef) ID() string {
	switch a.Kind {
	case AssetCoin:
		return a.Denom
	case AssetNFT:
		if a.TokenID != "" {
			return a.Path + ":" + a.TokenID
		}
		return a.Path
	default:
		return a.Path
	}
}

// Key is a stable map key such as "token:gno.land/r/demo/foo".
func (a AssetRef) Key() string {
	return string(a.Kind) + ":" + a.ID()
}

func (a AssetRef) String() string {
	return a.Key()
}

// SplitNFTPath separates a trailing ":tokenID" suffix from an NFT path.
func SplitNFTPath(raw string) (path, tokenID string) {
	idx := strings.LastIndexByte(raw, ':')
	if idx <= 0 || idx == len(raw)-1 {
		return raw, ""
	}
	return raw[:idx], raw[idx+1:]
}

// ParseAssetKey is the inverse of Key: "coin:ugnot", "token:<path>" or
// "nft:<path>[:<tokenID>]".
func ParseAssetKey(key string) (AssetRef, error) {
	tag, rest, ok := strings.Cut(strings.TrimSpace(key), ":")
	if !ok {
		return AssetRef{}, fmt.Errorf("asset %q: want kind:id", key)
	}
	kind, err := ParseAssetKind(tag)
	if err != nil {
		return AssetRef{}, err
	}
	var asset AssetRef
	switch kind {
	case AssetCoin:
		asset = Coin(rest)
	case AssetToken:
		asset = Token(rest)
	case AssetNFT:
		path, tokenID := SplitNFTPath(rest)
		asset = NFT(path, tokenID)
	}
	if err := asset.Validate(); err != nil {
		return AssetRef{}, err
	}
	return asset, nil
}
