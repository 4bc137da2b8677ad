package model

import "testing"

func TestAssetRefValidate(t *testing.T) {
	valid := []AssetRef{
		Coin("ugnot"),
		Token("gno.land/r/demo/foo20"),
		NFT("gno.land/r/demo/nft", "42"),
	}
	for _, asset := range valid {
		if err := asset.Validate(); err != nil {
			t.Fatalf("%s: unexpected error: %v", asset, err)
		}
	}

	invalid := []AssetRef{
		{Kind: AssetCoin},
		{Kind: AssetCoin, Denom: "ugnot", Path: "gno.land/r/demo/foo20"},
		{Kind: AssetToken, Denom: "ugnot"},
		{Kind: AssetToken, Path: "gno.land/r/demo/foo20", TokenID: "1"},
		{Kind: AssetNFT, Denom: "ugnot"},
		{Kind: "bond", Path: "x"},
	}
	for _, asset := range invalid {
		if err := asset.Validate(); err == nil {
			t.Fatalf("%+v should be rejected", asset)
		}
	}
}

func TestAssetRefKey(t *testing.T) {
	if got := Coin("ugnot").Key(); got != "coin:ugnot" {
		t.Fatalf("coin key mismatch: %s", got)
	}
	if got := NFT("gno.land/r/demo/nft", "42").Key(); got != "nft:gno.land/r/demo/nft:42" {
		t.Fatalf("nft key mismatch: %s", got)
	}
}

func TestSplitNFTPath(t *testing.T) {
	path, id := SplitNFTPath("gno.land/r/demo/nft:42")
	if path != "gno.land/r/demo/nft" || id != "42" {
		t.Fatalf("split mismatch: %s %s", path, id)
	}
	path, id = SplitNFTPath("gno.land/r/demo/nft")
	if path != "gno.land/r/demo/nft" || id != "" {
		t.Fatalf("path without suffix changed: %s %s", path, id)
	}
}

func TestParseAssetKey(t *testing.T) {
	cases := map[string]AssetRef{
		"coin:ugnot":                Coin("ugnot"),
		"token:gno.land/r/demo/foo": Token("gno.land/r/demo/foo"),
		"nft:gno.land/r/demo/art:7": NFT("gno.land/r/demo/art", "7"),
		"nft:gno.land/r/demo/art":   NFT("gno.land/r/demo/art", ""),
	}
	for key, want := range cases {
		got, err := ParseAssetKey(key)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", key, err)
		}
		if got != want {
			t.Fatalf("%s: got %+v, want %+v", key, got, want)
		}
		if got.Key() != key {
			t.Fatalf("%s: key round trip gave %s", key, got.Key())
		}
	}

	for _, bad := range []string{"ugnot", "bond:x", "coin:", "token:"} {
		if _, err := ParseAssetKey(bad); err == nil {
			t.Fatalf("%s should be rejected", bad)
		}
	}
}
