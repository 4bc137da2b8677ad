package decode

import (
	"errors"
	"strings"
	"testing"
	"time"

	"gnodesk/internal/model"
)

const samplePool = "p1>TokenA:{Path:a.tok,Name:A,Symbol:TOKA,Decimals:6},TokenB:{Path:b.tok,Name:B,Symbol:TOKB,Decimals:6},ReserveA:100,ReserveB:200,TotalSupplyLP:50"

func TestPoolsDecodesExample(t *testing.T) {
	page, err := Pools(samplePool, nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("expected 1 pool, got %d", len(page.Items))
	}

	pool := page.Items[0]
	if pool.Key != "p1" {
		t.Fatalf("pool key mismatch: %s", pool.Key)
	}
	if pool.ReserveA != 100 || pool.ReserveB != 200 || pool.TotalSupplyLP != 50 {
		t.Fatalf("pool values mismatch: %+v", pool)
	}
	want := model.TokenDescriptor{Path: "a.tok", Name: "A", Symbol: "TOKA", Decimals: 6}
	if pool.TokenA != want {
		t.Fatalf("token A mismatch: %+v", pool.TokenA)
	}
	if pool.TokenB.Path != "b.tok" {
		t.Fatalf("token B mismatch: %+v", pool.TokenB)
	}
}

func TestPoolsSkipsMalformedKeepsOrder(t *testing.T) {
	records := []string{
		strings.Replace(samplePool, "p1>", "first>", 1),
		"broken>TokenA:{Path:a.tok,Decimals:6},ReserveA:-1,ReserveB:2,TotalSupplyLP:3",
		strings.Replace(samplePool, "p1>", "second>", 1),
		"no-key-here",
		strings.Replace(samplePool, "p1>", "third>", 1),
	}

	var skips []model.DecodeSkip
	page, err := Pools(strings.Join(records, ";"), func(s model.DecodeSkip) {
		skips = append(skips, s)
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(page.Items) != 3 {
		t.Fatalf("expected 3 pools, got %d", len(page.Items))
	}
	for i, key := range []string{"first", "second", "third"} {
		if page.Items[i].Key != key {
			t.Fatalf("order mismatch at %d: %s", i, page.Items[i].Key)
		}
	}
	if page.Total != 5 || page.Skipped != 2 {
		t.Fatalf("counters mismatch: total=%d skipped=%d", page.Total, page.Skipped)
	}
	if len(skips) != 2 || skips[0].Index != 1 || skips[0].Key != "broken" || skips[1].Index != 3 {
		t.Fatalf("skip records mismatch: %+v", skips)
	}
}

func TestPoolsMissingRequiredField(t *testing.T) {
	text := "p1>TokenA:{Path:a.tok,Decimals:6},TokenB:{Path:b.tok,Decimals:6},ReserveA:100,ReserveB:200;" + samplePool
	page, err := Pools(text, nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(page.Items) != 1 || page.Skipped != 1 {
		t.Fatalf("record without TotalSupplyLP should be skipped: %+v", page)
	}
}

func TestEmptyAndMalformedPages(t *testing.T) {
	page, err := Pools("  ", nil)
	if err != nil {
		t.Fatalf("blank page should not fail: %v", err)
	}
	if len(page.Items) != 0 || page.Total != 0 {
		t.Fatalf("blank page should be empty: %+v", page)
	}

	_, err = Pools("garbage;more garbage", nil)
	if !errors.Is(err, ErrMalformedPage) {
		t.Fatalf("expected ErrMalformedPage, got %v", err)
	}
}

func TestTokensBareComposites(t *testing.T) {
	text := "{Path:gno.land/r/demo/foo20,Name:Foo,Symbol:FOO,Decimals:4};{Path:gno.land/r/demo/bar20,Decimals:6};{Name:NoPath,Decimals:2}"
	page, err := Tokens(text, nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 tokens, got %d", len(page.Items))
	}
	if page.Items[0].Symbol != "FOO" || page.Items[0].Decimals != 4 {
		t.Fatalf("token mismatch: %+v", page.Items[0])
	}
	if page.Items[1].Name != "" || page.Items[1].Decimals != 6 {
		t.Fatalf("optional fields should stay empty: %+v", page.Items[1])
	}
}

func TestTokenOptionalFieldTolerance(t *testing.T) {
	page, err := Tokens("Path:x.tok,Name:{Inner:x},Decimals:3", nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].Name != "" {
		t.Fatalf("unparsable optional field should be dropped: %+v", page.Items)
	}
}

func TestTicketsDecode(t *testing.T) {
	text := strings.Join([]string{
		"ID:1,Creator:g1creator,AssetIn:{Type:token,Path:x.tok},AssetOut:{Type:coin,Denom:ugnot},AmountIn:1000,MinAmountOut:900,CreatedAt:1700000000,ExpiresAt:1700086400,Status:open",
		"ID:2,Creator:g1creator,AssetIn:{Type:nft,Path:gno.land/r/demo/nft:42},AssetOut:{Denom:ugnot},AmountIn:1,MinAmountOut:5000000,ExpiresAt:1700086400,Status:fulfilled",
		"ID:3,Creator:g1creator,AssetIn:{Type:token,Path:x.tok},AssetOut:{Type:coin,Denom:ugnot},AmountIn:1,MinAmountOut:1,ExpiresAt:1,Status:pending",
		"ID:4,Creator:g1creator,AssetIn:{Type:coin,Path:x.tok},AssetOut:{Type:coin,Denom:ugnot},AmountIn:1,MinAmountOut:1,ExpiresAt:1,Status:open",
	}, ";")

	page, err := Tickets(text, nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 tickets, got %d (%+v)", len(page.Items), page)
	}

	first := page.Items[0]
	if first.AssetIn != model.Token("x.tok") || first.AssetOut != model.Coin("ugnot") {
		t.Fatalf("assets mismatch: %+v", first)
	}
	if first.AmountIn != 1000 || first.MinAmountOut != 900 {
		t.Fatalf("amounts mismatch: %+v", first)
	}
	if !first.CreatedAt.Equal(time.Unix(1700000000, 0)) || !first.ExpiresAt.Equal(time.Unix(1700086400, 0)) {
		t.Fatalf("timestamps mismatch: %+v", first)
	}

	second := page.Items[1]
	if second.AssetIn != model.NFT("gno.land/r/demo/nft", "42") {
		t.Fatalf("nft asset mismatch: %+v", second.AssetIn)
	}
	if second.AssetOut != model.Coin("ugnot") {
		t.Fatalf("inferred coin mismatch: %+v", second.AssetOut)
	}
	if !second.CreatedAt.IsZero() {
		t.Fatalf("missing CreatedAt should stay zero")
	}
}

func TestNFTBalancesLayouts(t *testing.T) {
	keyed, err := NFTBalances("gno.land/r/demo/nft>TokenID:1,Owner:g1owner;gno.land/r/demo/nft>TokenID:2,Count:1", nil)
	if err != nil {
		t.Fatalf("decode keyed: %v", err)
	}
	if len(keyed.Items) != 2 || keyed.Items[0].Collection != "gno.land/r/demo/nft" || keyed.Items[0].Count != 1 {
		t.Fatalf("keyed mismatch: %+v", keyed.Items)
	}

	flat, err := NFTBalances("Path:gno.land/r/demo/nft:7,Owner:g1owner;Collection:gno.land/r/demo/art,TokenID:9;Path:gno.land/r/demo/nft,Count:0", nil)
	if err != nil {
		t.Fatalf("decode flat: %v", err)
	}
	if len(flat.Items) != 2 {
		t.Fatalf("expected 2 balances, got %+v", flat)
	}
	if flat.Items[0].TokenID != "7" || flat.Items[1].Collection != "gno.land/r/demo/art" {
		t.Fatalf("flat mismatch: %+v", flat.Items)
	}
}

func TestNFTBalancesMixedLayouts(t *testing.T) {
	var skips []model.DecodeSkip
	page, err := NFTBalances("garbage>;Path:gno.land/r/demo/nft:7;gno.land/r/demo/art>TokenID:9", func(s model.DecodeSkip) {
		skips = append(skips, s)
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(page.Items) != 2 || len(skips) != 1 || skips[0].Index != 0 {
		t.Fatalf("expected leading record skipped only, got %+v skips %+v", page.Items, skips)
	}
	if page.Items[0].Collection != "gno.land/r/demo/nft" || page.Items[0].TokenID != "7" {
		t.Fatalf("unkeyed record mismatch: %+v", page.Items[0])
	}
	if page.Items[1].Collection != "gno.land/r/demo/art" || page.Items[1].TokenID != "9" {
		t.Fatalf("keyed record mismatch: %+v", page.Items[1])
	}
}

func TestTokenBalances(t *testing.T) {
	page, err := TokenBalances("Path:x.tok,Balance:42;Path:y.tok,Balance:abc", nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].Balance != 42 {
		t.Fatalf("balances mismatch: %+v", page)
	}
}
