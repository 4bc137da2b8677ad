package decode

import (
	"fmt"
	"math"
	"time"

	"gnodesk/internal/fieldfmt"
	"gnodesk/internal/model"
)

var tokenTable = fieldTable[model.TokenDescriptor]{
	setters: map[string]setter[model.TokenDescriptor]{
		"Path":     requiredString(func(t *model.TokenDescriptor, s string) { t.Path = s }),
		"Name":     stringField(func(t *model.TokenDescriptor, s string) { t.Name = s }),
		"Symbol":   stringField(func(t *model.TokenDescriptor, s string) { t.Symbol = s }),
		"Decimals": uintField(func(t *model.TokenDescriptor, n uint64) { t.Decimals = uint32(n) }),
	},
	required: []string{"Path", "Decimals"},
}

// Token decodes a token-info composite.
func Token(rec fieldfmt.Record) (model.TokenDescriptor, error) {
	if raw, ok := rec.Uint("Decimals"); ok && raw > math.MaxUint32 {
		return model.TokenDescriptor{}, fmt.Errorf("decimals %d out of range", raw)
	}
	var token model.TokenDescriptor
	if err := tokenTable.apply(rec, &token); err != nil {
		return model.TokenDescriptor{}, err
	}
	return token, nil
}

func tokenField(assign func(*model.PoolRecord, model.TokenDescriptor)) setter[model.PoolRecord] {
	return nestedField(func(p *model.PoolRecord, rec fieldfmt.Record) error {
		token, err := Token(rec)
		if err != nil {
			return err
		}
		assign(p, token)
		return nil
	})
}

var poolTable = fieldTable[model.PoolRecord]{
	setters: map[string]setter[model.PoolRecord]{
		"TokenA":        tokenField(func(p *model.PoolRecord, t model.TokenDescriptor) { p.TokenA = t }),
		"TokenB":        tokenField(func(p *model.PoolRecord, t model.TokenDescriptor) { p.TokenB = t }),
		"ReserveA":      uintField(func(p *model.PoolRecord, n uint64) { p.ReserveA = n }),
		"ReserveB":      uintField(func(p *model.PoolRecord, n uint64) { p.ReserveB = n }),
		"TotalSupplyLP": uintField(func(p *model.PoolRecord, n uint64) { p.TotalSupplyLP = n }),
	},
	required: []string{"TokenA", "TokenB", "ReserveA", "ReserveB", "TotalSupplyLP"},
}

// Pool decodes a pool record body. The key comes from the "key>" prefix.
func Pool(key string, rec fieldfmt.Record) (model.PoolRecord, error) {
	if key == "" {
		return model.PoolRecord{}, fmt.Errorf("pool record without key")
	}
	pool := model.PoolRecord{Key: key}
	if err := poolTable.apply(rec, &pool); err != nil {
		return model.PoolRecord{}, err
	}
	return pool, nil
}

type assetFields struct {
	denom   string
	path    string
	tokenID string
}

var assetTable = fieldTable[assetFields]{
	setters: map[string]setter[assetFields]{
		"Denom":   requiredString(func(a *assetFields, s string) { a.denom = s }),
		"Path":    requiredString(func(a *assetFields, s string) { a.path = s }),
		"TokenID": requiredString(func(a *assetFields, s string) { a.tokenID = s }),
	},
}

// Asset decodes an asset composite such as {Type:token,Path:gno.land/r/demo/foo20}.
// An explicit Type always decides the variant; without one the variant is
// inferred from which fields are present.
func Asset(rec fieldfmt.Record) (model.AssetRef, error) {
	var fields assetFields
	if err := assetTable.apply(rec, &fields); err != nil {
		return model.AssetRef{}, err
	}

	var kind model.AssetKind
	if raw, ok := rec.Lookup("Type"); ok {
		if raw.IsComposite() {
			return model.AssetRef{}, fmt.Errorf("asset type must be scalar")
		}
		parsed, err := model.ParseAssetKind(raw.Raw)
		if err != nil {
			return model.AssetRef{}, err
		}
		kind = parsed
	} else {
		switch {
		case fields.denom != "" && fields.path == "":
			kind = model.AssetCoin
		case fields.path != "" && fields.denom == "" && fields.tokenID != "":
			kind = model.AssetNFT
		case fields.path != "" && fields.denom == "":
			kind = model.AssetToken
		default:
			return model.AssetRef{}, fmt.Errorf("cannot infer asset type")
		}
	}

	asset := model.AssetRef{Kind: kind, Denom: fields.denom, Path: fields.path, TokenID: fields.tokenID}
	if kind == model.AssetNFT && asset.TokenID == "" {
		asset.Path, asset.TokenID = model.SplitNFTPath(asset.Path)
	}
	if err := asset.Validate(); err != nil {
		return model.AssetRef{}, err
	}
	return asset, nil
}

func assetField(assign func(*model.Ticket, model.AssetRef)) setter[model.Ticket] {
	return nestedField(func(t *model.Ticket, rec fieldfmt.Record) error {
		asset, err := Asset(rec)
		if err != nil {
			return err
		}
		assign(t, asset)
		return nil
	})
}

func timeField(assign func(*model.Ticket, time.Time)) setter[model.Ticket] {
	return func(t *model.Ticket, v fieldfmt.Value) error {
		var secs uint64
		if err := uintField(func(_ *model.Ticket, n uint64) { secs = n })(t, v); err != nil {
			return err
		}
		if secs > math.MaxInt64 {
			return fmt.Errorf("timestamp %d out of range", secs)
		}
		assign(t, time.Unix(int64(secs), 0).UTC())
		return nil
	}
}

var ticketTable = fieldTable[model.Ticket]{
	setters: map[string]setter[model.Ticket]{
		"ID":           requiredString(func(t *model.Ticket, s string) { t.ID = s }),
		"Creator":      requiredString(func(t *model.Ticket, s string) { t.Creator = s }),
		"AssetIn":      assetField(func(t *model.Ticket, a model.AssetRef) { t.AssetIn = a }),
		"AssetOut":     assetField(func(t *model.Ticket, a model.AssetRef) { t.AssetOut = a }),
		"AmountIn":     uintField(func(t *model.Ticket, n uint64) { t.AmountIn = n }),
		"MinAmountOut": uintField(func(t *model.Ticket, n uint64) { t.MinAmountOut = n }),
		"CreatedAt":    timeField(func(t *model.Ticket, ts time.Time) { t.CreatedAt = ts }),
		"ExpiresAt":    timeField(func(t *model.Ticket, ts time.Time) { t.ExpiresAt = ts }),
		"Status": func(t *model.Ticket, v fieldfmt.Value) error {
			raw, err := scalar(v)
			if err != nil {
				return err
			}
			status, err := model.ParseTicketStatus(raw)
			if err != nil {
				return err
			}
			t.Status = status
			return nil
		},
	},
	required: []string{"ID", "Creator", "AssetIn", "AssetOut", "AmountIn", "MinAmountOut", "ExpiresAt", "Status"},
}

// Ticket decodes a ticket record. CreatedAt is optional.
func Ticket(rec fieldfmt.Record) (model.Ticket, error) {
	var ticket model.Ticket
	if err := ticketTable.apply(rec, &ticket); err != nil {
		return model.Ticket{}, err
	}
	return ticket, nil
}

var nftBalanceTable = fieldTable[model.NFTBalance]{
	setters: map[string]setter[model.NFTBalance]{
		"Collection": requiredString(func(b *model.NFTBalance, s string) { b.Collection = s }),
		"TokenID":    requiredString(func(b *model.NFTBalance, s string) { b.TokenID = s }),
		"Owner":      stringField(func(b *model.NFTBalance, s string) { b.Owner = s }),
		"Count":      uintField(func(b *model.NFTBalance, n uint64) { b.Count = n }),
	},
}

// NFTBalance decodes an NFT holding. The collection may come from the record
// key, a Collection field, or a Path field carrying a ":tokenID" suffix.
func NFTBalance(key string, rec fieldfmt.Record) (model.NFTBalance, error) {
	balance := model.NFTBalance{Count: 1}
	if err := nftBalanceTable.apply(rec, &balance); err != nil {
		return model.NFTBalance{}, err
	}
	if key != "" {
		balance.Collection = key
	}
	if path, ok := rec.String("Path"); ok && path != "" {
		collection, tokenID := model.SplitNFTPath(path)
		if balance.Collection == "" {
			balance.Collection = collection
		}
		if balance.TokenID == "" {
			balance.TokenID = tokenID
		}
	}

	if balance.Collection == "" {
		return model.NFTBalance{}, fmt.Errorf("missing required field Collection")
	}
	if balance.TokenID == "" {
		return model.NFTBalance{}, fmt.Errorf("missing required field TokenID")
	}
	if balance.Count == 0 {
		return model.NFTBalance{}, fmt.Errorf("nft %s:%s held with zero count", balance.Collection, balance.TokenID)
	}
	return balance, nil
}

var tokenBalanceTable = fieldTable[model.TokenBalance]{
	setters: map[string]setter[model.TokenBalance]{
		"Path":    requiredString(func(b *model.TokenBalance, s string) { b.Path = s }),
		"Owner":   stringField(func(b *model.TokenBalance, s string) { b.Owner = s }),
		"Balance": uintField(func(b *model.TokenBalance, n uint64) { b.Balance = n }),
	},
	required: []string{"Path", "Balance"},
}

// TokenBalance decodes a fungible token balance.
func TokenBalance(rec fieldfmt.Record) (model.TokenBalance, error) {
	var balance model.TokenBalance
	if err := tokenBalanceTable.apply(rec, &balance); err != nil {
		return model.TokenBalance{}, err
	}
	return balance, nil
}
