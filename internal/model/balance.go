package model

// NFTBalance records that Owner holds TokenID of Collection.
type NFTBalance struct {
	Collection string `json:"collection"`
	TokenID    string `json:"token_id"`
	Owner      string `json:"owner,omitempty"`
	Count      uint64 `json:"count"`
}

// Asset returns the NFT as an asset reference.
func (b NFTBalance) Asset() AssetRef {
	return NFT(b.Collection, b.TokenID)
}

// TokenBalance is an owner's balance of a fungible token.
type TokenBalance struct {
	Path    string `json:"path"`
	Owner   string `json:"owner,omitempty"`
	Balance uint64 `json:"balance"`
}
