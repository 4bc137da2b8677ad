package decode

import (
	"errors"
	"fmt"

	"gnodesk/internal/fieldfmt"
	"gnodesk/internal/model"
)

// ErrMalformedPage is returned when a non-empty response produced no
// decodable record at all.
var ErrMalformedPage = errors.New("malformed page")

const (
	KindPool         = "pool"
	KindToken        = "token"
	KindTicket       = "ticket"
	KindNFTBalance   = "nft_balance"
	KindTokenBalance = "token_balance"
)

// PageSpec describes how a response is split into records.
type PageSpec struct {
	Kind      string
	Separator string
	// Keyed records carry an identifying "key>" prefix. With OptionalKey
	// each record may omit it and is then decoded with an empty key.
	Keyed       bool
	OptionalKey bool
	KeySep      byte
}

var (
	PoolPage         = PageSpec{Kind: KindPool, Separator: ";", Keyed: true, KeySep: '>'}
	TokenPage        = PageSpec{Kind: KindToken, Separator: ";"}
	TicketPage       = PageSpec{Kind: KindTicket, Separator: ";"}
	NFTBalancePage   = PageSpec{Kind: KindNFTBalance, Separator: ";", Keyed: true, OptionalKey: true, KeySep: '>'}
	TokenBalancePage = PageSpec{Kind: KindTokenBalance, Separator: ";"}
)

// RecordFunc decodes one record. key is empty for unkeyed pages.
type RecordFunc[T any] func(key string, rec fieldfmt.Record) (T, error)

// SkipFunc observes dropped records.
type SkipFunc func(model.DecodeSkip)

// Page is the decoded content of one response.
type Page[T any] struct {
	Items   []T
	Total   int
	Skipped int
}

// DecodePage splits text into records and decodes each one, preserving
// source order. Records that fail at any stage are reported to onSkip and
// dropped. Blank text is an empty page.
func DecodePage[T any](text string, spec PageSpec, decodeFn RecordFunc[T], onSkip SkipFunc) (Page[T], error) {
	if spec.Separator == "" {
		return Page[T]{}, fmt.Errorf("page %s: empty separator", spec.Kind)
	}

	segments := fieldfmt.SplitList(text, spec.Separator)
	page := Page[T]{Items: make([]T, 0, len(segments)), Total: len(segments)}

	for i, segment := range segments {
		item, key, err := decodeSegment(segment, spec, decodeFn)
		if err != nil {
			page.Skipped++
			if onSkip != nil {
				onSkip(model.DecodeSkip{
					Kind:  spec.Kind,
					Index: i,
					Key:   key,
					Raw:   segment,
					Error: err.Error(),
				})
			}
			continue
		}
		page.Items = append(page.Items, item)
	}

	if page.Total > 0 && len(page.Items) == 0 {
		return page, fmt.Errorf("page %s: %d records, none decodable: %w", spec.Kind, page.Total, ErrMalformedPage)
	}
	return page, nil
}

func decodeSegment[T any](segment string, spec PageSpec, decodeFn RecordFunc[T]) (T, string, error) {
	var zero T

	key := ""
	body := segment
	if spec.Keyed {
		sep := spec.KeySep
		if sep == 0 {
			sep = '>'
		}
		k, b, ok := fieldfmt.SplitKey(segment, sep)
		switch {
		case ok:
			key, body = k, b
		case !spec.OptionalKey:
			return zero, "", fmt.Errorf("missing record key")
		}
	}

	rec, err := fieldfmt.Parse(fieldfmt.Unwrap(body))
	if err != nil {
		return zero, key, fmt.Errorf("tokenize: %w", err)
	}
	if rec.Len() == 0 {
		return zero, key, fmt.Errorf("empty record")
	}

	item, err := decodeFn(key, rec)
	if err != nil {
		return zero, key, err
	}
	return item, key, nil
}

// Pools decodes a pool list page.
func Pools(text string, onSkip SkipFunc) (Page[model.PoolRecord], error) {
	return DecodePage(text, PoolPage, Pool, onSkip)
}

// Tokens decodes a token list page.
func Tokens(text string, onSkip SkipFunc) (Page[model.TokenDescriptor], error) {
	return DecodePage(text, TokenPage, unkeyed(Token), onSkip)
}

// Tickets decodes a ticket list page.
func Tickets(text string, onSkip SkipFunc) (Page[model.Ticket], error) {
	return DecodePage(text, TicketPage, unkeyed(Ticket), onSkip)
}

// NFTBalances decodes an owner's NFT holdings. Each record is either keyed
// by collection path or carries the collection in its fields.
func NFTBalances(text string, onSkip SkipFunc) (Page[model.NFTBalance], error) {
	return DecodePage(text, NFTBalancePage, NFTBalance, onSkip)
}

// TokenBalances decodes an owner's token balances.
func TokenBalances(text string, onSkip SkipFunc) (Page[model.TokenBalance], error) {
	return DecodePage(text, TokenBalancePage, unkeyed(TokenBalance), onSkip)
}

func unkeyed[T any](fn func(fieldfmt.Record) (T, error)) RecordFunc[T] {
	return func(_ string, rec fieldfmt.Record) (T, error) {
		return fn(rec)
	}
}
