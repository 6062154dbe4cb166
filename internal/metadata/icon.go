package metadata

import (
	"net/url"
	"strings"

	"degenjudge/internal/solana"
)

// PlaceholderIcon is used when an asset has no usable image.
const PlaceholderIcon = "/placeholder.svg?height=48&width=48"

const (
	ipfsScheme  = "ipfs://"
	ipfsGateway = "https://ipfs.io/ipfs/"
)

// ResolveIcon picks the first image candidate of asset, rewrites ipfs://
// URIs to the public gateway and returns PlaceholderIcon when the result is
// not an absolute URL.
func ResolveIcon(asset *solana.Asset) string {
	return NormalizeIcon(firstNonEmpty(iconCandidates(asset)...))
}

// NormalizeIcon applies gateway rewriting and URL validation to raw.
func NormalizeIcon(raw string) string {
	if raw == "" {
		return PlaceholderIcon
	}
	if strings.HasPrefix(raw, ipfsScheme) {
		raw = ipfsGateway + strings.TrimPrefix(raw, ipfsScheme)
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() {
		return PlaceholderIcon
	}
	return raw
}

// iconCandidates lists image sources from most to least specific.
func iconCandidates(asset *solana.Asset) []string {
	if asset == nil {
		return nil
	}
	var out []string
	if c := asset.Content; c != nil {
		if c.Metadata != nil {
			out = append(out, c.Metadata.Image)
		}
		if c.Links != nil {
			out = append(out, c.Links.Image)
		}
		out = append(out, c.JSONURI)
		if len(c.Files) > 0 {
			out = append(out, c.Files[0].URI)
		}
	}
	return append(out, asset.Image)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
