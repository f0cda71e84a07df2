package extractor

import (
	"net/url"
	"regexp"
	"strings"

	"nft-curator/internal/domain"
)

var linkPattern = regexp.MustCompile(`https?://[^\s<>"'\\\]\)}]+`)

var (
	socialHosts = []string{
		"twitter.com", "x.com", "instagram.com", "tiktok.com", "youtube.com",
		"warpcast.com", "threads.net", "linktr.ee", "bsky.app",
	}
	marketplaceHosts = []string{
		"opensea.io", "foundation.app", "rarible.com", "superrare.com", "zora.co",
		"objkt.com", "magiceden.io", "blur.io", "niftygateway.com", "makersplace.com",
		"knownorigin.io", "exchange.art", "manifold.gallery",
	}
	// Storage gateways, CDNs and explorers are never project pages.
	otherHosts = []string{
		"ipfs.io", "arweave.net", "seadn.io", "etherscan.io", "polygonscan.com",
		"nftstorage.link", "pinata.cloud", "cloudflare-ipfs.com", "dweb.link",
		"googleusercontent.com", "cloudinary.com",
	}
)

// CategorizeLinks finds every http(s) URL in raw and sorts it into the four
// link categories by host. Order of first appearance is kept and duplicates
// are dropped.
func CategorizeLinks(raw string) domain.CategorizedLinks {
	links := domain.CategorizedLinks{
		ArtistSocial:    domain.StringList{},
		ProjectWebsites: domain.StringList{},
		Marketplace:     domain.StringList{},
		Other:           domain.StringList{},
	}
	seen := make(map[string]bool)
	for _, candidate := range linkPattern.FindAllString(raw, -1) {
		link := strings.TrimRight(candidate, ".,;:")
		if seen[link] {
			continue
		}
		seen[link] = true

		u, err := url.Parse(link)
		if err != nil || u.Host == "" {
			continue
		}
		host := strings.ToLower(u.Hostname())
		switch {
		case matchesHost(host, socialHosts):
			links.ArtistSocial = append(links.ArtistSocial, link)
		case matchesHost(host, marketplaceHosts):
			links.Marketplace = append(links.Marketplace, link)
		case matchesHost(host, otherHosts) || imageURLPattern.MatchString(link):
			links.Other = append(links.Other, link)
		default:
			links.ProjectWebsites = append(links.ProjectWebsites, link)
		}
	}
	return links
}

// IsTwitterURL reports whether link points at twitter.com or x.com.
func IsTwitterURL(link string) bool {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil || u.Host == "" {
		return false
	}
	return matchesHost(strings.ToLower(u.Hostname()), []string{"twitter.com", "x.com"})
}

func matchesHost(host string, domains []string) bool {
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
