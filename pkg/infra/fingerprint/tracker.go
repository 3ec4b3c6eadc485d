package fingerprint

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	CharacteristicIP        = "ip.src"
	CharacteristicUserAgent = "http.user_agent"
	CharacteristicHost      = "http.host"
)

var (
	ErrUnknownCharacteristic = errors.New("unknown fingerprint characteristic")
	ErrInvalidTrustedProxy   = errors.New("invalid trusted proxy")
)

// Proxies append to these, so only the rightmost public hop is trusted.
var forwardedHeaders = []string{
	"X-Forwarded-For",
	"X-Original-Forwarded-For",
}

var ipHeaders = []string{
	"X-Real-IP",
	"True-Client-IP",
	"CF-Connecting-IP",
}

type Tracker interface {
	MakeFingerprint(ctx *fiber.Ctx) Fingerprint
}

type tracker struct {
	trustForwarded  bool
	trustedProxies  []*net.IPNet
	characteristics []string
}

// NewTracker builds a Tracker. Forwarded headers are read only when trustForwarded
// is set and, if trustedProxies lists any CIDRs or addresses, only when the socket
// peer is one of them.
func NewTracker(trustForwarded bool, characteristics []string, trustedProxies ...string) (Tracker, error) {
	if len(characteristics) == 0 {
		characteristics = []string{CharacteristicIP}
	}
	normalized := make([]string, 0, len(characteristics))
	for _, c := range characteristics {
		c = strings.ToLower(strings.TrimSpace(c))
		switch c {
		case CharacteristicIP, CharacteristicUserAgent, CharacteristicHost:
			normalized = append(normalized, c)
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownCharacteristic, c)
		}
	}
	proxies, err := parseNetworks(trustedProxies)
	if err != nil {
		return nil, err
	}
	return &tracker{
		trustForwarded:  trustForwarded,
		trustedProxies:  proxies,
		characteristics: normalized,
	}, nil
}

func parseNetworks(values []string) ([]*net.IPNet, error) {
	networks := make([]*net.IPNet, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if !strings.Contains(v, "/") {
			ip := net.ParseIP(v)
			if ip == nil {
				return nil, fmt.Errorf("%w: %q", ErrInvalidTrustedProxy, v)
			}
			bits := 128
			if ip.To4() != nil {
				ip, bits = ip.To4(), 32
			}
			networks = append(networks, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTrustedProxy, v)
		}
		networks = append(networks, n)
	}
	return networks, nil
}

func (p *tracker) MakeFingerprint(ctx *fiber.Ctx) Fingerprint {
	fp := Fingerprint{
		IP:        p.clientIP(ctx),
		UserAgent: strings.TrimSpace(ctx.Get(fiber.HeaderUserAgent)),
		Host:      strings.ToLower(ctx.Hostname()),
	}
	fp.values = make([]string, 0, len(p.characteristics))
	for _, c := range p.characteristics {
		switch c {
		case CharacteristicIP:
			fp.values = append(fp.values, c+"="+fp.IP)
		case CharacteristicUserAgent:
			fp.values = append(fp.values, c+"="+strings.ToLower(fp.UserAgent))
		case CharacteristicHost:
			fp.values = append(fp.values, c+"="+fp.Host)
		}
	}
	return fp
}

func (p *tracker) clientIP(ctx *fiber.Ctx) string {
	peer := strings.TrimSpace(ctx.IP())
	if !p.trustForwarded || !p.fromTrustedProxy(peer) {
		return peer
	}
	for _, header := range forwardedHeaders {
		if ip := p.rightmostPublic(ctx.Get(header)); ip != nil {
			return ip.String()
		}
	}
	for _, header := range ipHeaders {
		if ip := net.ParseIP(strings.TrimSpace(ctx.Get(header))); ip != nil && p.isPublic(ip) {
			return ip.String()
		}
	}
	return peer
}

func (p *tracker) fromTrustedProxy(peer string) bool {
	if len(p.trustedProxies) == 0 {
		return true
	}
	ip := net.ParseIP(peer)
	return ip != nil && p.isTrustedProxy(ip)
}

func (p *tracker) isTrustedProxy(ip net.IP) bool {
	for _, n := range p.trustedProxies {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// rightmostPublic walks a forwarded chain from the nearest hop outwards.
func (p *tracker) rightmostPublic(value string) net.IP {
	if value == "" {
		return nil
	}
	hops := strings.Split(value, ",")
	for i := len(hops) - 1; i >= 0; i-- {
		ip := net.ParseIP(strings.TrimSpace(hops[i]))
		if ip != nil && p.isPublic(ip) {
			return ip
		}
	}
	return nil
}

func (p *tracker) isPublic(ip net.IP) bool {
	if ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() ||
		ip.IsUnspecified() || ip.IsMulticast() {
		return false
	}
	return !p.isTrustedProxy(ip)
}
