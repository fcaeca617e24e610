package geoip

import (
	"log/slog"
	"net"
	"net/netip"
	"strings"

	"github.com/oschwald/maxminddb-golang"
)

// Resolver maps client addresses to a country code and city using a MaxMind
// database. Without a database every lookup is empty.
type Resolver struct {
	db *maxminddb.Reader
}

type geoResult struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
	City struct {
		Names map[string]string `maxminddb:"names"`
	} `maxminddb:"city"`
}

func New(dbPath string) (*Resolver, error) {
	if dbPath == "" {
		return &Resolver{}, nil
	}
	db, err := maxminddb.Open(dbPath)
	if err != nil {
		slog.Warn("geoip: failed to open database, report geolocation disabled", "path", dbPath, "error", err)
		return &Resolver{}, nil
	}
	slog.Info("geoip: loaded database", "path", dbPath, "type", db.Metadata.DatabaseType)
	return &Resolver{db: db}, nil
}

// publicAddr parses an IP or host:port and drops addresses no database
// can place.
func publicAddr(raw string) (netip.Addr, bool) {
	raw = strings.TrimSpace(raw)
	if host, _, err := net.SplitHostPort(raw); err == nil {
		raw = host
	}
	addr, err := netip.ParseAddr(strings.Trim(raw, "[]"))
	if err != nil {
		return netip.Addr{}, false
	}
	addr = addr.Unmap()
	if addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() || addr.IsUnspecified() {
		return netip.Addr{}, false
	}
	return addr, true
}

func (r *Resolver) Lookup(raw string) (country, city string) {
	if r.db == nil {
		return "", ""
	}
	addr, ok := publicAddr(raw)
	if !ok {
		return "", ""
	}
	var result geoResult
	if err := r.db.Lookup(net.IP(addr.AsSlice()), &result); err != nil {
		return "", ""
	}
	return result.Country.ISOCode, result.City.Names["en"]
}

func (r *Resolver) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
